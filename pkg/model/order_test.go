package model

import (
	"encoding/json"
	"testing"
)

func TestOrderDirectionSides(t *testing.T) {
	tests := []struct {
		dir  OrderDirection
		name string
		buy  bool
	}{
		{OpenLong, "open_long", true},
		{CloseLong, "close_long", false},
		{OpenShort, "open_short", false},
		{CloseShort, "close_short", true},
	}
	for _, tt := range tests {
		if got := tt.dir.String(); got != tt.name {
			t.Errorf("String() = %q, want %q", got, tt.name)
		}
		if got := tt.dir.IsBuy(); got != tt.buy {
			t.Errorf("%s IsBuy() = %v, want %v", tt.name, got, tt.buy)
		}
	}
	if OrderDirection(7).Valid() {
		t.Error("direction 7 should be invalid")
	}
}

func TestOrderTypeRequiresPrice(t *testing.T) {
	for typ, want := range map[OrderType]bool{Market: false, Limit: true, Stop: true, FOK: false, IOC: false} {
		if got := typ.RequiresPrice(); got != want {
			t.Errorf("%s RequiresPrice() = %v, want %v", typ, got, want)
		}
	}
}

func TestOrderJSONUsesNames(t *testing.T) {
	o := Order{ClientOrderID: "a", ProductID: "BTC", Type: Stop, Direction: CloseShort, Volume: 1, Price: PriceOf(10)}
	data, err := json.Marshal(o)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	var raw map[string]interface{}
	json.Unmarshal(data, &raw)
	if raw["type"] != "stop" || raw["direction"] != "close_short" || raw["status"] != "accepted" {
		t.Errorf("json = %s", data)
	}

	if _, err := json.Marshal(Order{Direction: OrderDirection(9)}); err == nil {
		t.Error("expected error marshaling unknown direction")
	}
}

func TestOrderJSONAcceptsCodes(t *testing.T) {
	tests := []struct {
		in      string
		typ     OrderType
		dir     OrderDirection
		wantErr bool
	}{
		{in: `{"type":1,"direction":3}`, typ: Limit, dir: CloseShort},
		{in: `{"type":0,"direction":0}`, typ: Market, dir: OpenLong},
		{in: `{"type":4,"direction":"open_short"}`, typ: IOC, dir: OpenShort},
		{in: `{"type":"stop","direction":1}`, typ: Stop, dir: CloseLong},
		{in: `{"type":9,"direction":0}`, wantErr: true},
		{in: `{"type":0,"direction":4}`, wantErr: true},
		{in: `{"type":-1,"direction":0}`, wantErr: true},
	}
	for _, tt := range tests {
		var o Order
		err := json.Unmarshal([]byte(tt.in), &o)
		if (err != nil) != tt.wantErr {
			t.Errorf("Unmarshal(%s) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if tt.wantErr {
			continue
		}
		if o.Type != tt.typ || o.Direction != tt.dir {
			t.Errorf("Unmarshal(%s) = %v/%v, want %v/%v", tt.in, o.Type, o.Direction, tt.typ, tt.dir)
		}
	}
}

func TestOrderClone(t *testing.T) {
	o := Order{ClientOrderID: "a", Price: PriceOf(1), TakeProfitPrice: PriceOf(2)}
	c := o.Clone()
	*c.Price = 5
	*c.TakeProfitPrice = 6
	if *o.Price != 1 || *o.TakeProfitPrice != 2 {
		t.Errorf("Clone() shares pointers: price %v tp %v", *o.Price, *o.TakeProfitPrice)
	}
	if c.StopLossPrice != nil {
		t.Error("nil pointer should stay nil")
	}
}

func TestPeriodKey(t *testing.T) {
	p := Period{DatasourceID: "ds", ProductID: "BTC", PeriodInSec: 60, TimestampInUs: 5}
	q := p
	q.TimestampInUs = 6
	if p.Key() != q.Key() {
		t.Error("bars of one series should share a key")
	}
}
