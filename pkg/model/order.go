package model

import (
	"fmt"
	"strconv"
	"strings"
)

// enumCode parses the numeric wire form of an enum ("0".."hi")
func enumCode(s string, hi int) (int, bool) {
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 || n > hi {
		return 0, false
	}
	return n, true
}

// jsonEnumText turns a JSON string or number literal into enum text.
// ok is false for null, which leaves the value untouched.
func jsonEnumText(b []byte) (text []byte, ok bool) {
	s := string(b)
	if s == "null" {
		return nil, false
	}
	if unq, err := strconv.Unquote(s); err == nil {
		s = unq
	}
	return []byte(s), true
}

// OrderType defines how an order is priced
type OrderType int8

const (
	Market OrderType = iota // fills at the reference price
	Limit                   // fills at the limit price or better
	Stop                    // fires once the adverse side reaches the trigger
	FOK                     // fill-or-kill, not matched by the simulator
	IOC                     // immediate-or-cancel, not matched by the simulator
)

func (t OrderType) String() string {
	switch t {
	case Market:
		return "market"
	case Limit:
		return "limit"
	case Stop:
		return "stop"
	case FOK:
		return "fok"
	case IOC:
		return "ioc"
	default:
		return "unknown"
	}
}

// RequiresPrice reports whether the type needs a limit/trigger price
func (t OrderType) RequiresPrice() bool {
	return t == Limit || t == Stop
}

func (t OrderType) MarshalText() ([]byte, error) {
	if t < Market || t > IOC {
		return nil, fmt.Errorf("unknown order type %d", t)
	}
	return []byte(t.String()), nil
}

// UnmarshalText accepts the name ("limit") or the numeric code ("1")
func (t *OrderType) UnmarshalText(b []byte) error {
	if n, ok := enumCode(string(b), int(IOC)); ok {
		*t = OrderType(n)
		return nil
	}
	switch strings.ToLower(string(b)) {
	case "market":
		*t = Market
	case "limit":
		*t = Limit
	case "stop":
		*t = Stop
	case "fok":
		*t = FOK
	case "ioc":
		*t = IOC
	default:
		return fmt.Errorf("unknown order type %q", string(b))
	}
	return nil
}

func (t *OrderType) UnmarshalJSON(b []byte) error {
	text, ok := jsonEnumText(b)
	if !ok {
		return nil
	}
	return t.UnmarshalText(text)
}

// OrderDirection defines which position an order opens or closes
type OrderDirection int8

const (
	OpenLong OrderDirection = iota
	CloseLong
	OpenShort
	CloseShort
)

func (d OrderDirection) String() string {
	switch d {
	case OpenLong:
		return "open_long"
	case CloseLong:
		return "close_long"
	case OpenShort:
		return "open_short"
	case CloseShort:
		return "close_short"
	default:
		return "unknown"
	}
}

// Valid reports whether d is one of the four known directions
func (d OrderDirection) Valid() bool {
	return d >= OpenLong && d <= CloseShort
}

// IsBuy reports whether the order takes the ask side (open long / close short)
func (d OrderDirection) IsBuy() bool {
	return d == OpenLong || d == CloseShort
}

func (d OrderDirection) MarshalText() ([]byte, error) {
	if !d.Valid() {
		return nil, fmt.Errorf("unknown order direction %d", d)
	}
	return []byte(d.String()), nil
}

// UnmarshalText accepts the name ("open_long") or the numeric code ("0")
func (d *OrderDirection) UnmarshalText(b []byte) error {
	if n, ok := enumCode(string(b), int(CloseShort)); ok {
		*d = OrderDirection(n)
		return nil
	}
	switch strings.ToLower(string(b)) {
	case "open_long":
		*d = OpenLong
	case "close_long":
		*d = CloseLong
	case "open_short":
		*d = OpenShort
	case "close_short":
		*d = CloseShort
	default:
		return fmt.Errorf("unknown order direction %q", string(b))
	}
	return nil
}

func (d *OrderDirection) UnmarshalJSON(b []byte) error {
	text, ok := jsonEnumText(b)
	if !ok {
		return nil
	}
	return d.UnmarshalText(text)
}

// OrderStatus is the lifecycle state of an order
type OrderStatus int8

const (
	Accepted OrderStatus = iota // pending
	Traded                      // filled, terminal
	Cancelled                   // removed without fill, terminal
)

func (s OrderStatus) String() string {
	switch s {
	case Accepted:
		return "accepted"
	case Traded:
		return "traded"
	case Cancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

func (s OrderStatus) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *OrderStatus) UnmarshalText(b []byte) error {
	switch strings.ToLower(string(b)) {
	case "accepted", "":
		*s = Accepted
	case "traded":
		*s = Traded
	case "cancelled":
		*s = Cancelled
	default:
		return fmt.Errorf("unknown order status %q", string(b))
	}
	return nil
}

// Order is a trading instruction handed to the simulator by an order placer.
// TradedPrice, TradedVolume and TimestampInUs are only meaningful once Status is Traded.
type Order struct {
	ClientOrderID string         `json:"client_order_id" yaml:"client_order_id"`
	AccountID     string         `json:"account_id,omitempty" yaml:"account_id"`
	ProductID     string         `json:"product_id" yaml:"product_id"`
	PositionID    string         `json:"position_id,omitempty" yaml:"position_id"`
	Type          OrderType      `json:"type" yaml:"type"`
	Direction     OrderDirection `json:"direction" yaml:"direction"`
	Volume        float64        `json:"volume" yaml:"volume"`
	Price         *float64       `json:"price,omitempty" yaml:"price"`

	Status        OrderStatus `json:"status" yaml:"status"`
	TradedPrice   float64     `json:"traded_price,omitempty" yaml:"-"`
	TradedVolume  float64     `json:"traded_volume,omitempty" yaml:"-"`
	TimestampInUs int64       `json:"timestamp_in_us,omitempty" yaml:"-"`

	Comment         string   `json:"comment,omitempty" yaml:"comment"`
	TakeProfitPrice *float64 `json:"take_profit_price,omitempty" yaml:"take_profit_price"`
	StopLossPrice   *float64 `json:"stop_loss_price,omitempty" yaml:"stop_loss_price"`
}

// PriceOrZero returns the limit/trigger price, or 0 when absent
func (o *Order) PriceOrZero() float64 {
	if o.Price == nil {
		return 0
	}
	return *o.Price
}

// IsFilled returns true once the order has traded
func (o *Order) IsFilled() bool {
	return o.Status == Traded
}

// Clone returns a copy that shares no pointers with o
func (o Order) Clone() Order {
	o.Price = clonePrice(o.Price)
	o.TakeProfitPrice = clonePrice(o.TakeProfitPrice)
	o.StopLossPrice = clonePrice(o.StopLossPrice)
	return o
}

func clonePrice(p *float64) *float64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// PriceOf is a helper for building orders in code and tests
func PriceOf(v float64) *float64 { return &v }
