package matching

import (
	"errors"
	"fmt"
	"reflect"
	"testing"

	"github.com/uhyunpark/matchsim/pkg/model"
)

func limitOrder(id, product string, dir model.OrderDirection, price float64) model.Order {
	return model.Order{
		ClientOrderID: id,
		ProductID:     product,
		Type:          model.Limit,
		Direction:     dir,
		Volume:        1,
		Price:         model.PriceOf(price),
	}
}

func marketOrder(id, product string, dir model.OrderDirection) model.Order {
	return model.Order{ClientOrderID: id, ProductID: product, Type: model.Market, Direction: dir, Volume: 1}
}

func bookIDs(b *Book) []string {
	var ids []string
	for _, o := range b.List() {
		ids = append(ids, o.ClientOrderID)
	}
	return ids
}

func TestBookSubmitAndList(t *testing.T) {
	b := NewBook()
	if err := b.Submit(limitOrder("a", "BTC", model.OpenLong, 100), marketOrder("b", "BTC", model.CloseLong)); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if err := b.Submit(marketOrder("c", "ETH", model.OpenShort)); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	if got, want := bookIDs(b), []string{"a", "b", "c"}; !reflect.DeepEqual(got, want) {
		t.Errorf("List() ids = %v, want %v", got, want)
	}
	if b.Len() != 3 {
		t.Errorf("Len() = %d, want 3", b.Len())
	}
	o, ok := b.Get("a")
	if !ok {
		t.Fatal("expected order a")
	}
	if o.Status != model.Accepted {
		t.Errorf("status = %v, want %v", o.Status, model.Accepted)
	}
}

func TestBookResubmitKeepsPosition(t *testing.T) {
	b := NewBook()
	b.Submit(limitOrder("a", "BTC", model.OpenLong, 100), limitOrder("b", "BTC", model.OpenLong, 101))
	b.Submit(limitOrder("a", "BTC", model.OpenLong, 99))

	if got, want := bookIDs(b), []string{"a", "b"}; !reflect.DeepEqual(got, want) {
		t.Errorf("List() ids = %v, want %v", got, want)
	}
	o, _ := b.Get("a")
	if o.PriceOrZero() != 99 {
		t.Errorf("price = %v, want 99", o.PriceOrZero())
	}
}

func TestBookOrderSurvivesRemovals(t *testing.T) {
	b := NewBook()
	var want []string
	for i := 0; i < 100; i++ {
		id := fmt.Sprintf("o%03d", i)
		b.Submit(limitOrder(id, "BTC", model.OpenLong, 100))
		if i%3 != 0 {
			want = append(want, id)
		}
	}
	for i := 0; i < 100; i += 3 {
		b.Cancel(fmt.Sprintf("o%03d", i))
	}
	if got := bookIDs(b); !reflect.DeepEqual(got, want) {
		t.Fatalf("List() ids = %v, want %v", got, want)
	}
	if b.Len() != len(want) {
		t.Errorf("Len() = %d, want %d", b.Len(), len(want))
	}

	// a removed id comes back at the end, exactly once
	b.Submit(limitOrder("o000", "BTC", model.OpenLong, 100))
	b.Submit(limitOrder("o000", "BTC", model.OpenLong, 101))
	want = append(want, "o000")
	if got := bookIDs(b); !reflect.DeepEqual(got, want) {
		t.Errorf("List() ids = %v, want %v", got, want)
	}
	if got := b.ids(); !reflect.DeepEqual(got, want) {
		t.Errorf("ids() = %v, want %v", got, want)
	}

	b.Cancel(want...)
	if b.Len() != 0 || len(b.List()) != 0 {
		t.Errorf("Len() = %d, List() = %v, want empty", b.Len(), b.List())
	}
	b.Submit(limitOrder("x", "BTC", model.OpenLong, 100))
	if got := bookIDs(b); !reflect.DeepEqual(got, []string{"x"}) {
		t.Errorf("List() ids = %v, want [x]", got)
	}
}

func TestBookStoresCopies(t *testing.T) {
	b := NewBook()
	o := limitOrder("a", "BTC", model.OpenLong, 100)
	b.Submit(o)
	*o.Price = 1

	got, _ := b.Get("a")
	if got.PriceOrZero() != 100 {
		t.Errorf("stored price = %v, want 100", got.PriceOrZero())
	}
	*got.Price = 2
	again, _ := b.Get("a")
	if again.PriceOrZero() != 100 {
		t.Errorf("Get() leaked internal state: price = %v", again.PriceOrZero())
	}
}

func TestBookSubmitRejectsWholeBatch(t *testing.T) {
	b := NewBook()
	var notified int
	b.OnSubmitted(func([]model.Order) { notified++ })

	bad := limitOrder("bad", "BTC", model.OpenLong, 0)
	bad.Price = nil
	err := b.Submit(marketOrder("ok", "BTC", model.OpenLong), bad)
	if !errors.Is(err, ErrMissingPrice) {
		t.Fatalf("Submit() error = %v, want %v", err, ErrMissingPrice)
	}
	if b.Len() != 0 {
		t.Errorf("Len() = %d, want 0", b.Len())
	}
	if notified != 0 {
		t.Errorf("notified %d times, want 0", notified)
	}
}

func TestBookNotifications(t *testing.T) {
	b := NewBook()
	var submitted [][]model.Order
	var cancelled [][]string
	unsubSubmit := b.OnSubmitted(func(o []model.Order) { submitted = append(submitted, o) })
	b.OnCancelled(func(ids []string) { cancelled = append(cancelled, ids) })

	b.Submit(marketOrder("a", "BTC", model.OpenLong), marketOrder("b", "BTC", model.OpenLong))
	b.Cancel("a", "missing")

	if len(submitted) != 1 || len(submitted[0]) != 2 {
		t.Fatalf("submitted notifications = %v, want one batch of 2", submitted)
	}
	if submitted[0][0].ClientOrderID != "a" || submitted[0][1].ClientOrderID != "b" {
		t.Errorf("batch order = %v", submitted[0])
	}
	if len(cancelled) != 1 || !reflect.DeepEqual(cancelled[0], []string{"a", "missing"}) {
		t.Errorf("cancelled notifications = %v, want [[a missing]]", cancelled)
	}
	if got, want := bookIDs(b), []string{"b"}; !reflect.DeepEqual(got, want) {
		t.Errorf("List() ids = %v, want %v", got, want)
	}

	unsubSubmit()
	b.Submit(marketOrder("c", "BTC", model.OpenLong))
	if len(submitted) != 1 {
		t.Errorf("notified after unsubscribe: %d batches", len(submitted))
	}
}

func TestBookCancelEmpty(t *testing.T) {
	b := NewBook()
	var got []string
	called := false
	b.OnCancelled(func(ids []string) { called, got = true, ids })
	b.Cancel()
	if !called || len(got) != 0 {
		t.Errorf("Cancel() notified = %v with %v, want empty notification", called, got)
	}
}

type rejectProduct string

func (r rejectProduct) ValidateOrder(o *model.Order) error {
	if o.ProductID == string(r) {
		return errors.New("product halted")
	}
	return nil
}

func TestBookWithValidator(t *testing.T) {
	b := NewBook(WithValidator(rejectProduct("DOGE")))
	if err := b.Submit(marketOrder("a", "BTC", model.OpenLong)); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if err := b.Submit(marketOrder("b", "DOGE", model.OpenLong)); err == nil {
		t.Fatal("expected validator rejection")
	}
	if b.Len() != 1 {
		t.Errorf("Len() = %d, want 1", b.Len())
	}
}
