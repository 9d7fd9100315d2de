package matching

import (
	"errors"
	"fmt"

	"github.com/uhyunpark/matchsim/pkg/model"
)

type observers[T any] struct {
	next int
	fns  []observer[T]
}

type observer[T any] struct {
	id int
	fn func(T)
}

func (o *observers[T]) add(fn func(T)) func() {
	o.next++
	id := o.next
	o.fns = append(o.fns, observer[T]{id: id, fn: fn})
	return func() {
		for i, ob := range o.fns {
			if ob.id == id {
				o.fns = append(o.fns[:i:i], o.fns[i+1:]...)
				return
			}
		}
	}
}

func (o *observers[T]) emit(v T) {
	// copy so an observer may unsubscribe while being notified
	fns := append([]observer[T](nil), o.fns...)
	for _, ob := range fns {
		ob.fn(v)
	}
}

// Book is the set of pending orders keyed by client order id.
// Iteration follows first-insertion order; resubmitting an id replaces the
// order in place.
type Book struct {
	orders    map[string]*model.Order
	seq       []string       // insertion order; removed ids leave stale slots
	slot      map[string]int // live position of each pending id in seq
	validator OrderValidator

	submitted observers[[]model.Order]
	cancelled observers[[]string]
}

type BookOption func(*Book)

// WithValidator adds a metadata check on top of Validate
func WithValidator(v OrderValidator) BookOption {
	return func(b *Book) { b.validator = v }
}

func NewBook(opts ...BookOption) *Book {
	b := &Book{
		orders: make(map[string]*model.Order),
		slot:   make(map[string]int),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// OnSubmitted registers an observer for accepted submission batches
func (b *Book) OnSubmitted(fn func([]model.Order)) (unsubscribe func()) {
	return b.submitted.add(fn)
}

// OnCancelled registers an observer for cancellation batches
func (b *Book) OnCancelled(fn func([]string)) (unsubscribe func()) {
	return b.cancelled.add(fn)
}

// Submit inserts or replaces pending orders. The batch is all-or-nothing:
// if any order is invalid nothing is inserted, no notification is emitted
// and the joined validation errors are returned.
func (b *Book) Submit(orders ...model.Order) error {
	var errs []error
	for i := range orders {
		if err := Validate(&orders[i]); err != nil {
			errs = append(errs, err)
			continue
		}
		if b.validator != nil {
			if err := b.validator.ValidateOrder(&orders[i]); err != nil {
				errs = append(errs, fmt.Errorf("order %q: %w", orders[i].ClientOrderID, err))
			}
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("submit rejected: %w", errors.Join(errs...))
	}

	batch := make([]model.Order, len(orders))
	for i, o := range orders {
		o = o.Clone()
		o.Status = model.Accepted
		o.TradedPrice, o.TradedVolume, o.TimestampInUs = 0, 0, 0
		if _, exists := b.orders[o.ClientOrderID]; !exists {
			b.slot[o.ClientOrderID] = len(b.seq)
			b.seq = append(b.seq, o.ClientOrderID)
		}
		stored := o
		b.orders[o.ClientOrderID] = &stored
		batch[i] = o.Clone()
	}
	b.submitted.emit(batch)
	return nil
}

// Cancel removes pending orders. Unknown ids are ignored, but the
// notification always carries exactly the requested ids.
func (b *Book) Cancel(ids ...string) {
	for _, id := range ids {
		b.remove(id)
	}
	b.cancelled.emit(append([]string(nil), ids...))
}

// Get returns a copy of a pending order
func (b *Book) Get(id string) (model.Order, bool) {
	o, ok := b.orders[id]
	if !ok {
		return model.Order{}, false
	}
	return o.Clone(), true
}

// List returns copies of all pending orders in insertion order
func (b *Book) List() []model.Order {
	out := make([]model.Order, 0, len(b.orders))
	for i, id := range b.seq {
		if b.live(i, id) {
			out = append(out, b.orders[id].Clone())
		}
	}
	return out
}

func (b *Book) Len() int { return len(b.orders) }

// ids snapshots the iteration order for a matching pass
func (b *Book) ids() []string {
	out := make([]string, 0, len(b.orders))
	for i, id := range b.seq {
		if b.live(i, id) {
			out = append(out, id)
		}
	}
	return out
}

func (b *Book) live(i int, id string) bool {
	j, ok := b.slot[id]
	return ok && j == i
}

// remove is O(1) amortized: the slot is left stale and seq is compacted
// once stale slots outnumber live ones.
func (b *Book) remove(id string) bool {
	if _, ok := b.orders[id]; !ok {
		return false
	}
	delete(b.orders, id)
	delete(b.slot, id)
	if len(b.seq) > 2*len(b.orders) {
		b.compact()
	}
	return true
}

func (b *Book) compact() {
	kept := b.seq[:0]
	for i, id := range b.seq {
		if b.live(i, id) {
			b.slot[id] = len(kept)
			kept = append(kept, id)
		}
	}
	clear(b.seq[len(kept):])
	b.seq = kept
}
