// Package history holds the sink that receives filled orders.
package history

import (
	"errors"
	"sync"

	"github.com/uhyunpark/matchsim/pkg/model"
)

var ErrNotFound = errors.New("order not found in history")

// Sink accepts one fully stamped filled order at a time
type Sink interface {
	RecordFilled(o model.Order) error
}

// Reader is implemented by sinks that can be queried back
type Reader interface {
	Get(clientOrderID string) (model.Order, error)
	// List returns up to limit orders, newest fill first. limit <= 0 means all.
	List(limit int) ([]model.Order, error)
}

type discard struct{}

func (discard) RecordFilled(model.Order) error { return nil }

// Discard drops every order
var Discard Sink = discard{}

// Tee forwards each order to every sink, even after one fails
type Tee []Sink

func (t Tee) RecordFilled(o model.Order) error {
	var errs []error
	for _, s := range t {
		if err := s.RecordFilled(o.Clone()); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Memory keeps filled orders in arrival order
type Memory struct {
	mu     sync.RWMutex
	orders []model.Order
	byID   map[string]int
}

func NewMemory() *Memory {
	return &Memory{byID: make(map[string]int)}
}

func (m *Memory) RecordFilled(o model.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byID[o.ClientOrderID] = len(m.orders)
	m.orders = append(m.orders, o.Clone())
	return nil
}

// Get returns the latest fill recorded under the id
func (m *Memory) Get(id string) (model.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	i, ok := m.byID[id]
	if !ok {
		return model.Order{}, ErrNotFound
	}
	return m.orders[i].Clone(), nil
}

func (m *Memory) List(limit int) ([]model.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := len(m.orders)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]model.Order, 0, n)
	for i := len(m.orders) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, m.orders[i].Clone())
	}
	return out, nil
}

// All returns every recorded order, oldest first
func (m *Memory) All() []model.Order {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]model.Order, len(m.orders))
	for i, o := range m.orders {
		out[i] = o.Clone()
	}
	return out
}

func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.orders)
}

var (
	_ Sink   = (*Memory)(nil)
	_ Reader = (*Memory)(nil)
	_ Sink   = Tee(nil)
)
