package market

import (
	"fmt"
	"sort"
	"sync"

	"github.com/uhyunpark/matchsim/pkg/model"
)

// ProductRegistry manages product metadata in a thread-safe manner
type ProductRegistry struct {
	mu       sync.RWMutex
	products map[string]*Product
}

func NewProductRegistry() *ProductRegistry {
	return &ProductRegistry{
		products: make(map[string]*Product),
	}
}

// Register adds a product. Returns error if the id is taken or params are invalid.
func (r *ProductRegistry) Register(p Product) error {
	if err := p.Validate(); err != nil {
		return fmt.Errorf("invalid product %q: %w", p.ID, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.products[p.ID]; exists {
		return fmt.Errorf("product %s already registered", p.ID)
	}
	r.products[p.ID] = &p
	return nil
}

func (r *ProductRegistry) Get(id string) (Product, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.products[id]
	if !ok {
		return Product{}, false
	}
	return *p, true
}

// List returns all products sorted by id
func (r *ProductRegistry) List() []Product {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Product, 0, len(r.products))
	for _, p := range r.products {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (r *ProductRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.products)
}

// ValidateOrder checks an order against its product's steps and limits.
// Orders for unregistered products pass: metadata is optional.
func (r *ProductRegistry) ValidateOrder(o *model.Order) error {
	p, ok := r.Get(o.ProductID)
	if !ok {
		return nil
	}
	if err := p.ValidateVolume(o.Volume); err != nil {
		return err
	}
	if o.Type.RequiresPrice() && o.Price != nil {
		if err := p.ValidatePrice(*o.Price); err != nil {
			return err
		}
	}
	return nil
}
