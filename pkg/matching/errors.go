package matching

import (
	"errors"
	"fmt"
	"math"

	"github.com/uhyunpark/matchsim/pkg/model"
)

var (
	ErrEmptyOrderID         = errors.New("client order id is empty")
	ErrEmptyProductID       = errors.New("product id is empty")
	ErrUnsupportedOrderType = errors.New("order type is not supported by the simulator")
	ErrUnknownDirection     = errors.New("unknown order direction")
	ErrInvalidVolume        = errors.New("volume must be a positive finite number")
	ErrMissingPrice         = errors.New("limit and stop orders require a price")
	ErrInvalidPrice         = errors.New("price must be finite")
)

// OrderValidator checks an order against external metadata (price/volume steps)
type OrderValidator interface {
	ValidateOrder(o *model.Order) error
}

// Validate rejects orders the matching pass cannot evaluate
func Validate(o *model.Order) error {
	if o.ClientOrderID == "" {
		return ErrEmptyOrderID
	}
	wrap := func(err error) error { return fmt.Errorf("order %q: %w", o.ClientOrderID, err) }

	if o.ProductID == "" {
		return wrap(ErrEmptyProductID)
	}
	switch o.Type {
	case model.Market, model.Limit, model.Stop:
	default:
		return wrap(fmt.Errorf("%w: %s", ErrUnsupportedOrderType, o.Type))
	}
	if !o.Direction.Valid() {
		return wrap(ErrUnknownDirection)
	}
	if !(o.Volume > 0) || math.IsInf(o.Volume, 0) {
		return wrap(ErrInvalidVolume)
	}
	if o.Type.RequiresPrice() {
		if o.Price == nil {
			return wrap(ErrMissingPrice)
		}
		if math.IsNaN(*o.Price) || math.IsInf(*o.Price, 0) {
			return wrap(ErrInvalidPrice)
		}
	}
	return nil
}
