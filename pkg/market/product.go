package market

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Product is the static metadata of a tradable instrument.
// Zero steps and limits disable the corresponding check.
type Product struct {
	ID         string  `json:"product_id" yaml:"product_id"`
	Name       string  `json:"name,omitempty" yaml:"name"`
	PriceStep  float64 `json:"price_step,omitempty" yaml:"price_step"`
	VolumeStep float64 `json:"volume_step,omitempty" yaml:"volume_step"`
	MinVolume  float64 `json:"min_volume,omitempty" yaml:"min_volume"`
	MaxVolume  float64 `json:"max_volume,omitempty" yaml:"max_volume"`
	Spread     float64 `json:"spread,omitempty" yaml:"spread"`
}

// Validate checks product parameter sanity
func (p *Product) Validate() error {
	if p.ID == "" {
		return fmt.Errorf("product id cannot be empty")
	}
	if p.PriceStep < 0 {
		return fmt.Errorf("price step cannot be negative")
	}
	if p.VolumeStep < 0 {
		return fmt.Errorf("volume step cannot be negative")
	}
	if p.MinVolume < 0 || p.MaxVolume < 0 {
		return fmt.Errorf("volume limits cannot be negative")
	}
	if p.MaxVolume > 0 && p.MinVolume > p.MaxVolume {
		return fmt.Errorf("min volume cannot exceed max volume")
	}
	if p.Spread < 0 {
		return fmt.Errorf("spread cannot be negative")
	}
	return nil
}

// onStep reports whether v is an integer multiple of step. Decimal
// arithmetic keeps 0.3 a multiple of 0.1.
func onStep(v, step float64) bool {
	if step == 0 {
		return true
	}
	return decimal.NewFromFloat(v).Mod(decimal.NewFromFloat(step)).IsZero()
}

// ValidateVolume checks step and size limits
func (p *Product) ValidateVolume(volume float64) error {
	if !onStep(volume, p.VolumeStep) {
		return fmt.Errorf("volume %v is not a multiple of step %v", volume, p.VolumeStep)
	}
	if p.MinVolume > 0 && volume < p.MinVolume {
		return fmt.Errorf("volume %v below minimum %v", volume, p.MinVolume)
	}
	if p.MaxVolume > 0 && volume > p.MaxVolume {
		return fmt.Errorf("volume %v exceeds maximum %v", volume, p.MaxVolume)
	}
	return nil
}

// ValidatePrice checks the price step
func (p *Product) ValidatePrice(price float64) error {
	if !onStep(price, p.PriceStep) {
		return fmt.Errorf("price %v is not a multiple of step %v", price, p.PriceStep)
	}
	return nil
}
