// Package scenario loads backtest inputs from YAML and replays them through
// the kernel.
package scenario

import (
	"fmt"
	"os"
	"sort"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/uhyunpark/matchsim/pkg/market"
	"github.com/uhyunpark/matchsim/pkg/model"
)

// Bar is a bar delivered at AtMs. AtMs defaults to the bar start time.
type Bar struct {
	AtMs         int64 `yaml:"at_ms"`
	model.Period `yaml:",inline"`

	// set when the key is present, so an explicit 0 is kept
	atSet, spreadSet bool
}

func (b *Bar) UnmarshalYAML(node *yaml.Node) error {
	type plain Bar
	var p plain
	if err := node.Decode(&p); err != nil {
		return err
	}
	*b = Bar(p)
	if node.Kind == yaml.MappingNode {
		for i := 0; i+1 < len(node.Content); i += 2 {
			switch node.Content[i].Value {
			case "at_ms":
				b.atSet = true
			case "spread":
				b.spreadSet = true
			}
		}
	}
	return nil
}

type QuoteUpdate struct {
	AtMs        int64 `yaml:"at_ms"`
	model.Quote `yaml:",inline"`
}

// OrderEntry is an order submitted at AtMs
type OrderEntry struct {
	AtMs        int64 `yaml:"at_ms"`
	model.Order `yaml:",inline"`
}

type CancelEntry struct {
	AtMs int64    `yaml:"at_ms"`
	IDs  []string `yaml:"ids"`
}

type Scenario struct {
	Name     string           `yaml:"name"`
	StartMs  int64            `yaml:"start_ms"`
	Products []market.Product `yaml:"products"`
	Bars     []Bar            `yaml:"bars"`
	Quotes   []QuoteUpdate    `yaml:"quotes"`
	Orders   []OrderEntry     `yaml:"orders"`
	Cancels  []CancelEntry    `yaml:"cancels"`
}

// Load reads and normalizes a scenario file
func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return Parse(data)
}

// Parse decodes a scenario, fills defaults and sorts every stream by
// delivery time. Entries sharing a time keep their file order.
func Parse(data []byte) (*Scenario, error) {
	sc := &Scenario{}
	if err := yaml.Unmarshal(data, sc); err != nil {
		return nil, fmt.Errorf("failed to parse scenario file: %w", err)
	}
	if err := sc.normalize(); err != nil {
		return nil, fmt.Errorf("scenario validation failed: %w", err)
	}
	return sc, nil
}

func (sc *Scenario) normalize() error {
	spreads := make(map[string]float64, len(sc.Products))
	for _, p := range sc.Products {
		spreads[p.ID] = p.Spread
	}

	for i := range sc.Bars {
		b := &sc.Bars[i]
		if b.ProductID == "" {
			return fmt.Errorf("bars[%d]: product_id is required", i)
		}
		if b.Low > b.High {
			return fmt.Errorf("bars[%d]: low %v above high %v", i, b.Low, b.High)
		}
		if b.Spread < 0 {
			return fmt.Errorf("bars[%d]: spread cannot be negative", i)
		}
		// bars without a spread key use the product default
		if !b.spreadSet {
			b.Spread = spreads[b.ProductID]
		}
		if !b.atSet {
			b.AtMs = b.TimestampInUs / 1000
		}
	}
	for i := range sc.Quotes {
		if sc.Quotes[i].ProductID == "" {
			return fmt.Errorf("quotes[%d]: product_id is required", i)
		}
	}
	for i := range sc.Orders {
		if sc.Orders[i].ClientOrderID == "" {
			sc.Orders[i].ClientOrderID = uuid.NewString()
		}
	}

	sort.SliceStable(sc.Bars, func(i, j int) bool { return sc.Bars[i].AtMs < sc.Bars[j].AtMs })
	sort.SliceStable(sc.Quotes, func(i, j int) bool { return sc.Quotes[i].AtMs < sc.Quotes[j].AtMs })
	sort.SliceStable(sc.Orders, func(i, j int) bool { return sc.Orders[i].AtMs < sc.Orders[j].AtMs })
	sort.SliceStable(sc.Cancels, func(i, j int) bool { return sc.Cancels[i].AtMs < sc.Cancels[j].AtMs })
	return nil
}

// Times returns every distinct delivery time in ascending order
func (sc *Scenario) Times() []int64 {
	seen := make(map[int64]struct{})
	var out []int64
	add := func(t int64) {
		if _, ok := seen[t]; !ok {
			seen[t] = struct{}{}
			out = append(out, t)
		}
	}
	for _, b := range sc.Bars {
		add(b.AtMs)
	}
	for _, q := range sc.Quotes {
		add(q.AtMs)
	}
	for _, o := range sc.Orders {
		add(o.AtMs)
	}
	for _, c := range sc.Cancels {
		add(c.AtMs)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
