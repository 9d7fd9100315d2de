package matching

import (
	"math"
	"sort"

	"github.com/uhyunpark/matchsim/pkg/model"
)

// Band is the tradable price band for one side of a product.
// Low <= First <= High whenever it was derived from a bar.
type Band struct {
	First float64 `json:"first"`
	High  float64 `json:"high"`
	Low   float64 `json:"low"`
}

func (b Band) shift(d float64) Band {
	return Band{First: b.First + d, High: b.High + d, Low: b.Low + d}
}

func point(v float64) Band { return Band{First: v, High: v, Low: v} }

// Range holds both sides for a product. Ask is Bid shifted by the spread.
type Range struct {
	Ask Band `json:"ask"`
	Bid Band `json:"bid"`
}

// RangeTracker derives a conservative matchable range per product from bars.
// Not safe for concurrent use; the kernel serializes access.
type RangeTracker struct {
	ranges map[string]*Range
	prev   map[model.PeriodKey]model.Period
}

func NewRangeTracker() *RangeTracker {
	return &RangeTracker{
		ranges: make(map[string]*Range),
		prev:   make(map[model.PeriodKey]model.Period),
	}
}

// Observe folds a newly delivered bar into the range of its product.
//
// A bar with a new timestamp is taken at face value. A retransmission of the
// bar already seen (same key, same timestamp) only extends the range through
// the two closes, plus the new extreme when it strictly exceeds the previous one.
func (t *RangeTracker) Observe(p model.Period) {
	key := p.Key()
	var bid Band
	if prev, ok := t.prev[key]; ok && prev.TimestampInUs == p.TimestampInUs {
		high := math.Inf(-1)
		if p.High > prev.High {
			high = p.High
		}
		low := math.Inf(1)
		if p.Low < prev.Low {
			low = p.Low
		}
		bid = Band{
			First: prev.Close,
			High:  math.Max(math.Max(prev.Close, p.Close), high),
			Low:   math.Min(math.Min(prev.Close, p.Close), low),
		}
	} else {
		bid = Band{First: p.Open, High: p.High, Low: p.Low}
	}
	t.ranges[p.ProductID] = &Range{Ask: bid.shift(p.Spread), Bid: bid}
	t.prev[key] = p
}

// Reset collapses both sides of a product to single points
func (t *RangeTracker) Reset(productID string, ask, bid float64) {
	t.ranges[productID] = &Range{Ask: point(ask), Bid: point(bid)}
}

// Range returns a copy of the current range; false if no bar was ever observed
func (t *RangeTracker) Range(productID string) (Range, bool) {
	r, ok := t.ranges[productID]
	if !ok {
		return Range{}, false
	}
	return *r, true
}

// Products lists tracked products in sorted order
func (t *RangeTracker) Products() []string {
	out := make([]string, 0, len(t.ranges))
	for id := range t.ranges {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
