package market

import "github.com/uhyunpark/matchsim/pkg/model"

// QuoteCache holds the latest quote per product
type QuoteCache struct {
	quotes map[string]model.Quote
}

func NewQuoteCache() *QuoteCache {
	return &QuoteCache{quotes: make(map[string]model.Quote)}
}

func (c *QuoteCache) Quote(productID string) (model.Quote, bool) {
	q, ok := c.quotes[productID]
	return q, ok
}

func (c *QuoteCache) Update(q model.Quote) {
	c.quotes[q.ProductID] = q
}

// ObservePeriod derives a quote from a bar: bid at close, ask at close plus spread
func (c *QuoteCache) ObservePeriod(p model.Period) {
	c.Update(model.Quote{ProductID: p.ProductID, Bid: p.Close, Ask: p.Close + p.Spread})
}
