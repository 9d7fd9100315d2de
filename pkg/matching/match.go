package matching

import "github.com/uhyunpark/matchsim/pkg/model"

// TradedPrice decides the fill price of o against r.
// The second return is false when the order does not fill this pass.
func TradedPrice(o *model.Order, r Range) (float64, bool) {
	price := o.PriceOrZero()
	buy := o.Direction.IsBuy()

	switch o.Type {
	case model.Market:
		if buy {
			return r.Ask.First, true
		}
		return r.Bid.First, true

	case model.Limit:
		if o.Price == nil {
			return 0, false
		}
		if buy {
			if price > r.Ask.First {
				return r.Ask.First, true
			}
			if price > r.Ask.Low {
				return price, true
			}
		} else {
			if price < r.Bid.First {
				return r.Bid.First, true
			}
			if price < r.Bid.High {
				return price, true
			}
		}

	case model.Stop:
		if o.Price == nil {
			return 0, false
		}
		if buy {
			if price < r.Ask.First {
				return r.Ask.First, true
			}
			if price < r.Ask.High {
				return price, true
			}
		} else {
			if price > r.Bid.First {
				return r.Bid.First, true
			}
			if price > r.Bid.Low {
				return price, true
			}
		}
	}
	return 0, false
}
