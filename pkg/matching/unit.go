package matching

import (
	"go.uber.org/zap"

	"github.com/uhyunpark/matchsim/pkg/history"
	"github.com/uhyunpark/matchsim/pkg/model"
	"github.com/uhyunpark/matchsim/pkg/util"
)

// DefaultQuoteFallback is the price both sides collapse to on reset when a
// product has no quote. It is not a neutral value for arbitrary instruments.
const DefaultQuoteFallback = 1.0

// Scheduler is the simulation clock plus the ability to request another event
type Scheduler interface {
	Now() int64 // milliseconds
	Alloc(tsMs int64) uint64
}

// PeriodSource delivers bar updates
type PeriodSource interface {
	Subscribe(fn func(model.Period)) (unsubscribe func())
}

// QuoteSource exposes the latest ask/bid per product
type QuoteSource interface {
	Quote(productID string) (model.Quote, bool)
}

// Unit is the matching cycle driver. It is a kernel unit: OnInit subscribes
// the range tracker to bars, OnEvent runs one matching pass, OnDispose
// releases the subscription.
type Unit struct {
	Book   *Book
	Ranges *RangeTracker

	sched    Scheduler
	periods  PeriodSource
	quotes   QuoteSource
	sink     history.Sink
	fallback float64
	log      *zap.SugaredLogger

	unsubs []func()
	fills  uint64
}

type UnitOption func(*Unit)

func WithLogger(l *zap.SugaredLogger) UnitOption {
	return func(u *Unit) { u.log = l }
}

func WithQuoteFallback(price float64) UnitOption {
	return func(u *Unit) { u.fallback = price }
}

func WithBook(b *Book) UnitOption {
	return func(u *Unit) { u.Book = b }
}

// NewUnit wires the driver. quotes and sink may be nil.
func NewUnit(sched Scheduler, periods PeriodSource, quotes QuoteSource, sink history.Sink, opts ...UnitOption) *Unit {
	if sink == nil {
		sink = history.Discard
	}
	u := &Unit{
		Ranges:   NewRangeTracker(),
		sched:    sched,
		periods:  periods,
		quotes:   quotes,
		sink:     sink,
		fallback: DefaultQuoteFallback,
		log:      util.Nop(),
	}
	for _, opt := range opts {
		opt(u)
	}
	if u.Book == nil {
		u.Book = NewBook()
	}
	return u
}

func (u *Unit) OnInit() error {
	if u.periods != nil {
		u.unsubs = append(u.unsubs, u.periods.Subscribe(u.Ranges.Observe))
	}
	return nil
}

func (u *Unit) OnEvent() error {
	u.Match()
	return nil
}

func (u *Unit) OnDispose() error {
	for _, unsub := range u.unsubs {
		unsub()
	}
	u.unsubs = nil
	return nil
}

// Fills returns the number of orders filled since construction
func (u *Unit) Fills() uint64 { return u.fills }

// Match runs one pass and returns how many orders filled.
//
// Orders are visited in the book's insertion order as snapshotted at pass
// start. Ranges stay untouched until every order was evaluated, so fills
// never influence siblings in the same pass.
func (u *Unit) Match() int {
	now := u.sched.Now()
	filled := 0

	for _, id := range u.Book.ids() {
		o, ok := u.Book.orders[id]
		if !ok {
			continue // removed by a side effect earlier in this pass
		}
		r, ok := u.Ranges.Range(o.ProductID)
		if !ok {
			continue
		}
		price, ok := TradedPrice(o, r)
		if !ok {
			continue
		}

		traded := o.Clone()
		traded.TimestampInUs = now * 1000
		traded.TradedPrice = price
		traded.TradedVolume = o.Volume
		traded.Status = model.Traded

		u.Book.remove(id)
		filled++

		u.log.Infow("order_filled",
			"product_id", traded.ProductID,
			"direction", traded.Direction.String(),
			"traded_price", traded.TradedPrice,
			"traded_volume", traded.TradedVolume,
			"client_order_id", traded.ClientOrderID,
			"position_id", traded.PositionID,
			"account_id", traded.AccountID,
			"order_type", traded.Type.String(),
			"range", r,
		)
		if err := u.sink.RecordFilled(traded); err != nil {
			u.log.Errorw("history_record_failed", "client_order_id", traded.ClientOrderID, "err", err)
		}
	}

	for _, productID := range u.Ranges.Products() {
		ask, bid := u.fallback, u.fallback
		if u.quotes != nil {
			if q, ok := u.quotes.Quote(productID); ok {
				ask, bid = q.Ask, q.Bid
			}
		}
		u.Ranges.Reset(productID, ask, bid)
	}

	if filled > 0 {
		u.fills += uint64(filled)
		id := u.sched.Alloc(now)
		u.log.Infow("recompute_requested", "event_id", id, "sim_time_ms", now, "fills", filled)
	}
	return filled
}
