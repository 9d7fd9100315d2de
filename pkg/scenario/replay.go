package scenario

import (
	"go.uber.org/zap"

	"github.com/uhyunpark/matchsim/pkg/model"
	"github.com/uhyunpark/matchsim/pkg/util"
)

type Scheduler interface {
	Now() int64
	Alloc(tsMs int64) uint64
}

type PeriodPublisher interface {
	Publish(p model.Period)
}

type QuoteUpdater interface {
	Update(q model.Quote)
}

// OrderPlacer is where scenario orders and cancels go
type OrderPlacer interface {
	Submit(orders ...model.Order) error
	Cancel(ids ...string)
}

// Replay is a kernel unit feeding a scenario into the simulation. Register
// it before the matching unit so inputs due at a time land before that
// time's matching pass.
type Replay struct {
	sc     *Scenario
	sched  Scheduler
	feed   PeriodPublisher
	quotes QuoteUpdater
	placer OrderPlacer
	log    *zap.SugaredLogger

	nextBar, nextQuote, nextOrder, nextCancel int

	submitted int
	rejected  int
}

func NewReplay(sc *Scenario, sched Scheduler, feed PeriodPublisher, quotes QuoteUpdater, placer OrderPlacer, log *zap.SugaredLogger) *Replay {
	if log == nil {
		log = util.Nop()
	}
	return &Replay{sc: sc, sched: sched, feed: feed, quotes: quotes, placer: placer, log: log}
}

func (r *Replay) OnInit() error {
	times := r.sc.Times()
	for _, t := range times {
		r.sched.Alloc(t)
	}
	r.log.Infow("scenario_loaded",
		"name", r.sc.Name,
		"bars", len(r.sc.Bars),
		"quotes", len(r.sc.Quotes),
		"orders", len(r.sc.Orders),
		"cancels", len(r.sc.Cancels),
		"events", len(times))
	return nil
}

// OnEvent delivers everything due at or before Now exactly once:
// bars, then quotes, then cancels, then submissions
func (r *Replay) OnEvent() error {
	now := r.sched.Now()

	for ; r.nextBar < len(r.sc.Bars) && r.sc.Bars[r.nextBar].AtMs <= now; r.nextBar++ {
		r.feed.Publish(r.sc.Bars[r.nextBar].Period)
	}
	for ; r.nextQuote < len(r.sc.Quotes) && r.sc.Quotes[r.nextQuote].AtMs <= now; r.nextQuote++ {
		if r.quotes != nil {
			r.quotes.Update(r.sc.Quotes[r.nextQuote].Quote)
		}
	}
	for ; r.nextCancel < len(r.sc.Cancels) && r.sc.Cancels[r.nextCancel].AtMs <= now; r.nextCancel++ {
		r.placer.Cancel(r.sc.Cancels[r.nextCancel].IDs...)
	}
	for ; r.nextOrder < len(r.sc.Orders) && r.sc.Orders[r.nextOrder].AtMs <= now; r.nextOrder++ {
		o := r.sc.Orders[r.nextOrder].Order
		if err := r.placer.Submit(o); err != nil {
			r.rejected++
			r.log.Warnw("order_rejected", "client_order_id", o.ClientOrderID, "sim_time_ms", now, "err", err)
			continue
		}
		r.submitted++
	}
	return nil
}

func (r *Replay) OnDispose() error {
	r.log.Infow("scenario_finished", "submitted", r.submitted, "rejected", r.rejected, "done", r.Done())
	return nil
}

// Done reports whether every scenario input was delivered
func (r *Replay) Done() bool {
	return r.nextBar == len(r.sc.Bars) &&
		r.nextQuote == len(r.sc.Quotes) &&
		r.nextOrder == len(r.sc.Orders) &&
		r.nextCancel == len(r.sc.Cancels)
}

func (r *Replay) Submitted() int { return r.submitted }
func (r *Replay) Rejected() int  { return r.rejected }
