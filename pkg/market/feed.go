package market

import (
	"github.com/uhyunpark/matchsim/pkg/model"
)

type subscriber struct {
	id int
	fn func(model.Period)
}

// PeriodFeed fans bar updates out to subscribers synchronously, in
// subscription order
type PeriodFeed struct {
	next   int
	subs   []subscriber
	latest map[model.PeriodKey]model.Period
}

func NewPeriodFeed() *PeriodFeed {
	return &PeriodFeed{latest: make(map[model.PeriodKey]model.Period)}
}

func (f *PeriodFeed) Subscribe(fn func(model.Period)) (unsubscribe func()) {
	f.next++
	id := f.next
	f.subs = append(f.subs, subscriber{id: id, fn: fn})
	return func() {
		for i, s := range f.subs {
			if s.id == id {
				f.subs = append(f.subs[:i:i], f.subs[i+1:]...)
				return
			}
		}
	}
}

func (f *PeriodFeed) Publish(p model.Period) {
	f.latest[p.Key()] = p
	subs := f.subs
	for _, s := range subs {
		s.fn(p)
	}
}

// Latest returns the most recent bar published for key
func (f *PeriodFeed) Latest(key model.PeriodKey) (model.Period, bool) {
	p, ok := f.latest[key]
	return p, ok
}

// Subscribers returns the number of live subscriptions
func (f *PeriodFeed) Subscribers() int { return len(f.subs) }
