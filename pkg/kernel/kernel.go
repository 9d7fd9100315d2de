package kernel

import (
	"container/heap"
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/uhyunpark/matchsim/pkg/util"
)

// Unit is a participant driven by the kernel. Every event wakes all units in
// registration order.
type Unit interface {
	OnInit() error
	OnEvent() error
	OnDispose() error
}

// Kernel is a single-threaded discrete-event scheduler. Simulation time only
// moves forward, and only when an event at a later timestamp is dequeued.
//
// Now and Alloc do not lock: call them from a unit callback or inside Do.
type Kernel struct {
	mu sync.Mutex

	queue     eventHeap
	nextID    uint64
	now       int64
	units     []Unit
	processed uint64

	stepDelay time.Duration
	idlePoll  time.Duration
	clock     util.Clock
	log       *zap.SugaredLogger
}

type Option func(*Kernel)

func WithLogger(l *zap.SugaredLogger) Option {
	return func(k *Kernel) { k.log = l }
}

// WithStepDelay paces the replay by waiting d of wall time after every event
func WithStepDelay(d time.Duration) Option {
	return func(k *Kernel) { k.stepDelay = d }
}

// WithHold keeps Run alive on an empty queue, checking for new events every
// poll until ctx is done
func WithHold(poll time.Duration) Option {
	return func(k *Kernel) { k.idlePoll = poll }
}

func WithClock(c util.Clock) Option {
	return func(k *Kernel) { k.clock = c }
}

// WithStartTime sets the initial simulation time in milliseconds
func WithStartTime(ms int64) Option {
	return func(k *Kernel) { k.now = ms }
}

func New(opts ...Option) *Kernel {
	k := &Kernel{
		clock: util.RealClock{},
		log:   util.Nop(),
	}
	heap.Init(&k.queue)
	for _, opt := range opts {
		opt(k)
	}
	return k
}

// AddUnit registers u. Units added after Run started are not initialized.
func (k *Kernel) AddUnit(u Unit) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.units = append(k.units, u)
}

// Now returns the current simulation time in milliseconds
func (k *Kernel) Now() int64 { return k.now }

// Alloc schedules an event at tsMs and returns its id. Timestamps in the
// past are clamped to Now, so the event runs after everything already
// queued for the current time.
func (k *Kernel) Alloc(tsMs int64) uint64 {
	if tsMs < k.now {
		tsMs = k.now
	}
	k.nextID++
	heap.Push(&k.queue, event{ts: tsMs, id: k.nextID})
	return k.nextID
}

// Pending returns the number of queued events
func (k *Kernel) Pending() int { return k.queue.Len() }

// NextAt returns the time of the earliest queued event
func (k *Kernel) NextAt() (int64, bool) {
	ev, ok := k.queue.Peek()
	return ev.ts, ok
}

// Processed returns how many events have run
func (k *Kernel) Processed() uint64 { return k.processed }

// Do runs fn while no event is in progress. Must not be called from a unit.
func (k *Kernel) Do(fn func()) {
	k.mu.Lock()
	defer k.mu.Unlock()
	fn()
}

// Run initializes all units, drains the event queue and disposes the units.
// Disposal happens even when initialization, an event or ctx fails.
func (k *Kernel) Run(ctx context.Context) (err error) {
	k.mu.Lock()
	units := append([]Unit(nil), k.units...)
	initialized := 0
	for _, u := range units {
		if err = u.OnInit(); err != nil {
			err = fmt.Errorf("init unit %T: %w", u, err)
			break
		}
		initialized++
	}
	k.mu.Unlock()

	defer func() {
		k.mu.Lock()
		defer k.mu.Unlock()
		var errs []error
		for i := initialized - 1; i >= 0; i-- {
			if derr := units[i].OnDispose(); derr != nil {
				errs = append(errs, fmt.Errorf("dispose unit %T: %w", units[i], derr))
			}
		}
		if len(errs) > 0 {
			err = errors.Join(append([]error{err}, errs...)...)
		}
		k.log.Infow("kernel_stopped", "sim_time_ms", k.now, "events", k.processed)
	}()
	if err != nil {
		return err
	}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		more, err := k.step(units)
		if err != nil {
			return err
		}
		if !more {
			if k.idlePoll <= 0 {
				return nil
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-k.clock.After(k.idlePoll):
			}
			continue
		}
		if k.stepDelay > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-k.clock.After(k.stepDelay):
			}
		}
	}
}

// step runs the earliest queued event; false when the queue is empty
func (k *Kernel) step(units []Unit) (bool, error) {
	k.mu.Lock()
	defer k.mu.Unlock()

	if k.queue.Len() == 0 {
		return false, nil
	}
	ev := heap.Pop(&k.queue).(event)
	if ev.ts > k.now {
		k.now = ev.ts
	}
	for _, u := range units {
		if err := u.OnEvent(); err != nil {
			return false, fmt.Errorf("event %d at %d: unit %T: %w", ev.id, ev.ts, u, err)
		}
	}
	k.processed++
	return true, nil
}
