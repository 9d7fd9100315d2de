package util

import "time"

// Clock paces wall-clock waits between simulation events.
// Simulation time itself lives in the kernel.
type Clock interface {
	After(d time.Duration) <-chan time.Time
}

type RealClock struct{}

func (RealClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

// InstantClock fires immediately, for tests and unpaced replays
type InstantClock struct{}

func (InstantClock) After(time.Duration) <-chan time.Time {
	ch := make(chan time.Time, 1)
	ch <- time.Time{}
	return ch
}
