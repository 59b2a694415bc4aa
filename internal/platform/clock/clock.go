package clock

import "time"

// Clock abstracts time to keep usecases deterministic in tests. Timers created
// through it fire against the same notion of now.
type Clock interface {
	Now() time.Time
	NewTimer(d time.Duration) Timer
}

// Timer is the part of *time.Timer the scheduler needs.
type Timer interface {
	C() <-chan time.Time
	Stop() bool
}

// MonotonicClock keeps the monotonic reading so countdown arithmetic is not
// disturbed by wall clock adjustments.
type MonotonicClock struct{}

func (MonotonicClock) Now() time.Time {
	return time.Now()
}

func (MonotonicClock) NewTimer(d time.Duration) Timer {
	return realTimer{t: time.NewTimer(d)}
}

type realTimer struct {
	t *time.Timer
}

func (r realTimer) C() <-chan time.Time { return r.t.C }
func (r realTimer) Stop() bool          { return r.t.Stop() }
