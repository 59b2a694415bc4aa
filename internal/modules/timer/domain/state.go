package domain

import "time"

// State is the scheduler's operating mode: Halted, Counting or Done.
type State interface {
	state()
}

type Halted struct {
	Remaining time.Duration
}

type Counting struct {
	Start time.Time
	Dest  time.Time
}

type Done struct{}

func (Halted) state()   {}
func (Counting) state() {}
func (Done) state()     {}

func (c Counting) Remaining(now time.Time) time.Duration {
	if left := c.Dest.Sub(now); left > 0 {
		return left
	}
	return 0
}
