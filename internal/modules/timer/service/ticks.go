package service

import "time"

// Ticks is a countdown schedule aligned on its destination: the sub-interval
// remainder is consumed first so every later tick reports a whole number of
// intervals and the final tick lands exactly on dest.
type Ticks struct {
	dest     time.Time
	interval time.Duration
	next     time.Time
}

func NewTicks(start, dest time.Time, interval time.Duration) *Ticks {
	if interval <= 0 {
		interval = time.Second
	}
	span := dest.Sub(start)
	if span < 0 {
		span = 0
	}
	return &Ticks{
		dest:     dest,
		interval: interval,
		next:     start.Add(span % interval),
	}
}

// Next returns the next wake-up time and the remaining duration it reports.
// ok is false once the schedule has passed dest.
func (t *Ticks) Next() (at time.Time, remaining time.Duration, ok bool) {
	if t.next.After(t.dest) {
		return time.Time{}, 0, false
	}
	at = t.next
	t.next = t.next.Add(t.interval)
	return at, t.dest.Sub(at), true
}
