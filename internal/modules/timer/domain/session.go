package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrUnknownOverride  = errors.New("unknown override")
	ErrMalformedCommand = errors.New("malformed command")
	ErrListenRejected   = errors.New("listen rejected by daemon")
)

// Override replaces parts of a session's display. Nil fields fall back to the session.
type Override struct {
	Format           *string
	TimeFormat       *string
	PausedStateText  *string
	ResumedStateText *string
}

type Session struct {
	ID               string
	Name             string
	Duration         time.Duration
	Command          string
	Format           string
	TimeFormat       string
	Autostart        bool
	PausedStateText  string
	ResumedStateText string
	Overrides        map[string]Override
}

// Display is the effective formatting of a session once an override is applied.
type Display struct {
	Format           string
	TimeFormat       string
	PausedStateText  string
	ResumedStateText string
}

func (s Session) Override(name string) (Override, bool) {
	o, ok := s.Overrides[name]
	return o, ok
}

func (s Session) Display(override *Override) Display {
	d := Display{
		Format:           s.Format,
		TimeFormat:       s.TimeFormat,
		PausedStateText:  s.PausedStateText,
		ResumedStateText: s.ResumedStateText,
	}
	if override == nil {
		return d
	}
	if override.Format != nil {
		d.Format = *override.Format
	}
	if override.TimeFormat != nil {
		d.TimeFormat = *override.TimeFormat
	}
	if override.PausedStateText != nil {
		d.PausedStateText = *override.PausedStateText
	}
	if override.ResumedStateText != nil {
		d.ResumedStateText = *override.ResumedStateText
	}
	return d
}

func (d Display) StateText(resumed bool) string {
	if resumed {
		return d.ResumedStateText
	}
	return d.PausedStateText
}

// IterationLimit bounds how many full passes a run makes. The zero value loops
// forever.
type IterationLimit struct {
	Bounded bool
	Count   int
}

func Unbounded() IterationLimit {
	return IterationLimit{}
}

func Bounded(count int) IterationLimit {
	if count < 0 {
		count = 0
	}
	return IterationLimit{Bounded: true, Count: count}
}

func (l IterationLimit) String() string {
	if !l.Bounded {
		return "unbounded"
	}
	return fmt.Sprintf("%d", l.Count)
}

// IterationPolicy decides how the iteration counter survives a reload.
type IterationPolicy string

const (
	PolicyClamp IterationPolicy = "clamp"
	PolicyReset IterationPolicy = "reset"
)

func (p IterationPolicy) Validate() error {
	switch p {
	case PolicyClamp, PolicyReset:
		return nil
	default:
		return fmt.Errorf("unknown iteration policy %q", string(p))
	}
}

// Reconcile returns the iteration counter to carry over into a run bounded by limit.
func (p IterationPolicy) Reconcile(previous int, limit IterationLimit) int {
	if p == PolicyReset {
		if !limit.Bounded || previous < limit.Count {
			return previous
		}
		return 0
	}
	if !limit.Bounded {
		return previous
	}
	if previous > limit.Count-1 {
		previous = limit.Count - 1
	}
	if previous < 0 {
		return 0
	}
	return previous
}

type Config struct {
	Limit        IterationLimit
	PauseAtStart bool
	StartupText  string
	Policy       IterationPolicy
	Sessions     []Session
}

func (c Config) Index(id string) (int, bool) {
	for i, s := range c.Sessions {
		if s.ID == id {
			return i, true
		}
	}
	return 0, false
}

func (c Config) Validate() error {
	seen := make(map[string]struct{}, len(c.Sessions))
	for i, s := range c.Sessions {
		if strings.TrimSpace(s.ID) == "" {
			return fmt.Errorf("session %d: empty id", i)
		}
		if _, dup := seen[s.ID]; dup {
			return fmt.Errorf("session %d: duplicate id %q", i, s.ID)
		}
		seen[s.ID] = struct{}{}
		if s.Duration < 0 {
			return fmt.Errorf("session %q: negative duration", s.ID)
		}
	}
	if c.Policy != "" {
		if err := c.Policy.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Completion records one fired end-action.
type Completion struct {
	RunID      string
	SessionID  string
	Name       string
	Duration   time.Duration
	Forced     bool
	FinishedAt time.Time
}
