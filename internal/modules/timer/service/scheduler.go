package service

import (
	"context"
	"errors"
	"time"

	"github.com/charmbracelet/log"

	"uair/internal/modules/timer/domain"
	timerout "uair/internal/modules/timer/port/out"
	"uair/internal/platform/clock"
	"uair/internal/platform/humantime"
)

var errControlClosed = errors.New("control channel closed")

// SchedulerOptions tunes a Scheduler. Zero values select the defaults.
type SchedulerOptions struct {
	ConfigPath   string
	RunID        string
	TickInterval time.Duration
}

// Scheduler owns the session sequence and the operating mode. It is driven by
// a single goroutine; every other component talks to it through channels.
type Scheduler struct {
	opts    SchedulerOptions
	control timerout.ControlChannel
	out     *Broadcaster
	runner  timerout.EndActionRunner
	journal timerout.Journal
	loader  timerout.ConfigLoader
	reloads <-chan struct{}
	clock   clock.Clock
	logger  *log.Logger

	config domain.Config
	seq    domain.Sequence
	state  domain.State
}

// NewScheduler builds a scheduler over config. journal and reloads may be nil.
func NewScheduler(
	config domain.Config,
	control timerout.ControlChannel,
	out *Broadcaster,
	runner timerout.EndActionRunner,
	journal timerout.Journal,
	loader timerout.ConfigLoader,
	reloads <-chan struct{},
	clk clock.Clock,
	logger *log.Logger,
	opts SchedulerOptions,
) *Scheduler {
	if opts.TickInterval <= 0 {
		opts.TickInterval = time.Second
	}
	if config.Policy == "" {
		config.Policy = domain.PolicyClamp
	}
	return &Scheduler{
		opts:    opts,
		control: control,
		out:     out,
		runner:  runner,
		journal: journal,
		loader:  loader,
		reloads: reloads,
		clock:   clk,
		logger:  logger,
		config:  config,
		seq:     domain.NewSequence(config.Sessions, config.Limit),
	}
}

// Run drives the sequence until the run finishes, returning nil, or until ctx
// is cancelled, returning ctx.Err().
func (s *Scheduler) Run(ctx context.Context) error {
	defer s.out.Close()

	s.out.WriteStartup(s.config.StartupText)
	s.state = s.initialState()
	for {
		var err error
		switch st := s.state.(type) {
		case domain.Done:
			s.logger.Info("run finished")
			return nil
		case domain.Halted:
			err = s.halted(ctx, st)
		case domain.Counting:
			err = s.counting(ctx, st)
		}
		if err != nil {
			return err
		}
	}
}

// State exposes the current mode. Only safe once Run has returned.
func (s *Scheduler) State() domain.State {
	return s.state
}

func (s *Scheduler) initialState() domain.State {
	if s.seq.IsRunFinished() {
		return domain.Done{}
	}
	session := s.seq.Current()
	if s.config.PauseAtStart || !session.Autostart {
		return domain.Halted{Remaining: session.Duration}
	}
	now := s.clock.Now()
	return domain.Counting{Start: now, Dest: now.Add(session.Duration)}
}

func (s *Scheduler) halted(ctx context.Context, st domain.Halted) error {
	s.out.Push(s.seq.Current(), frozen(st.Remaining), false)
	ev, _, err := s.wait(ctx, nil)
	if err != nil {
		return err
	}
	s.apply(ctx, ev)
	return nil
}

func (s *Scheduler) counting(ctx context.Context, st domain.Counting) error {
	ticks := NewTicks(s.clock.Now(), st.Dest, s.opts.TickInterval)
	for {
		at, remaining, ok := ticks.Next()
		if !ok {
			s.finish(ctx, false)
			return nil
		}
		timer := s.clock.NewTimer(at.Sub(s.clock.Now()))
		ev, fired, err := s.wait(ctx, timer.C())
		timer.Stop()
		if err != nil {
			return err
		}
		if fired {
			s.out.Push(s.seq.Current(), remaining, true)
			continue
		}
		s.apply(ctx, ev)
		return nil
	}
}

// wait blocks until tick fires or a request survives mode filtering. Requests
// that are filtered out do not disturb the pending tick.
func (s *Scheduler) wait(ctx context.Context, tick <-chan time.Time) (timerout.Event, bool, error) {
	for {
		select {
		case <-ctx.Done():
			return timerout.Event{}, false, ctx.Err()
		case <-tick:
			return timerout.Event{}, true, nil
		case <-s.reloads:
			return timerout.Event{Command: domain.Reload{}}, false, nil
		case req, ok := <-s.control.Requests():
			if !ok {
				return timerout.Event{}, false, errControlClosed
			}
			ev, admitted, err := s.control.Surface(s.gate(), req)
			if err != nil {
				s.logger.Warn("discarding control message", "err", err)
				continue
			}
			if !admitted {
				s.logger.Debug("command ignored", "command", req.Command.Kind())
				continue
			}
			return ev, false, nil
		}
	}
}

func (s *Scheduler) gate() domain.Gate {
	_, counting := s.state.(domain.Counting)
	return domain.Gate{
		Counting: counting,
		First:    s.seq.IsFirst(),
		Last:     s.seq.IsLast(),
		Lookup:   s.config.Index,
	}
}

func (s *Scheduler) apply(ctx context.Context, ev timerout.Event) {
	now := s.clock.Now()
	s.logger.Debug("command", "command", ev.Command.Kind())
	switch c := ev.Command.(type) {
	case domain.Pause:
		if st, ok := s.state.(domain.Counting); ok {
			s.state = domain.Halted{Remaining: st.Remaining(now)}
		}
	case domain.Resume:
		if st, ok := s.state.(domain.Halted); ok {
			s.state = domain.Counting{Start: now, Dest: now.Add(st.Remaining)}
			s.out.Push(s.seq.Current(), frozen(st.Remaining), true)
		}
	case domain.Next:
		s.move(s.seq.Advance())
	case domain.Prev:
		s.move(s.seq.Retreat())
	case domain.Jump:
		s.move(s.seq.Jump(ev.Index))
	case domain.Finish:
		s.finish(ctx, true)
	case domain.Reload:
		s.reload(ctx)
	case domain.Fetch:
		remaining, resumed := s.display(now)
		if err := s.out.Reply(ev.Conn, s.seq.Current(), c.Format, remaining, resumed); err != nil {
			s.logger.Warn("fetch failed", "err", err)
		}
	case domain.Listen:
		if err := s.out.Subscribe(s.seq.Current(), ev.Conn, c); err != nil {
			s.logger.Warn("listen rejected", "err", err)
		}
	}
}

// display returns what a sink shows right now: the live remaining time while
// counting, or the frozen value while halted.
func (s *Scheduler) display(now time.Time) (time.Duration, bool) {
	switch st := s.state.(type) {
	case domain.Counting:
		return st.Remaining(now), true
	case domain.Halted:
		return frozen(st.Remaining), false
	}
	return 0, false
}

func (s *Scheduler) move(next domain.Sequence) {
	s.seq = next
	s.state = s.enter()
}

func (s *Scheduler) enter() domain.State {
	if s.seq.IsRunFinished() {
		return domain.Done{}
	}
	session := s.seq.Current()
	if !session.Autostart {
		return domain.Halted{Remaining: session.Duration}
	}
	now := s.clock.Now()
	return domain.Counting{Start: now, Dest: now.Add(session.Duration)}
}

func (s *Scheduler) finish(ctx context.Context, forced bool) {
	session := s.seq.Current()
	s.logger.Info("session completed", "session", session.ID, "name", session.Name, "forced", forced)
	if err := s.runner.Spawn(session.Name, humantime.Format(session.Duration), session.Command); err != nil {
		s.logger.Error("end action failed", "session", session.ID, "err", err)
	}
	if s.journal != nil {
		completion := domain.Completion{
			RunID:      s.opts.RunID,
			SessionID:  session.ID,
			Name:       session.Name,
			Duration:   session.Duration,
			Forced:     forced,
			FinishedAt: s.clock.Now(),
		}
		if err := s.journal.Record(ctx, completion); err != nil {
			s.logger.Warn("history record failed", "err", err)
		}
	}
	if s.seq.IsLast() {
		s.state = domain.Done{}
		return
	}
	s.move(s.seq.Advance())
}

// reload swaps in a freshly loaded configuration. The current session is kept
// by id and its elapsed time carries over; a session that disappeared restarts
// the sequence at its first entry.
func (s *Scheduler) reload(ctx context.Context) {
	cfg, err := s.loader.Load(ctx, s.opts.ConfigPath)
	if err != nil {
		s.logger.Error("reload failed, keeping previous configuration", "err", err)
		return
	}
	if cfg.Policy == "" {
		cfg.Policy = domain.PolicyClamp
	}

	previous := s.seq.Current()
	seq := domain.NewSequence(cfg.Sessions, cfg.Limit)
	if seq.IsRunFinished() {
		s.config, s.seq, s.state = cfg, seq, domain.Done{}
		s.logger.Info("configuration reloaded, nothing left to run")
		return
	}
	idx, kept := cfg.Index(previous.ID)
	if kept {
		seq = seq.Jump(idx)
	}
	seq = seq.WithIteration(cfg.Policy.Reconcile(s.seq.Iteration(), cfg.Limit))
	next := seq.Current()

	now := s.clock.Now()
	switch st := s.state.(type) {
	case domain.Halted:
		remaining := next.Duration
		if kept {
			remaining = carry(next.Duration, previous.Duration-st.Remaining)
		}
		s.state = domain.Halted{Remaining: remaining}
	case domain.Counting:
		remaining := next.Duration
		if kept {
			remaining = carry(next.Duration, previous.Duration-st.Remaining(now))
		}
		s.state = domain.Counting{Start: now, Dest: now.Add(remaining)}
	}
	s.config, s.seq = cfg, seq
	s.logger.Info("configuration reloaded", "sessions", seq.Len(), "session", next.ID, "iteration", seq.Iteration())
}

func carry(duration, elapsed time.Duration) time.Duration {
	if elapsed < 0 {
		elapsed = 0
	}
	if left := duration - elapsed; left > 0 {
		return left
	}
	return 0
}

// frozen rounds a halted remaining time up so "25m" shows as 25:00 rather than
// 24:59 once truncated to whole seconds.
func frozen(remaining time.Duration) time.Duration {
	if remaining <= 0 {
		return 0
	}
	return remaining + time.Second - time.Nanosecond
}
