package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"uair/internal/modules/timer/domain"
	timerout "uair/internal/modules/timer/port/out"
	"uair/internal/platform/clock"
	apperrors "uair/internal/platform/errors"
	"uair/internal/platform/id"
)

// DaemonOptions describe one daemon run.
type DaemonOptions struct {
	ConfigPath   string
	SocketPath   string
	Quiet        bool
	TickInterval time.Duration
}

type TimerService struct {
	loader    timerout.ConfigLoader
	server    timerout.ControlServer
	client    timerout.ControlClient
	formatter timerout.Formatter
	runner    timerout.EndActionRunner
	journal   timerout.Journal
	triggers  []timerout.ReloadTrigger
	ids       id.Generator
	clock     clock.Clock
	stdout    io.Writer
	logger    *log.Logger
}

// NewTimerService wires the daemon and client halves. journal may be nil when
// history is disabled; stdout is the primary output sink.
func NewTimerService(
	loader timerout.ConfigLoader,
	server timerout.ControlServer,
	client timerout.ControlClient,
	formatter timerout.Formatter,
	runner timerout.EndActionRunner,
	journal timerout.Journal,
	triggers []timerout.ReloadTrigger,
	ids id.Generator,
	clk clock.Clock,
	stdout io.Writer,
	logger *log.Logger,
) *TimerService {
	return &TimerService{
		loader:    loader,
		server:    server,
		client:    client,
		formatter: formatter,
		runner:    runner,
		journal:   journal,
		triggers:  triggers,
		ids:       ids,
		clock:     clk,
		stdout:    stdout,
		logger:    logger,
	}
}

// RunDaemon loads the configuration, binds the control socket and runs the
// scheduler until the run finishes or ctx is cancelled.
func (s *TimerService) RunDaemon(ctx context.Context, opts DaemonOptions) error {
	cfg, err := s.loader.Load(ctx, opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cleanupStaleSocket(opts.SocketPath); err != nil {
		return err
	}
	channel, err := s.server.Listen(opts.SocketPath)
	if err != nil {
		return fmt.Errorf("bind control socket: %w", err)
	}
	defer func() {
		if err := channel.Close(); err != nil {
			s.logger.Warn("control socket cleanup failed", "err", err)
		}
	}()

	var primary io.Writer = s.stdout
	if opts.Quiet {
		primary = nil
	}
	out := NewBroadcaster(primary, s.formatter, s.logger)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	runID := s.ids.New()
	s.logger.Info("daemon started",
		"socket", channel.Path(),
		"config", opts.ConfigPath,
		"sessions", len(cfg.Sessions),
		"iterations", cfg.Limit.String(),
		"run", runID,
	)

	reloads := s.watchReloads(runCtx, opts.ConfigPath)
	scheduler := NewScheduler(cfg, channel, out, s.runner, s.journal, s.loader, reloads, s.clock, s.logger, SchedulerOptions{
		ConfigPath:   opts.ConfigPath,
		RunID:        runID,
		TickInterval: opts.TickInterval,
	})

	g, gctx := errgroup.WithContext(runCtx)
	g.Go(func() error {
		err := channel.Serve(gctx)
		if errors.Is(err, net.ErrClosed) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		defer cancel()
		return scheduler.Run(gctx)
	})
	err = g.Wait()
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	s.logger.Info("daemon stopped")
	return nil
}

// watchReloads merges every reload trigger into one coalescing channel. A
// trigger that fails to start is logged and skipped.
func (s *TimerService) watchReloads(ctx context.Context, configPath string) <-chan struct{} {
	if len(s.triggers) == 0 {
		return nil
	}
	merged := make(chan struct{}, 1)
	for _, trigger := range s.triggers {
		ch, err := trigger.Watch(ctx, configPath)
		if err != nil {
			s.logger.Warn("reload trigger unavailable", "err", err)
			continue
		}
		go func() {
			for {
				select {
				case <-ctx.Done():
					return
				case _, ok := <-ch:
					if !ok {
						return
					}
					select {
					case merged <- struct{}{}:
					default:
					}
				}
			}
		}()
	}
	return merged
}

func (s *TimerService) Send(ctx context.Context, socketPath string, cmd domain.Command) error {
	return s.client.Send(ctx, socketPath, cmd)
}

func (s *TimerService) Fetch(ctx context.Context, socketPath, format string) (string, error) {
	return s.client.Fetch(ctx, socketPath, format)
}

func (s *TimerService) Listen(ctx context.Context, socketPath string, cmd domain.Listen, onRecord func(string) error) error {
	return s.client.Listen(ctx, socketPath, cmd, onRecord)
}

func (s *TimerService) History(ctx context.Context, limit int) ([]domain.Completion, error) {
	if s.journal == nil {
		return nil, fmt.Errorf("%w: history database not configured", apperrors.ErrInvalidInput)
	}
	return s.journal.List(ctx, limit)
}

// cleanupStaleSocket refuses to start over a live daemon and clears a socket
// file left behind by one that crashed.
func cleanupStaleSocket(path string) error {
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	if socketReachable(path) {
		return fmt.Errorf("%w: %s", apperrors.ErrDaemonRunning, path)
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove stale control socket: %w", err)
	}
	return nil
}

func socketReachable(path string) bool {
	conn, err := net.DialTimeout("unix", path, 150*time.Millisecond)
	if err != nil {
		return false
	}
	_ = conn.Close()
	return true
}
