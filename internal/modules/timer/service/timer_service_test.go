package service

import (
	"context"
	"errors"
	"net"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"uair/internal/modules/timer/domain"
	timerout "uair/internal/modules/timer/port/out"
	"uair/internal/platform/clock"
	apperrors "uair/internal/platform/errors"
	"uair/internal/platform/id"
	"uair/internal/platform/logging"
)

type fakeServer struct {
	control *fakeControl
	path    string
}

func (s *fakeServer) Listen(socketPath string) (timerout.ControlChannel, error) {
	s.path = socketPath
	return s.control, nil
}

type chanTrigger struct {
	ch chan struct{}
}

func (c chanTrigger) Watch(context.Context, string) (<-chan struct{}, error) {
	return c.ch, nil
}

type brokenTrigger struct{}

func (brokenTrigger) Watch(context.Context, string) (<-chan struct{}, error) {
	return nil, errors.New("inotify exhausted")
}

func newTestService(loader *fakeLoader, server *fakeServer, runner *fakeRunner, journal timerout.Journal, stdout *syncBuffer, triggers ...timerout.ReloadTrigger) *TimerService {
	return NewTimerService(loader, server, nil, fakeFormatter{}, runner, journal, triggers, id.Fixed("run-x"), clock.MonotonicClock{}, stdout, logging.Discard())
}

func TestRunDaemonCompletesRun(t *testing.T) {
	t.Parallel()
	loader := &fakeLoader{cfg: domain.Config{
		Limit:       domain.Bounded(1),
		StartupText: "hello\n",
		Sessions:    []domain.Session{session("a", 20*time.Millisecond, true)},
	}}
	server := &fakeServer{control: newFakeControl()}
	runner := &fakeRunner{}
	journal := &fakeJournal{}
	stdout := &syncBuffer{}
	svc := newTestService(loader, server, runner, journal, stdout, brokenTrigger{})

	socket := filepath.Join(t.TempDir(), "uair.sock")
	err := svc.RunDaemon(context.Background(), DaemonOptions{
		ConfigPath:   "uair.toml",
		SocketPath:   socket,
		TickInterval: 10 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("run daemon: %v", err)
	}
	if server.path != socket {
		t.Fatalf("expected socket %q, got %q", socket, server.path)
	}
	if calls := runner.snapshot(); len(calls) != 1 {
		t.Fatalf("expected one end action, got %+v", calls)
	}
	if !strings.HasPrefix(stdout.String(), "hello\n") {
		t.Fatalf("unexpected stdout %q", stdout.String())
	}
	history, err := svc.History(context.Background(), 10)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 1 || history[0].RunID != "run-x" {
		t.Fatalf("unexpected history %+v", history)
	}
}

func TestRunDaemonQuietSuppressesStdout(t *testing.T) {
	t.Parallel()
	loader := &fakeLoader{cfg: domain.Config{
		Limit:       domain.Bounded(1),
		StartupText: "hello\n",
		Sessions:    []domain.Session{session("a", 10*time.Millisecond, true)},
	}}
	stdout := &syncBuffer{}
	svc := newTestService(loader, &fakeServer{control: newFakeControl()}, &fakeRunner{}, nil, stdout)

	err := svc.RunDaemon(context.Background(), DaemonOptions{
		SocketPath:   filepath.Join(t.TempDir(), "uair.sock"),
		Quiet:        true,
		TickInterval: 5 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("run daemon: %v", err)
	}
	if stdout.String() != "" {
		t.Fatalf("expected no stdout output, got %q", stdout.String())
	}
}

func TestRunDaemonStopsOnCancel(t *testing.T) {
	t.Parallel()
	loader := &fakeLoader{cfg: domain.Config{
		Limit:    domain.Unbounded(),
		Sessions: []domain.Session{session("a", time.Hour, false)},
	}}
	svc := newTestService(loader, &fakeServer{control: newFakeControl()}, &fakeRunner{}, nil, &syncBuffer{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- svc.RunDaemon(ctx, DaemonOptions{SocketPath: filepath.Join(t.TempDir(), "uair.sock")})
	}()
	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("expected clean shutdown, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("daemon did not stop")
	}
}

func TestRunDaemonReloadTrigger(t *testing.T) {
	t.Parallel()
	loader := &fakeLoader{cfg: domain.Config{
		Limit:    domain.Unbounded(),
		Sessions: []domain.Session{session("a", time.Hour, false)},
	}}
	server := &fakeServer{control: newFakeControl()}
	trigger := chanTrigger{ch: make(chan struct{}, 1)}
	svc := newTestService(loader, server, &fakeRunner{}, nil, &syncBuffer{}, trigger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() {
		done <- svc.RunDaemon(ctx, DaemonOptions{SocketPath: filepath.Join(t.TempDir(), "uair.sock")})
	}()

	if got := server.control.fetch(t); got != "f:a:false:3600" {
		t.Fatalf("unexpected initial fetch %q", got)
	}
	loader.set(domain.Config{
		Limit:    domain.Unbounded(),
		Sessions: []domain.Session{session("a", time.Minute, false)},
	}, nil)
	trigger.ch <- struct{}{}

	deadline := time.Now().Add(2 * time.Second)
	for {
		if got := server.control.fetch(t); got == "f:a:false:60" {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("reload trigger was not applied")
		}
		time.Sleep(10 * time.Millisecond)
	}
	cancel()
	<-done
}

func TestRunDaemonRefusesLiveSocket(t *testing.T) {
	t.Parallel()
	socket := filepath.Join(t.TempDir(), "uair.sock")
	ln, err := net.Listen("unix", socket)
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()

	loader := &fakeLoader{cfg: domain.Config{Limit: domain.Unbounded()}}
	svc := newTestService(loader, &fakeServer{control: newFakeControl()}, &fakeRunner{}, nil, &syncBuffer{})
	err = svc.RunDaemon(context.Background(), DaemonOptions{SocketPath: socket})
	if !errors.Is(err, apperrors.ErrDaemonRunning) {
		t.Fatalf("expected ErrDaemonRunning, got %v", err)
	}
}

func TestRunDaemonConfigError(t *testing.T) {
	t.Parallel()
	loader := &fakeLoader{err: apperrors.ErrInvalidConfig}
	svc := newTestService(loader, &fakeServer{control: newFakeControl()}, &fakeRunner{}, nil, &syncBuffer{})
	err := svc.RunDaemon(context.Background(), DaemonOptions{SocketPath: filepath.Join(t.TempDir(), "uair.sock")})
	if !errors.Is(err, apperrors.ErrInvalidConfig) {
		t.Fatalf("expected config error, got %v", err)
	}
}

func TestHistoryWithoutJournal(t *testing.T) {
	t.Parallel()
	svc := newTestService(&fakeLoader{}, &fakeServer{}, &fakeRunner{}, nil, &syncBuffer{})
	if _, err := svc.History(context.Background(), 5); !errors.Is(err, apperrors.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}
