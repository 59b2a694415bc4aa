package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"uair/internal/modules/timer/domain"
	timerout "uair/internal/modules/timer/port/out"
	"uair/internal/platform/clock"
)

type fakeConn struct {
	mu     sync.Mutex
	buf    bytes.Buffer
	fail   bool
	once   sync.Once
	closed chan struct{}
}

func newFakeConn() *fakeConn {
	return &fakeConn{closed: make(chan struct{})}
}

func (c *fakeConn) Write(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail {
		return 0, errors.New("broken pipe")
	}
	return c.buf.Write(p)
}

func (c *fakeConn) Close() error {
	c.once.Do(func() { close(c.closed) })
	return nil
}

func (c *fakeConn) String() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.buf.String()
}

func (c *fakeConn) isClosed() bool {
	select {
	case <-c.closed:
		return true
	default:
		return false
	}
}

// fakeFormatter renders "format:session:resumed:seconds".
type fakeFormatter struct {
	fail bool
}

func (f fakeFormatter) Render(session domain.Session, display domain.Display, remaining time.Duration, resumed bool) (string, error) {
	if f.fail {
		return "", errors.New("bad format")
	}
	return fmt.Sprintf("%s:%s:%t:%d", display.Format, session.ID, resumed, int(remaining/time.Second)), nil
}

type fakeControl struct {
	requests chan timerout.Request
}

func newFakeControl() *fakeControl {
	return &fakeControl{requests: make(chan timerout.Request)}
}

func (f *fakeControl) Serve(ctx context.Context) error {
	<-ctx.Done()
	return nil
}

func (f *fakeControl) Requests() <-chan timerout.Request { return f.requests }

func (f *fakeControl) Surface(gate domain.Gate, req timerout.Request) (timerout.Event, bool, error) {
	if req.Err != nil {
		return timerout.Event{}, false, req.Err
	}
	admitted, ok := domain.Admit(gate, req.Command)
	if !ok || !domain.KeepsConnection(admitted.Command) {
		if req.Conn != nil {
			_ = req.Conn.Close()
		}
	}
	if !ok {
		return timerout.Event{}, false, nil
	}
	ev := timerout.Event{Command: admitted.Command, Index: admitted.Index}
	if domain.KeepsConnection(admitted.Command) {
		ev.Conn = req.Conn
	}
	return ev, true, nil
}

func (f *fakeControl) Path() string { return "fake.sock" }
func (f *fakeControl) Close() error { return nil }

func (f *fakeControl) send(t *testing.T, cmd domain.Command, conn *fakeConn) {
	t.Helper()
	req := timerout.Request{Command: cmd}
	if conn != nil {
		req.Conn = conn
	}
	select {
	case f.requests <- req:
	case <-time.After(2 * time.Second):
		t.Fatalf("scheduler did not accept %s", cmd.Kind())
	}
}

func (f *fakeControl) fetch(t *testing.T) string {
	t.Helper()
	conn := newFakeConn()
	f.send(t, domain.Fetch{Format: "f"}, conn)
	select {
	case <-conn.closed:
	case <-time.After(2 * time.Second):
		t.Fatalf("fetch reply never closed")
	}
	return conn.String()
}

type spawned struct {
	name     string
	duration string
	command  string
}

type fakeRunner struct {
	mu    sync.Mutex
	calls []spawned
}

func (r *fakeRunner) Spawn(name, duration, command string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, spawned{name: name, duration: duration, command: command})
	return nil
}

func (r *fakeRunner) snapshot() []spawned {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]spawned(nil), r.calls...)
}

type fakeJournal struct {
	mu      sync.Mutex
	records []domain.Completion
}

func (j *fakeJournal) Record(_ context.Context, c domain.Completion) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.records = append(j.records, c)
	return nil
}

func (j *fakeJournal) List(_ context.Context, limit int) ([]domain.Completion, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	out := append([]domain.Completion(nil), j.records...)
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

func (j *fakeJournal) Close() error { return nil }

type fakeLoader struct {
	mu  sync.Mutex
	cfg domain.Config
	err error
}

func (l *fakeLoader) Load(context.Context, string) (domain.Config, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.cfg, l.err
}

func (l *fakeLoader) set(cfg domain.Config, err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.cfg, l.err = cfg, err
}

type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*fakeTimer
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// NewTimer fires once advance moves now past its deadline, or immediately
// when d is not positive.
func (c *fakeClock) NewTimer(d time.Duration) clock.Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{clock: c, at: c.now.Add(d), ch: make(chan time.Time, 1)}
	if d <= 0 {
		t.ch <- c.now
		return t
	}
	c.timers = append(c.timers, t)
	return t
}

func (c *fakeClock) advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
	pending := c.timers[:0]
	for _, t := range c.timers {
		if t.at.After(c.now) {
			pending = append(pending, t)
			continue
		}
		t.ch <- c.now
	}
	c.timers = pending
}

type fakeTimer struct {
	clock *fakeClock
	at    time.Time
	ch    chan time.Time
}

func (t *fakeTimer) C() <-chan time.Time { return t.ch }

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	for i, p := range t.clock.timers {
		if p == t {
			t.clock.timers = append(t.clock.timers[:i], t.clock.timers[i+1:]...)
			return true
		}
	}
	return false
}

// syncBuffer is a primary sink safe to read while the scheduler writes.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

type failingWriter struct {
	writes int
}

func (w *failingWriter) Write([]byte) (int, error) {
	w.writes++
	return 0, errors.New("closed stdout")
}

func session(id string, d time.Duration, autostart bool) domain.Session {
	return domain.Session{
		ID:               id,
		Name:             "name-" + id,
		Duration:         d,
		Command:          "true",
		Format:           "p",
		TimeFormat:       "%S",
		Autostart:        autostart,
		PausedStateText:  "paused",
		ResumedStateText: "running",
	}
}
