package out

import (
	"context"
	"io"
	"time"

	"uair/internal/modules/timer/domain"
)

// ConfigLoader reads the session configuration file.
type ConfigLoader interface {
	Load(ctx context.Context, path string) (domain.Config, error)
}

// Request is one accepted control connection after its body has been decoded.
// Err is set when the body could not be decoded; Conn is then already closed.
type Request struct {
	Command domain.Command
	Conn    io.WriteCloser
	Err     error
}

// Event is a request that survived mode filtering. Conn is only set for
// commands that answer on their connection.
type Event struct {
	Command domain.Command
	Index   int
	Conn    io.WriteCloser
}

// ControlChannel is a bound control endpoint.
type ControlChannel interface {
	Serve(ctx context.Context) error
	Requests() <-chan Request
	Surface(gate domain.Gate, req Request) (Event, bool, error)
	Path() string
	Close() error
}

// ControlServer binds control endpoints.
type ControlServer interface {
	Listen(socketPath string) (ControlChannel, error)
}

// ControlClient talks to a running daemon.
type ControlClient interface {
	Send(ctx context.Context, socketPath string, cmd domain.Command) error
	Fetch(ctx context.Context, socketPath, format string) (string, error)
	Listen(ctx context.Context, socketPath string, cmd domain.Listen, onRecord func(string) error) error
}

// Formatter renders a session display for a remaining duration.
type Formatter interface {
	Render(session domain.Session, display domain.Display, remaining time.Duration, resumed bool) (string, error)
}

// EndActionRunner fires a session's end command without waiting for it.
type EndActionRunner interface {
	Spawn(name, duration, command string) error
}

// Journal stores fired end-actions.
type Journal interface {
	Record(ctx context.Context, completion domain.Completion) error
	List(ctx context.Context, limit int) ([]domain.Completion, error)
	Close() error
}

// ReloadTrigger signals that the configuration should be re-read.
type ReloadTrigger interface {
	Watch(ctx context.Context, configPath string) (<-chan struct{}, error)
}
