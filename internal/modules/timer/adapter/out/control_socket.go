package out

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"uair/internal/modules/timer/domain"
	timerout "uair/internal/modules/timer/port/out"
)

const readTimeout = 2 * time.Second

type UnixControlServer struct {
	logger *log.Logger
}

func NewUnixControlServer(logger *log.Logger) timerout.ControlServer {
	return &UnixControlServer{logger: logger}
}

// Listen binds the control socket. The caller is responsible for refusing to
// replace a live daemon's socket; whatever file remains at socketPath is removed.
func (s *UnixControlServer) Listen(socketPath string) (timerout.ControlChannel, error) {
	if err := os.MkdirAll(filepath.Dir(socketPath), 0o755); err != nil {
		return nil, fmt.Errorf("create socket dir: %w", err)
	}
	if err := os.Remove(socketPath); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("remove stale control socket: %w", err)
	}
	ln, err := net.Listen("unix", socketPath)
	if err != nil {
		return nil, fmt.Errorf("listen control socket: %w", err)
	}
	if err := os.Chmod(socketPath, 0o600); err != nil {
		_ = ln.Close()
		return nil, fmt.Errorf("chmod control socket: %w", err)
	}
	return &UnixControlChannel{
		path:     socketPath,
		ln:       ln,
		requests: make(chan timerout.Request),
		done:     make(chan struct{}),
		logger:   s.logger,
	}, nil
}

// UnixControlChannel accepts one command per connection. Each connection is
// read to EOF and decoded on its own goroutine, then queued for the scheduler.
type UnixControlChannel struct {
	path     string
	ln       net.Listener
	requests chan timerout.Request
	done     chan struct{}
	once     sync.Once
	logger   *log.Logger
}

func (c *UnixControlChannel) Path() string {
	return c.path
}

func (c *UnixControlChannel) Requests() <-chan timerout.Request {
	return c.requests
}

func (c *UnixControlChannel) Serve(ctx context.Context) error {
	stop := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			_ = c.ln.Close()
		case <-stop:
		}
	}()
	defer close(stop)

	for {
		conn, err := c.ln.Accept()
		if err != nil {
			if ctx.Err() != nil || c.closed() {
				return nil
			}
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				continue
			}
			return err
		}
		go c.handle(ctx, conn)
	}
}

func (c *UnixControlChannel) handle(ctx context.Context, conn net.Conn) {
	_ = conn.SetReadDeadline(time.Now().Add(readTimeout))
	body, err := io.ReadAll(io.LimitReader(conn, maxCommandSize+1))
	_ = conn.SetReadDeadline(time.Time{})

	req := timerout.Request{Conn: conn}
	if err != nil {
		req.Err = fmt.Errorf("read control message: %w", err)
	} else {
		req.Command, req.Err = DecodeCommand(body)
	}
	if req.Err != nil {
		_ = conn.Close()
	}

	select {
	case c.requests <- req:
	case <-ctx.Done():
		_ = conn.Close()
	case <-c.done:
		_ = conn.Close()
	}
}

// Surface applies mode filtering to a queued request. Connections that carry no
// reply are closed here; Fetch and Listen connections travel with the event.
func (c *UnixControlChannel) Surface(gate domain.Gate, req timerout.Request) (timerout.Event, bool, error) {
	if req.Err != nil {
		return timerout.Event{}, false, req.Err
	}
	admitted, ok := domain.Admit(gate, req.Command)
	keep := ok && domain.KeepsConnection(admitted.Command)
	if !keep && req.Conn != nil {
		_ = req.Conn.Close()
	}
	if !ok {
		return timerout.Event{}, false, nil
	}
	ev := timerout.Event{Command: admitted.Command, Index: admitted.Index}
	if keep {
		ev.Conn = req.Conn
	}
	return ev, true, nil
}

// Close stops accepting and removes the socket file.
func (c *UnixControlChannel) Close() error {
	var err error
	c.once.Do(func() {
		close(c.done)
		if cerr := c.ln.Close(); cerr != nil && !errors.Is(cerr, net.ErrClosed) {
			err = cerr
		}
		if rerr := os.Remove(c.path); rerr != nil && !os.IsNotExist(rerr) && err == nil {
			err = rerr
		}
	})
	return err
}

func (c *UnixControlChannel) closed() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}
