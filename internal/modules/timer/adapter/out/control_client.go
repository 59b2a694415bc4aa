package out

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"time"

	"uair/internal/modules/timer/domain"
	timerout "uair/internal/modules/timer/port/out"
	apperrors "uair/internal/platform/errors"
)

const (
	dialTimeout  = 2 * time.Second
	replyTimeout = 5 * time.Second
)

type UnixControlClient struct{}

func NewUnixControlClient() timerout.ControlClient {
	return &UnixControlClient{}
}

func (c *UnixControlClient) Send(ctx context.Context, socketPath string, cmd domain.Command) error {
	conn, err := dialAndWrite(ctx, socketPath, cmd)
	if err != nil {
		return err
	}
	return conn.Close()
}

func (c *UnixControlClient) Fetch(ctx context.Context, socketPath, format string) (string, error) {
	conn, err := dialAndWrite(ctx, socketPath, domain.Fetch{Format: format})
	if err != nil {
		return "", err
	}
	defer conn.Close()
	_ = conn.SetReadDeadline(time.Now().Add(replyTimeout))
	reply, err := io.ReadAll(conn)
	if err != nil {
		return "", fmt.Errorf("read fetch reply: %w", err)
	}
	return string(reply), nil
}

// Listen streams NUL-terminated records to onRecord until the daemon closes
// the connection, ctx is cancelled or onRecord returns an error.
func (c *UnixControlClient) Listen(ctx context.Context, socketPath string, cmd domain.Listen, onRecord func(string) error) error {
	conn, err := dialAndWrite(ctx, socketPath, cmd)
	if err != nil {
		return err
	}
	defer conn.Close()

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-stop:
		}
	}()

	r := bufio.NewReader(conn)
	first := true
	for {
		record, err := r.ReadString(0)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return fmt.Errorf("read listen record: %w", err)
		}
		record = strings.TrimSuffix(record, "\x00")
		// A rejection is a lone separator followed by EOF; an override that
		// renders an empty record keeps streaming.
		if first && cmd.HasOverride && record == "" {
			if _, err := r.Peek(1); errors.Is(err, io.EOF) {
				return fmt.Errorf("%w: %q", domain.ErrListenRejected, cmd.Override)
			}
		}
		first = false
		if err := onRecord(record); err != nil {
			return err
		}
	}
}

func dialAndWrite(ctx context.Context, socketPath string, cmd domain.Command) (*net.UnixConn, error) {
	d := net.Dialer{Timeout: dialTimeout}
	raw, err := d.DialContext(ctx, "unix", socketPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", apperrors.ErrDaemonUnreachable, socketPath, err)
	}
	conn := raw.(*net.UnixConn)
	_ = conn.SetWriteDeadline(time.Now().Add(replyTimeout))
	if _, err := conn.Write(EncodeCommand(cmd)); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("send %s: %w", cmd.Kind(), err)
	}
	if err := conn.CloseWrite(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("finish %s: %w", cmd.Kind(), err)
	}
	_ = conn.SetWriteDeadline(time.Time{})
	return conn, nil
}
