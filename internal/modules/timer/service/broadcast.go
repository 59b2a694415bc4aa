package service

import (
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"

	"uair/internal/modules/timer/domain"
	timerout "uair/internal/modules/timer/port/out"
)

const (
	recordSeparator   = 0x00
	subscriberTimeout = 2 * time.Second
)

type subscriber struct {
	w        io.WriteCloser
	override string
	named    bool
}

type writeDeadliner interface {
	SetWriteDeadline(t time.Time) error
}

// Broadcaster writes the formatted display to the primary sink and to every
// live subscriber. A sink that fails once is dropped for good.
type Broadcaster struct {
	primary   io.Writer
	subs      []subscriber
	formatter timerout.Formatter
	logger    *log.Logger
}

// NewBroadcaster takes a nil primary for quiet operation.
func NewBroadcaster(primary io.Writer, formatter timerout.Formatter, logger *log.Logger) *Broadcaster {
	return &Broadcaster{primary: primary, formatter: formatter, logger: logger}
}

func (b *Broadcaster) Subscribers() int {
	return len(b.subs)
}

func (b *Broadcaster) PrimaryEnabled() bool {
	return b.primary != nil
}

func (b *Broadcaster) WriteStartup(text string) {
	if b.primary == nil || text == "" {
		return
	}
	if _, err := io.WriteString(b.primary, text); err != nil {
		b.disablePrimary(err)
	}
}

// Subscribe registers a Listen connection. A named override that the current
// session does not define is answered with a lone separator byte and the
// connection is closed.
func (b *Broadcaster) Subscribe(session domain.Session, w io.WriteCloser, cmd domain.Listen) error {
	if cmd.HasOverride {
		if _, ok := session.Override(cmd.Override); !ok {
			_, _ = w.Write([]byte{recordSeparator})
			_ = w.Close()
			return fmt.Errorf("%w: %q", domain.ErrUnknownOverride, cmd.Override)
		}
	}
	b.subs = append(b.subs, subscriber{w: w, override: cmd.Override, named: cmd.HasOverride})
	return nil
}

func (b *Broadcaster) Push(session domain.Session, remaining time.Duration, resumed bool) {
	if b.primary != nil {
		text, err := b.formatter.Render(session, session.Display(nil), remaining, resumed)
		if err == nil {
			_, err = io.WriteString(b.primary, text)
		}
		if err != nil {
			b.disablePrimary(err)
		}
	}

	kept := b.subs[:0]
	for _, sub := range b.subs {
		if err := b.send(sub, session, remaining, resumed); err != nil {
			b.logger.Debug("dropping subscriber", "err", err)
			_ = sub.w.Close()
			continue
		}
		kept = append(kept, sub)
	}
	for i := len(kept); i < len(b.subs); i++ {
		b.subs[i] = subscriber{}
	}
	b.subs = kept
}

// Reply answers a Fetch with a one-off format and closes the connection.
func (b *Broadcaster) Reply(w io.WriteCloser, session domain.Session, format string, remaining time.Duration, resumed bool) error {
	defer w.Close()
	display := session.Display(nil)
	display.Format = format
	text, err := b.formatter.Render(session, display, remaining, resumed)
	if err != nil {
		return fmt.Errorf("render fetch: %w", err)
	}
	if _, err := io.WriteString(w, text); err != nil {
		return fmt.Errorf("write fetch reply: %w", err)
	}
	return nil
}

func (b *Broadcaster) Close() {
	for _, sub := range b.subs {
		_ = sub.w.Close()
	}
	b.subs = nil
}

func (b *Broadcaster) send(sub subscriber, session domain.Session, remaining time.Duration, resumed bool) error {
	var override *domain.Override
	if sub.named {
		if o, ok := session.Override(sub.override); ok {
			override = &o
		}
	}
	text, err := b.formatter.Render(session, session.Display(override), remaining, resumed)
	if err != nil {
		return err
	}
	if d, ok := sub.w.(writeDeadliner); ok {
		_ = d.SetWriteDeadline(time.Now().Add(subscriberTimeout))
	}
	record := make([]byte, 0, len(text)+1)
	record = append(record, text...)
	record = append(record, recordSeparator)
	_, err = sub.w.Write(record)
	return err
}

func (b *Broadcaster) disablePrimary(err error) {
	b.logger.Warn("primary output disabled", "err", err)
	b.primary = nil
}
