// Package logging builds the process logger.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"github.com/mattn/go-isatty"
)

// Options select the log destination and verbosity. Path "-" is stderr.
type Options struct {
	Path   string
	Debug  bool
	Prefix string
}

// New opens the log destination. The returned closer releases a log file and is
// a no-op for stderr.
func New(opts Options) (*log.Logger, io.Closer, error) {
	var (
		w      io.Writer = os.Stderr
		closer io.Closer = nopCloser{}
		tty              = isatty.IsTerminal(os.Stderr.Fd())
	)
	if opts.Path != "" && opts.Path != "-" {
		if err := os.MkdirAll(filepath.Dir(opts.Path), 0o755); err != nil {
			return nil, nil, fmt.Errorf("create log dir: %w", err)
		}
		f, err := os.OpenFile(opts.Path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file: %w", err)
		}
		w, closer, tty = f, f, false
	}

	formatter := log.TextFormatter
	if !tty {
		formatter = log.LogfmtFormatter
	}
	logger := log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      time.DateTime,
		Prefix:          opts.Prefix,
		Formatter:       formatter,
	})
	if opts.Debug {
		logger.SetLevel(log.DebugLevel)
	}
	return logger, closer, nil
}

// Discard is a logger for tests.
func Discard() *log.Logger {
	return log.New(io.Discard)
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
