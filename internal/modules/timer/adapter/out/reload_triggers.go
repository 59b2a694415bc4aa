package out

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"

	timerout "uair/internal/modules/timer/port/out"
)

const watchDebounce = 150 * time.Millisecond

// FileWatchTrigger fires when the configuration file is written or replaced.
// The parent directory is watched so editors that save by rename are seen.
type FileWatchTrigger struct {
	logger *log.Logger
}

func NewFileWatchTrigger(logger *log.Logger) timerout.ReloadTrigger {
	return &FileWatchTrigger{logger: logger}
}

func (w *FileWatchTrigger) Watch(ctx context.Context, configPath string) (<-chan struct{}, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create config watcher: %w", err)
	}
	abs, err := filepath.Abs(configPath)
	if err != nil {
		_ = watcher.Close()
		return nil, fmt.Errorf("resolve config path: %w", err)
	}
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		_ = watcher.Close()
		return nil, fmt.Errorf("watch config dir: %w", err)
	}

	out := make(chan struct{}, 1)
	go func() {
		defer watcher.Close()
		var (
			debounce *time.Timer
			fire     <-chan time.Time
		)
		for {
			select {
			case <-ctx.Done():
				if debounce != nil {
					debounce.Stop()
				}
				return
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != abs || !ev.Has(fsnotify.Write|fsnotify.Create|fsnotify.Rename) {
					continue
				}
				if debounce == nil {
					debounce = time.NewTimer(watchDebounce)
				} else {
					debounce.Reset(watchDebounce)
				}
				fire = debounce.C
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				w.logger.Warn("config watcher error", "err", err)
			case <-fire:
				fire = nil
				w.logger.Debug("config file changed", "path", abs)
				select {
				case out <- struct{}{}:
				default:
				}
			}
		}
	}()
	return out, nil
}

// SignalTrigger fires on SIGHUP.
type SignalTrigger struct {
	signals []os.Signal
}

func NewSignalTrigger() timerout.ReloadTrigger {
	return &SignalTrigger{signals: []os.Signal{syscall.SIGHUP}}
}

func (s *SignalTrigger) Watch(ctx context.Context, _ string) (<-chan struct{}, error) {
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, s.signals...)
	out := make(chan struct{}, 1)
	go func() {
		defer signal.Stop(sig)
		for {
			select {
			case <-ctx.Done():
				return
			case <-sig:
				select {
				case out <- struct{}{}:
				default:
				}
			}
		}
	}()
	return out, nil
}
