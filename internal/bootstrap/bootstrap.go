package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"

	timerinadapter "uair/internal/modules/timer/adapter/in"
	timeroutadapter "uair/internal/modules/timer/adapter/out"
	"uair/internal/modules/timer/dto"
	timerout "uair/internal/modules/timer/port/out"
	timerservice "uair/internal/modules/timer/service"
	timerusecase "uair/internal/modules/timer/usecase"
	"uair/internal/platform/clock"
	"uair/internal/platform/config"
	"uair/internal/platform/id"
	uilisten "uair/internal/ui/listen"
)

// Options are process-level switches that are not paths.
type Options struct {
	Watch  bool
	Stdout io.Writer
	Logger *log.Logger
}

type App struct {
	TimerCLI timerinadapter.CLIHandler
	Logger   *log.Logger

	closers []io.Closer
}

func New(cfg config.Config, opts Options) (*App, error) {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}
	stdout := opts.Stdout
	if stdout == nil {
		stdout = os.Stdout
	}

	app := &App{Logger: logger}

	var journal timerout.Journal
	if cfg.HistoryPath != "" {
		j, err := timeroutadapter.NewSQLiteJournal(cfg.HistoryPath)
		if err != nil {
			return nil, fmt.Errorf("open history: %w", err)
		}
		journal = j
		app.closers = append(app.closers, j)
	}

	triggers := []timerout.ReloadTrigger{timeroutadapter.NewSignalTrigger()}
	if opts.Watch {
		triggers = append(triggers, timeroutadapter.NewFileWatchTrigger(logger))
	}

	timerSvc := timerservice.NewTimerService(
		timeroutadapter.NewFileConfigLoader(logger),
		timeroutadapter.NewUnixControlServer(logger),
		timeroutadapter.NewUnixControlClient(),
		timeroutadapter.NewDisplayFormatter(),
		timeroutadapter.NewShellRunner(logger),
		journal,
		triggers,
		id.UUID{},
		clock.MonotonicClock{},
		stdout,
		logger,
	)
	app.TimerCLI = timerinadapter.NewCLIHandler(timerusecase.NewInteractor(timerSvc))
	return app, nil
}

func (a *App) Close() error {
	var errs []error
	for _, c := range a.closers {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}

func RunListenTUI(ctx context.Context, app *App, input dto.ListenInput) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	model := uilisten.New(ctx, app.TimerCLI, input)
	program := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := program.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
