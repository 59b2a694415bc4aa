package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"uair/internal/bootstrap"
	"uair/internal/modules/timer/domain"
	"uair/internal/modules/timer/dto"
	"uair/internal/platform/config"
)

// errStopListening ends a listen stream after the first record.
var errStopListening = errors.New("stop listening")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		if errors.Is(err, domain.ErrListenRejected) {
			_, _ = fmt.Fprintln(os.Stderr, "unknown override")
		} else {
			_, _ = fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var socketPath string

	root := &cobra.Command{
		Use:           "uairctl",
		Short:         "Control a running uair daemon",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&socketPath, "socket", "s", "", "control socket path")

	root.AddCommand(
		newCommandCmd(&socketPath, "pause", "Pause the timer"),
		newCommandCmd(&socketPath, "resume", "Resume the timer"),
		newCommandCmd(&socketPath, "toggle", "Pause the timer if counting, resume it otherwise"),
		newCommandCmd(&socketPath, "next", "Jump to the next session"),
		newCommandCmd(&socketPath, "prev", "Jump to the previous session"),
		newCommandCmd(&socketPath, "finish", "Finish the current session now"),
		newCommandCmd(&socketPath, "reload", "Reload the configuration file"),
		newJumpCmd(&socketPath),
		newFetchCmd(&socketPath),
		newListenCmd(&socketPath),
	)
	return root
}

func loadApp(socketPath string) (*bootstrap.App, config.Config, error) {
	cfg, err := config.New("", socketPath, "-", "")
	if err != nil {
		return nil, config.Config{}, err
	}
	app, err := bootstrap.New(cfg, bootstrap.Options{Stdout: io.Discard})
	if err != nil {
		return nil, config.Config{}, err
	}
	return app, cfg, nil
}

func newCommandCmd(socketPath *string, name, short string) *cobra.Command {
	return &cobra.Command{
		Use:   name,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, cfg, err := loadApp(*socketPath)
			if err != nil {
				return err
			}
			return app.TimerCLI.Send(cmd.Context(), dto.CommandInput{SocketPath: cfg.SocketPath, Name: name})
		},
	}
}

func newJumpCmd(socketPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "jump <session-id>",
		Short: "Jump to the session with the given id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, cfg, err := loadApp(*socketPath)
			if err != nil {
				return err
			}
			return app.TimerCLI.Send(cmd.Context(), dto.CommandInput{
				SocketPath: cfg.SocketPath,
				Name:       "jump",
				Argument:   args[0],
			})
		},
	}
}

func newFetchCmd(socketPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "fetch <format>",
		Short: "Print the current status rendered with format",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, cfg, err := loadApp(*socketPath)
			if err != nil {
				return err
			}
			out, err := app.TimerCLI.Fetch(cmd.Context(), dto.FetchInput{SocketPath: cfg.SocketPath, Format: args[0]})
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), out)
			return nil
		},
	}
}

func newListenCmd(socketPath *string) *cobra.Command {
	var (
		override string
		exit     bool
		tui      bool
	)
	cmd := &cobra.Command{
		Use:   "listen",
		Short: "Print status continuously, in sync with the daemon",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, cfg, err := loadApp(*socketPath)
			if err != nil {
				return err
			}
			input := dto.ListenInput{
				SocketPath:  cfg.SocketPath,
				Override:    override,
				HasOverride: cmd.Flags().Changed("override"),
			}
			if tui {
				if !isatty.IsTerminal(os.Stdout.Fd()) && !isatty.IsCygwinTerminal(os.Stdout.Fd()) {
					return errors.New("--tui needs a terminal on stdout")
				}
				return bootstrap.RunListenTUI(cmd.Context(), app, input)
			}

			w := cmd.OutOrStdout()
			err = app.TimerCLI.Listen(cmd.Context(), input, func(record string) error {
				if _, err := io.WriteString(w, record); err != nil {
					return err
				}
				if exit {
					return errStopListening
				}
				return nil
			})
			if errors.Is(err, errStopListening) {
				return nil
			}
			return err
		},
	}
	cmd.Flags().StringVarP(&override, "override", "o", "", "named override to apply to every record")
	cmd.Flags().BoolVar(&exit, "exit", false, "print one record and exit")
	cmd.Flags().BoolVar(&tui, "tui", false, "show an interactive view instead of raw records")
	return cmd
}
