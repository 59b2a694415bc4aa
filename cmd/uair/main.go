package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"uair/internal/bootstrap"
	"uair/internal/modules/timer/dto"
	"uair/internal/platform/config"
	"uair/internal/platform/logging"
)

func main() {
	signal.Ignore(syscall.SIGPIPE)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM, syscall.SIGQUIT)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type rootFlags struct {
	configPath  string
	socketPath  string
	logPath     string
	historyPath string
	quiet       bool
	debug       bool
	watch       bool
	tick        time.Duration
}

func newRootCmd() *cobra.Command {
	var flags rootFlags

	root := &cobra.Command{
		Use:           "uair",
		Short:         "Extensible pomodoro timer daemon",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, cfg, closeApp, err := loadApp(&flags)
			if err != nil {
				return err
			}
			defer closeApp()
			return app.TimerCLI.RunDaemon(cmd.Context(), dto.DaemonInput{
				ConfigPath:   cfg.ConfigPath,
				SocketPath:   cfg.SocketPath,
				Quiet:        flags.quiet,
				TickInterval: flags.tick,
			})
		},
	}
	pf := root.PersistentFlags()
	pf.StringVarP(&flags.configPath, "config", "c", "", "session configuration file (.toml, .yaml)")
	pf.StringVarP(&flags.socketPath, "socket", "s", "", "control socket path")
	pf.StringVarP(&flags.logPath, "log", "l", "-", "log file, - for stderr")
	pf.StringVar(&flags.historyPath, "history", "", "sqlite database recording completed sessions")
	pf.BoolVar(&flags.debug, "debug", false, "enable debug logging")
	root.Flags().BoolVarP(&flags.quiet, "quiet", "q", false, "do not write status to stdout")
	root.Flags().BoolVar(&flags.watch, "watch", false, "reload when the configuration file changes")
	root.Flags().DurationVar(&flags.tick, "tick", time.Second, "status refresh interval while counting")

	root.AddCommand(newHistoryCmd(&flags))
	return root
}

func loadApp(flags *rootFlags) (*bootstrap.App, config.Config, func(), error) {
	cfg, err := config.New(flags.configPath, flags.socketPath, flags.logPath, flags.historyPath)
	if err != nil {
		return nil, config.Config{}, nil, err
	}
	logger, logCloser, err := logging.New(logging.Options{Path: cfg.LogPath, Debug: flags.debug})
	if err != nil {
		return nil, config.Config{}, nil, err
	}
	app, err := bootstrap.New(cfg, bootstrap.Options{Watch: flags.watch, Stdout: os.Stdout, Logger: logger})
	if err != nil {
		_ = logCloser.Close()
		return nil, config.Config{}, nil, err
	}
	closeApp := func() {
		if err := app.Close(); err != nil {
			logger.Warn("shutdown", "err", err)
		}
		_ = logCloser.Close()
	}
	return app, cfg, closeApp, nil
}

func newHistoryCmd(flags *rootFlags) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List completed sessions recorded with --history",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if flags.historyPath == "" {
				path, err := config.DefaultHistoryPath()
				if err != nil {
					return err
				}
				flags.historyPath = path
			}
			app, _, closeApp, err := loadApp(flags)
			if err != nil {
				return err
			}
			defer closeApp()
			items, err := app.TimerCLI.History(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if len(items) == 0 {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "no completed sessions")
				return nil
			}
			for _, c := range items {
				forced := ""
				if c.Forced {
					forced = "\tfinished early"
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\t%s%s\n",
					c.FinishedAt.Local().Format(time.DateTime), c.SessionID, c.Name, c.Duration, forced)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "show at most this many entries, 0 for all")
	return cmd
}
