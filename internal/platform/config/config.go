package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	appName    = "uair"
	configFile = "uair.toml"
	socketFile = "uair.sock"
	historyDB  = "history.db"
)

// Config holds the resolved filesystem locations for one process.
type Config struct {
	ConfigPath  string
	SocketPath  string
	HistoryPath string
	LogPath     string
}

// New resolves paths, filling blanks from the environment. logPath "-" means
// stderr; an empty historyPath disables the completion journal.
func New(configPath, socketPath, logPath, historyPath string) (Config, error) {
	var err error
	if configPath == "" {
		configPath, err = DefaultConfigPath()
		if err != nil {
			return Config{}, err
		}
	}
	if socketPath == "" {
		socketPath = DefaultSocketPath()
	}
	if logPath == "" {
		logPath = "-"
	}
	return Config{
		ConfigPath:  expandHome(configPath),
		SocketPath:  expandHome(socketPath),
		HistoryPath: expandHome(historyPath),
		LogPath:     logPath,
	}, nil
}

// DefaultConfigPath is $XDG_CONFIG_HOME/uair/uair.toml, falling back to
// ~/.config/uair/uair.toml.
func DefaultConfigPath() (string, error) {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, appName, configFile), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve config path: %w", err)
	}
	return filepath.Join(home, ".config", appName, configFile), nil
}

// DefaultSocketPath prefers $XDG_RUNTIME_DIR, then $TMPDIR, then /tmp.
func DefaultSocketPath() string {
	for _, key := range []string{"XDG_RUNTIME_DIR", "TMPDIR"} {
		if dir := os.Getenv(key); dir != "" {
			return filepath.Join(dir, socketFile)
		}
	}
	return filepath.Join("/tmp", socketFile)
}

// DefaultHistoryPath is $XDG_STATE_HOME/uair/history.db, falling back to
// ~/.local/state/uair/history.db.
func DefaultHistoryPath() (string, error) {
	if dir := os.Getenv("XDG_STATE_HOME"); dir != "" {
		return filepath.Join(dir, appName, historyDB), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve history path: %w", err)
	}
	return filepath.Join(home, ".local", "state", appName, historyDB), nil
}

func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
