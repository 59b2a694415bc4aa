package out_test

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
	"time"

	out "uair/internal/modules/timer/adapter/out"
	"uair/internal/modules/timer/domain"
	apperrors "uair/internal/platform/errors"
	"uair/internal/platform/logging"
)

func writeConfig(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func load(t *testing.T, path string) (domain.Config, error) {
	t.Helper()
	return out.NewFileConfigLoader(logging.Discard()).Load(context.Background(), path)
}

func TestLoadTOML(t *testing.T) {
	t.Parallel()
	path := writeConfig(t, "uair.toml", `
loop_on_end = true
pause_at_start = true
startup_text = "ready\n"
iteration_policy = "reset"

[defaults]
format = "{time}\n"
autostart = true

[defaults.overrides.bar]
format = "{name} {time}"
paused_state_text = "P"

[[sessions]]
id = "work"
name = "Work"
duration = "1h 30m"
command = "notify-send done"

[sessions.overrides.bar]
format = "{time}"

[[sessions]]
name = "Rest"
duration = 300
autostart = false
`)
	cfg, err := load(t, path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Limit.Bounded || !cfg.PauseAtStart || cfg.StartupText != "ready\n" || cfg.Policy != domain.PolicyReset {
		t.Fatalf("unexpected top-level config %+v", cfg)
	}
	if len(cfg.Sessions) != 2 {
		t.Fatalf("expected 2 sessions, got %d", len(cfg.Sessions))
	}

	work := cfg.Sessions[0]
	if work.ID != "work" || work.Duration != 90*time.Minute || !work.Autostart || work.Command != "notify-send done" {
		t.Fatalf("unexpected work session %+v", work)
	}
	bar, ok := work.Override("bar")
	if !ok || bar.Format == nil || *bar.Format != "{time}" {
		t.Fatalf("expected session format to win, got %+v", bar)
	}
	if bar.PausedStateText == nil || *bar.PausedStateText != "P" {
		t.Fatalf("expected default override field to fill in, got %+v", bar)
	}

	rest := cfg.Sessions[1]
	if rest.ID != "1" || rest.Duration != 5*time.Minute || rest.Autostart {
		t.Fatalf("unexpected rest session %+v", rest)
	}
	if restBar, ok := rest.Override("bar"); !ok || *restBar.Format != "{name} {time}" {
		t.Fatalf("expected inherited default override, got %+v", restBar)
	}
	if rest.Command != "notify-send 'Session Completed!'" || rest.PausedStateText != "⏸" {
		t.Fatalf("expected built-in defaults, got %+v", rest)
	}
}

func TestLoadYAML(t *testing.T) {
	t.Parallel()
	path := writeConfig(t, "uair.yaml", `
iterations: 3
sessions:
  - id: focus
    duration: 25m
    autostart: true
  - id: break
    duration: 5m
    overrides:
      bar:
        resumed_state_text: ">"
`)
	cfg, err := load(t, path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Limit != domain.Bounded(3) {
		t.Fatalf("expected 3 iterations, got %s", cfg.Limit)
	}
	if cfg.Policy != domain.PolicyClamp {
		t.Fatalf("expected clamp policy by default, got %q", cfg.Policy)
	}
	if cfg.Sessions[0].Name != "Work" || cfg.Sessions[0].Format != "{time}\n" {
		t.Fatalf("expected defaults on focus, got %+v", cfg.Sessions[0])
	}
	o, ok := cfg.Sessions[1].Override("bar")
	if !ok || o.ResumedStateText == nil || *o.ResumedStateText != ">" || o.Format != nil {
		t.Fatalf("unexpected override %+v", o)
	}
}

func TestLoadIterationLimit(t *testing.T) {
	t.Parallel()
	cases := []struct {
		body string
		want domain.IterationLimit
	}{
		{"", domain.Bounded(1)},
		{"loop_on_end = true\n", domain.Unbounded()},
		{"loop_on_end = true\niterations = 4\n", domain.Unbounded()},
		{"loop_on_end = true\niterations = 0\n", domain.Bounded(0)},
		{"iterations = 2\n", domain.Bounded(2)},
		{"iterations = 0\n", domain.Bounded(0)},
	}
	for _, tc := range cases {
		path := writeConfig(t, "uair.toml", tc.body+"[[sessions]]\n")
		cfg, err := load(t, path)
		if err != nil {
			t.Fatalf("load %q: %v", tc.body, err)
		}
		if cfg.Limit != tc.want {
			t.Fatalf("%q: limit %s, want %s", tc.body, cfg.Limit, tc.want)
		}
	}
}

func TestLoadRejectsInvalidConfig(t *testing.T) {
	t.Parallel()
	bodies := map[string]string{
		"duplicate ids":  "[[sessions]]\nid = \"a\"\n[[sessions]]\nid = \"a\"\n",
		"index clash":    "[[sessions]]\n[[sessions]]\nid = \"0\"\n",
		"bad duration":   "[[sessions]]\nduration = \"soon\"\n",
		"bad policy":     "iteration_policy = \"random\"\n[[sessions]]\n",
		"negative iters": "iterations = -1\n[[sessions]]\n",
		"syntax":         "sessions = [",
	}
	for name, body := range bodies {
		if _, err := load(t, writeConfig(t, "uair.toml", body)); !errors.Is(err, apperrors.ErrInvalidConfig) {
			t.Fatalf("%s: expected ErrInvalidConfig, got %v", name, err)
		}
	}
}

func TestLoadMissingFile(t *testing.T) {
	t.Parallel()
	_, err := load(t, filepath.Join(t.TempDir(), "absent.toml"))
	if !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("expected not-exist error, got %v", err)
	}
}

func TestLoadEmptyYAMLHasNoSessions(t *testing.T) {
	t.Parallel()
	cfg, err := load(t, writeConfig(t, "uair.yml", ""))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(cfg.Sessions) != 0 || cfg.Limit != domain.Bounded(1) {
		t.Fatalf("unexpected config %+v", cfg)
	}
}
