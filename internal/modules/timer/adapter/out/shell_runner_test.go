package out_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	out "uair/internal/modules/timer/adapter/out"
	"uair/internal/platform/logging"
)

func TestShellRunnerExportsSessionEnv(t *testing.T) {
	t.Parallel()
	target := filepath.Join(t.TempDir(), "done.txt")
	runner := out.NewShellRunner(logging.Discard())
	if err := runner.Spawn("Work", "25m", `printf '%s %s' "$name" "$duration" > `+target); err != nil {
		t.Fatalf("spawn: %v", err)
	}

	deadline := time.Now().Add(3 * time.Second)
	for {
		raw, err := os.ReadFile(target)
		if err == nil && strings.TrimSpace(string(raw)) == "Work 25m" {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("end action did not run, last read %q err=%v", raw, err)
		}
		time.Sleep(20 * time.Millisecond)
	}
}

func TestShellRunnerSkipsEmptyCommand(t *testing.T) {
	t.Parallel()
	if err := out.NewShellRunner(logging.Discard()).Spawn("Work", "25m", ""); err != nil {
		t.Fatalf("expected no-op, got %v", err)
	}
}
