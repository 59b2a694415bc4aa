package out

import (
	"fmt"
	"os"
	"os/exec"

	"github.com/charmbracelet/log"

	timerout "uair/internal/modules/timer/port/out"
)

// ShellRunner starts end-actions through sh -c with the session name and
// duration exported as $name and $duration. It never waits on the child; a
// background goroutine reaps it.
type ShellRunner struct {
	shell  string
	logger *log.Logger
}

func NewShellRunner(logger *log.Logger) timerout.EndActionRunner {
	return &ShellRunner{shell: "sh", logger: logger}
}

func (r *ShellRunner) Spawn(name, duration, command string) error {
	if command == "" {
		return nil
	}
	cmd := exec.Command(r.shell, "-c", command)
	cmd.Env = append(os.Environ(), "name="+name, "duration="+duration)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start end action: %w", err)
	}
	go func() {
		if err := cmd.Wait(); err != nil {
			r.logger.Warn("end action exited", "session", name, "err", err)
		}
	}()
	return nil
}
