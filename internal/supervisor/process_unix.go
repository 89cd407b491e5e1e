//go:build !windows

package supervisor

import (
	"errors"
	"log/slog"
	"os"
	"os/exec"
	"syscall"

	"golang.org/x/sys/unix"
)

// configureProcess puts the instance in its own process group so that the
// interrupt reaches every process it spawned.
func configureProcess(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

func interrupt(p *os.Process, logger *slog.Logger) error {
	pgid, err := unix.Getpgid(p.Pid)
	if err != nil {
		if errors.Is(err, unix.ESRCH) {
			return nil
		}

		logger.Debug("process group unavailable, interrupting process only", slog.Int("pid", p.Pid))

		return p.Signal(os.Interrupt)
	}

	if err := unix.Kill(-pgid, unix.SIGINT); err != nil && !errors.Is(err, unix.ESRCH) {
		return err
	}

	return nil
}
