//go:build windows

package supervisor

import (
	"log/slog"
	"os"
	"os/exec"
	"syscall"

	"golang.org/x/sys/windows"
)

func configureProcess(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		CreationFlags: syscall.CREATE_NEW_PROCESS_GROUP,
	}
}

// interrupt sends CTRL_BREAK to the instance's process group. Instances
// without a console cannot receive it and are waited for.
func interrupt(p *os.Process, logger *slog.Logger) error {
	if err := windows.GenerateConsoleCtrlEvent(windows.CTRL_BREAK_EVENT, uint32(p.Pid)); err != nil {
		logger.Warn("console interrupt unavailable, waiting for application to exit",
			slog.Int("pid", p.Pid),
			slog.String("error", err.Error()),
		)
	}

	return nil
}
