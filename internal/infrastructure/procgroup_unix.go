//go:build !windows

package infrastructure

import (
	"errors"
	"os/exec"
	"syscall"
)

// killProcessTree runs the tool in its own process group; cancellation kills
// the whole group, including workers it forked such as ffmpeg
func killProcessTree(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		err := syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
		if errors.Is(err, syscall.ESRCH) {
			return cmd.Process.Kill()
		}
		return err
	}
}
