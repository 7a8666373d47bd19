//go:build windows

package infrastructure

import (
	"os/exec"
	"strconv"
)

// killProcessTree makes context cancellation kill the tool together with the
// processes it started
func killProcessTree(cmd *exec.Cmd) {
	cmd.Cancel = func() error {
		if err := exec.Command("taskkill", "/T", "/F", "/PID", strconv.Itoa(cmd.Process.Pid)).Run(); err != nil {
			return cmd.Process.Kill()
		}
		return nil
	}
}
