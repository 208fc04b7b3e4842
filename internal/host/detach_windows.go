//go:build windows

package host

import (
	"os/exec"
	"syscall"
)

// detach hides the console window of launched helpers.
func detach(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		HideWindow: true,
	}
}
