//go:build !windows

package host

import (
	"os/exec"
	"syscall"
)

// detach puts the child in its own process group so it survives the command.
func detach(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setpgid: true,
	}
}
