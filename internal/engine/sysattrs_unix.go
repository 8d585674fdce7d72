//go:build !windows

package engine

import (
	"os/exec"
	"syscall"
)

// configureSysProcAttr places the engine in its own process group so a
// termination signal reaches the postmaster and all of its backends.
func configureSysProcAttr(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}
