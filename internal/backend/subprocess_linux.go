package backend

import (
	"os/exec"
	"syscall"
)

// setParentDeathSignal asks the kernel to send SIGTERM to the subprocess
// if this process dies before it.
func setParentDeathSignal(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Pdeathsig: syscall.SIGTERM}
}
