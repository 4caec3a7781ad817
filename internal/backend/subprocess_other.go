//go:build !linux

package backend

import "os/exec"

func setParentDeathSignal(cmd *exec.Cmd) {}
