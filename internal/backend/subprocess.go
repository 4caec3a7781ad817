// Package backend implements the downloaders that save a stream into a
// local file by driving external tools.
package backend

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/famomatic/yledl/internal/types"
)

// runCommands starts the given commands connected with pipes and waits for
// the first one to finish. A SIGINT received while waiting is relayed to
// the subprocess and reported as an incomplete download.
func runCommands(ctx context.Context, commands [][]string, extraEnv []string, logger logrus.FieldLogger) (types.RDCode, error) {
	if len(commands) == 0 {
		return types.RDSuccess, nil
	}

	shellCommand := commandPipelineString(commands)
	logger.WithField("command", shellCommand).Debug("executing")

	procs := make([]*exec.Cmd, 0, len(commands))
	for i, args := range commands {
		cmd := exec.CommandContext(ctx, args[0], args[1:]...)
		if len(extraEnv) > 0 {
			cmd.Env = append(os.Environ(), extraEnv...)
		}
		cmd.Stderr = os.Stderr
		if i == 0 {
			setParentDeathSignal(cmd)
		}
		if i > 0 {
			stdout, err := procs[i-1].StdoutPipe()
			if err != nil {
				return types.RDFailed, err
			}
			cmd.Stdin = stdout
		}
		if i == len(commands)-1 {
			cmd.Stdout = os.Stdout
		}
		procs = append(procs, cmd)
	}

	for _, cmd := range procs {
		if err := cmd.Start(); err != nil {
			logger.WithField("command", shellCommand).WithError(err).Error("failed to execute")
			return types.RDFailed, &types.ExternalApplicationError{
				Message: "failed to execute " + shellCommand,
				Err:     err,
			}
		}
	}

	interrupts := make(chan os.Signal, 1)
	signal.Notify(interrupts, os.Interrupt)
	defer signal.Stop(interrupts)

	waitResult := make(chan error, 1)
	go func() {
		var firstErr error
		// wait in reverse order so that the pipeline drains
		for i := len(procs) - 1; i >= 0; i-- {
			if err := procs[i].Wait(); err != nil && firstErr == nil {
				firstErr = err
			}
		}
		waitResult <- firstErr
	}()

	select {
	case <-interrupts:
		_ = procs[0].Process.Signal(os.Interrupt)
		<-waitResult
		return types.RDIncomplete, nil
	case err := <-waitResult:
		if err == nil {
			return types.RDSuccess, nil
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return types.RDFailed, &exitError{code: exitErr.ExitCode()}
		}
		return types.RDFailed, err
	}
}

// exitError carries the exit status of a failed subprocess.
type exitError struct {
	code int
}

func (e *exitError) Error() string {
	return fmt.Sprintf("subprocess exited with status %d", e.code)
}

func commandPipelineString(commands [][]string) string {
	parts := make([]string, 0, len(commands))
	for _, args := range commands {
		parts = append(parts, strings.Join(args, " "))
	}
	return strings.Join(parts, " | ")
}

// subprocessExitCode extracts the exit status from a runCommands error, or
// -1 when the error does not carry one.
func subprocessExitCode(err error) int {
	var xerr *exitError
	if errors.As(err, &xerr) {
		return xerr.code
	}
	return -1
}
