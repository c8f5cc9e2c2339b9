// Package exec wraps os/exec so that every child runs detached from the caller's terminal and can be
// killed together with any processes it spawned.
package exec

import (
	"errors"
	"os"
	"os/exec"
)

// Cmd is os/exec.Cmd
type Cmd = exec.Cmd

// ExitError is os/exec.ExitError
type ExitError = exec.ExitError

// LookPath is os/exec.LookPath
var LookPath = exec.LookPath

// Command is os/exec.Command, but starts the child in its own process group (unix) or without
// a console window (windows).
func Command(name string, arg ...string) *Cmd {
	cmd := exec.Command(name, arg...)
	cmd.SysProcAttr = newSysProcAttr()
	return cmd
}

// KillGroup forcibly terminates the started command and everything in its process group.
// It does not reap the child; the caller still owns cmd.Wait.
func KillGroup(cmd *Cmd) error {
	if cmd.Process == nil {
		return os.ErrProcessDone
	}
	err := killGroup(cmd.Process)
	if errors.Is(err, os.ErrProcessDone) {
		return nil
	}
	return err
}

// ExitCode extracts the exit code from the error returned by cmd.Wait. A nil error is exit code 0.
// The boolean is false if err does not describe a process exit.
func ExitCode(err error) (int, bool) {
	if err == nil {
		return 0, true
	}
	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) {
		return 0, false
	}
	return exitCode(exitErr), true
}
