// +build !windows

package exec

import (
	"os"
	"os/exec"
	"syscall"

	"golang.org/x/sys/unix"
)

func newSysProcAttr() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{Setpgid: true}
}

func killGroup(p *os.Process) error {
	// pid <= 1 would address every process we can signal, or init
	if p.Pid <= 1 {
		return os.ErrProcessDone
	}
	err := unix.Kill(-p.Pid, unix.SIGKILL)
	if err == unix.ESRCH {
		// the group is gone, but the leader may not have been in it yet
		if err := p.Kill(); err != nil {
			return os.ErrProcessDone
		}
		return nil
	}
	return err
}

func exitCode(err *exec.ExitError) int {
	if status, ok := err.Sys().(syscall.WaitStatus); ok && status.Signaled() {
		return 128 + int(status.Signal())
	}
	return err.ExitCode()
}
