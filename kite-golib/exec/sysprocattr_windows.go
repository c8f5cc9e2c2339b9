// +build windows

package exec

import (
	"os"
	"os/exec"
	"syscall"

	"github.com/winlabs/gowin32/wrappers"
)

func newSysProcAttr() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{
		HideWindow:    true,
		CreationFlags: wrappers.CREATE_NO_WINDOW | syscall.CREATE_NEW_PROCESS_GROUP,
	}
}

func killGroup(p *os.Process) error {
	if err := p.Kill(); err != nil {
		return os.ErrProcessDone
	}
	return nil
}

func exitCode(err *exec.ExitError) int {
	return err.ExitCode()
}
