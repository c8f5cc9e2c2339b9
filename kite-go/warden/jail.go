package warden

import (
	"runtime"
	"strings"

	"github.com/kiteco/retriever/kite-golib/errors"
)

// Jail is an isolated execution context. Session drives the warden binary; ContainerJail drives docker.
type Jail interface {
	Handle() string
	Create() error
	CopyIn(hostPath, jailedPath string) error
	CopyOut(jailedPath, hostPath string) error
	Spawn(script string) (string, error)
	Link(jobID string) (*LinkResult, error)
	Destroy() error
}

// Copy is one file or directory to move across the jail boundary
type Copy struct {
	From string
	To   string
}

// JoinScript joins commands with the statement separator of the platform interpreter
func JoinScript(commands []string) string {
	if runtime.GOOS == "windows" {
		return strings.Join(commands, " & ")
	}
	return strings.Join(commands, "; ")
}

// RunCommandInJail creates the jail, copies copyIn in (host -> jailed), runs script, waits for it,
// copies copyOut out (jailed -> host) and returns the script's stdout. The jail is destroyed on every
// path, including when a copy, spawn or link fails; a destroy failure is combined with the original
// error. A script that exits non-zero yields a *JobFailedError and nothing is copied out.
func RunCommandInJail(j Jail, script []string, copyIn, copyOut []Copy) (stdout string, err error) {
	if err := j.Create(); err != nil {
		return "", err
	}
	defer errors.Defer(&err, func() error {
		return errors.WrapfOrNil(j.Destroy(), "destroying jail %s", j.Handle())
	})

	for _, c := range copyIn {
		if err := j.CopyIn(c.From, c.To); err != nil {
			return "", err
		}
	}

	jobID, err := j.Spawn(JoinScript(script))
	if err != nil {
		return "", err
	}
	result, err := j.Link(jobID)
	if err != nil {
		return "", err
	}
	if result.ExitStatus != 0 {
		return "", &JobFailedError{JobID: jobID, Result: *result}
	}

	for _, c := range copyOut {
		if err := j.CopyOut(c.From, c.To); err != nil {
			return "", err
		}
	}
	return result.Stdout, nil
}
