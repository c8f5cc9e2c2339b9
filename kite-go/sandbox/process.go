package sandbox

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/kiteco/retriever/kite-golib/exec"
)

// killWait bounds how long Kill waits for the killed child to be reaped
const killWait = 5 * time.Second

// Handle is a running child process as seen by the supervisor.
type Handle interface {
	// Pid returns the operating system process identifier
	Pid() int
	// ReadAvailable returns the output that arrived since the previous call without blocking.
	// eof is true once the output stream is closed and everything has been returned.
	ReadAvailable() (chunk []byte, eof bool)
	// TryWait reports the exit code if the process has exited, without blocking
	TryWait() (exitCode int, exited bool)
	// Done is closed once the process has exited
	Done() <-chan struct{}
	// Kill forcibly terminates the process and its process group and waits for it to be reaped.
	// It is safe to call more than once.
	Kill() error
	// Close releases the output stream. It is safe to call more than once.
	Close() error
}

// Spawner starts the process described by a policy
type Spawner func(Policy) (Handle, error)

// process implements Handle on top of os/exec. Stdout and stderr share one pipe, so the
// output keeps the order in which the child wrote it.
type process struct {
	cmd *exec.Cmd
	out *os.File

	buf      syncBuffer
	consumed int
	eof      chan struct{}

	done     chan struct{}
	exitCode int
	waitErr  error

	killOnce  sync.Once
	killErr   error
	closeOnce sync.Once
}

// StartProcess starts policy.Command in policy.Dir with stdin connected to the null device and
// stdout/stderr merged. Start failures are returned as *SpawnError.
func StartProcess(policy Policy) (Handle, error) {
	if policy.Command.Empty() {
		return nil, ErrEmptyCommand
	}

	r, w, err := os.Pipe()
	if err != nil {
		return nil, fmt.Errorf("error creating output pipe: %v", err)
	}

	cmd := exec.Command(policy.Command.Path, policy.Command.Args...)
	cmd.Dir = policy.Dir
	if len(policy.Env) > 0 {
		cmd.Env = append(os.Environ(), policy.Env...)
	}
	cmd.Stdin = nil
	cmd.Stdout = w
	cmd.Stderr = w

	err = cmd.Start()
	// the child holds its own copy of the write end
	w.Close()
	if err != nil {
		r.Close()
		return nil, &SpawnError{Command: policy.Command, Err: err}
	}

	p := &process{
		cmd:  cmd,
		out:  r,
		eof:  make(chan struct{}),
		done: make(chan struct{}),
	}
	go func() {
		io.Copy(&p.buf, r)
		close(p.eof)
	}()
	go func() {
		err := cmd.Wait()
		code, ok := exec.ExitCode(err)
		if !ok {
			code = -1
			p.waitErr = err
		}
		p.exitCode = code
		close(p.done)
	}()
	return p, nil
}

// Pid implements Handle
func (p *process) Pid() int {
	return p.cmd.Process.Pid
}

// ReadAvailable implements Handle
func (p *process) ReadAvailable() ([]byte, bool) {
	// check eof before reading so that no bytes written before eof can be missed
	var eof bool
	select {
	case <-p.eof:
		eof = true
	default:
	}
	chunk := p.buf.Since(p.consumed)
	p.consumed += len(chunk)
	return chunk, eof
}

// TryWait implements Handle
func (p *process) TryWait() (int, bool) {
	select {
	case <-p.done:
		return p.exitCode, true
	default:
		return 0, false
	}
}

// Done implements Handle
func (p *process) Done() <-chan struct{} {
	return p.done
}

// Kill implements Handle
func (p *process) Kill() error {
	p.killOnce.Do(func() {
		if err := exec.KillGroup(p.cmd); err != nil {
			p.killErr = fmt.Errorf("error killing process %d: %v", p.Pid(), err)
			return
		}
		select {
		case <-p.done:
		case <-time.After(killWait):
			p.killErr = fmt.Errorf("process %d still running %s after kill", p.Pid(), killWait)
		}
	})
	return p.killErr
}

// Close implements Handle
func (p *process) Close() error {
	var err error
	p.closeOnce.Do(func() {
		err = p.out.Close()
	})
	return err
}
