package sandbox

import (
	"time"

	"github.com/spf13/afero"

	"github.com/kiteco/retriever/kite-golib/fileutil"
	"github.com/kiteco/retriever/kite-golib/kitelog"
)

const (
	// DefaultTick is how often a running process is checked against its limits. It bounds how
	// long a limit can be exceeded before the process is killed.
	DefaultTick = 100 * time.Millisecond

	// DefaultDrainTimeout bounds how long output is collected after the process exits. Grandchildren
	// that inherited the output pipe can keep it open indefinitely.
	DefaultDrainTimeout = 2 * time.Second

	drainPoll = 10 * time.Millisecond
)

// Policy describes one supervised execution
type Policy struct {
	Command Command
	// Dir is the working directory of the child; empty means the caller's current directory
	Dir string
	// Env holds extra KEY=value pairs added to the inherited environment
	Env    []string
	Limits Limits
	// WatchDir, if set, is a directory the command writes into. Its total size is checked against
	// Limits.MaxBytes in addition to the captured output.
	WatchDir string
}

// Supervisor runs commands and enforces their time and size limits.
type Supervisor struct {
	// Tick is the polling interval; zero means DefaultTick
	Tick time.Duration
	// DrainTimeout bounds output collection after exit; zero means DefaultDrainTimeout
	DrainTimeout time.Duration
	// Spawn starts processes; nil means StartProcess
	Spawn Spawner
	// Fs is the filesystem on which WatchDir is measured; nil means the real filesystem
	Fs  afero.Fs
	Log kitelog.Interface
}

// NewSupervisor returns a supervisor with default settings that logs to log
func NewSupervisor(log kitelog.Interface) *Supervisor {
	return &Supervisor{Log: log}
}

// Run starts policy.Command and blocks until it exits or is killed for exceeding a limit. Exactly
// one Outcome is returned per call unless the process could not be started, in which case the error
// is a *SpawnError (or ErrEmptyCommand). When a limit trips, Run returns only after the process has
// been killed and reaped.
func (s *Supervisor) Run(policy Policy) (Outcome, error) {
	if policy.Command.Empty() {
		return nil, ErrEmptyCommand
	}
	if policy.Limits.Unbounded() {
		s.logf("no time or size limit for %s", policy.Command)
	}

	spawn := s.Spawn
	if spawn == nil {
		spawn = StartProcess
	}
	start := time.Now()
	h, err := spawn(policy)
	if err != nil {
		return nil, err
	}
	defer h.Close()

	tick := s.Tick
	if tick <= 0 {
		tick = DefaultTick
	}
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	var output []byte
	for {
		if code, exited := h.TryWait(); exited {
			output, eof := s.drain(h, output)
			if over, ok := s.checkSize(policy, int64(len(output))); ok {
				// exited, but a leftover grandchild may still hold the group
				s.kill(h, policy)
				return over, nil
			}
			if !eof {
				// a grandchild still holds the output open; it is not left running unsupervised
				s.kill(h, policy)
			}
			return Completed{ExitCode: code, Output: output, Elapsed: time.Since(start)}, nil
		}

		chunk, _ := h.ReadAvailable()
		output = append(output, chunk...)
		if over, ok := s.checkSize(policy, int64(len(output))); ok {
			s.logf("killing %s (pid %d): %s size %d exceeds %d", policy.Command, h.Pid(), over.Source, over.Size, over.Limit)
			s.kill(h, policy)
			return over, nil
		}

		if elapsed := time.Since(start); policy.Limits.timeExceeded(elapsed) {
			s.logf("killing %s (pid %d): running for %s, limit %s", policy.Command, h.Pid(), elapsed, policy.Limits.Timeout)
			s.kill(h, policy)
			return TimedOut{Limit: policy.Limits.Timeout, Elapsed: elapsed}, nil
		}

		select {
		case <-h.Done():
		case <-ticker.C:
		}
	}
}

// drain collects the output that is still buffered after exit. It reports whether the output was
// closed before the drain timeout.
func (s *Supervisor) drain(h Handle, output []byte) ([]byte, bool) {
	timeout := s.DrainTimeout
	if timeout <= 0 {
		timeout = DefaultDrainTimeout
	}
	deadline := time.Now().Add(timeout)
	for {
		chunk, eof := h.ReadAvailable()
		output = append(output, chunk...)
		if eof {
			return output, true
		}
		if time.Now().After(deadline) {
			s.logf("output of pid %d still open %s after exit, killing its group", h.Pid(), timeout)
			return output, false
		}
		time.Sleep(drainPoll)
	}
}

// checkSize compares the captured output, then the watched directory, against the byte limit
func (s *Supervisor) checkSize(policy Policy, outputSize int64) (SizeExceeded, bool) {
	limits := policy.Limits
	if limits.MaxBytes <= 0 {
		return SizeExceeded{}, false
	}
	if limits.sizeExceeded(outputSize) {
		return SizeExceeded{Source: "output", Limit: limits.MaxBytes, Size: outputSize}, true
	}
	if policy.WatchDir == "" {
		return SizeExceeded{}, false
	}

	fs := s.Fs
	if fs == nil {
		fs = fileutil.OS
	}
	dirSize, err := fileutil.DirSize(fs, policy.WatchDir)
	if err != nil {
		s.logf("error measuring %s: %v", policy.WatchDir, err)
		return SizeExceeded{}, false
	}
	if limits.sizeExceeded(dirSize) {
		return SizeExceeded{Source: policy.WatchDir, Limit: limits.MaxBytes, Size: dirSize}, true
	}
	return SizeExceeded{}, false
}

func (s *Supervisor) kill(h Handle, policy Policy) {
	if err := h.Kill(); err != nil {
		s.logf("error killing %s: %v", policy.Command, err)
	}
}

func (s *Supervisor) logf(format string, args ...interface{}) {
	if s.Log != nil {
		s.Log.Printf(format, args...)
	}
}
