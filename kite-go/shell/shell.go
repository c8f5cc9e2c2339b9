// Package shell runs external commands synchronously on behalf of retrievers and builders: it logs
// each command, runs it under a sandbox.Supervisor, and turns the outcome into an exit code, the
// captured output, or a typed error.
package shell

import (
	"time"

	"github.com/kiteco/retriever/kite-go/sandbox"
	"github.com/kiteco/retriever/kite-golib/kitelog"
)

// Options control a single command
type Options struct {
	// Dir is the working directory of the command; empty means the current directory. The current
	// directory of this process is never changed.
	Dir string
	// Env holds extra KEY=value pairs for the command
	Env    []string
	Limits sandbox.Limits
	// WatchDir is measured against Limits.MaxBytes in addition to the output
	WatchDir string
	// AllowFailure makes Execute return a non-zero exit code instead of an *sandbox.ExecutionError
	AllowFailure bool
}

// Shell runs commands and reports failures as errors
type Shell struct {
	Supervisor *sandbox.Supervisor
	Log        *kitelog.Logger
}

// New returns a shell that logs to log
func New(log *kitelog.Logger) *Shell {
	return &Shell{
		Supervisor: sandbox.NewSupervisor(log),
		Log:        log,
	}
}

// Default is the shell used by the package-level functions
var Default = New(kitelog.NewForComponent("shell"))

// Execute runs cmd with the default shell
func Execute(cmd sandbox.Command, opts Options) (int, error) {
	return Default.Execute(cmd, opts)
}

// OutputFor runs cmd with the default shell and returns its output
func OutputFor(cmd sandbox.Command, opts Options) (string, error) {
	return Default.OutputFor(cmd, opts)
}

// ExecuteLine runs line through the platform interpreter with the default shell
func ExecuteLine(line string, opts Options) (int, error) {
	return Default.Execute(sandbox.Line(line), opts)
}

// OutputForLine runs line through the platform interpreter with the default shell and returns its output
func OutputForLine(line string, opts Options) (string, error) {
	return Default.OutputFor(sandbox.Line(line), opts)
}

// Execute runs cmd and returns its exit code. A non-zero exit is an *sandbox.ExecutionError unless
// opts.AllowFailure is set; exceeding a limit is always a *sandbox.TimeLimitExceeded or
// *sandbox.SizeLimitExceeded.
func (s *Shell) Execute(cmd sandbox.Command, opts Options) (int, error) {
	completed, err := s.run(cmd, opts)
	if err != nil {
		return 0, err
	}
	return completed.ExitCode, nil
}

// OutputFor runs cmd and returns everything it wrote to stdout and stderr. It fails like Execute,
// except that a non-zero exit is always an error.
func (s *Shell) OutputFor(cmd sandbox.Command, opts Options) (string, error) {
	opts.AllowFailure = false
	completed, err := s.run(cmd, opts)
	if err != nil {
		return "", err
	}
	return string(completed.Output), nil
}

// Run runs cmd and returns both its output and its exit code. It fails like Execute.
func (s *Shell) Run(cmd sandbox.Command, opts Options) (string, int, error) {
	completed, err := s.run(cmd, opts)
	if err != nil {
		return "", 0, err
	}
	return string(completed.Output), completed.ExitCode, nil
}

func (s *Shell) run(cmd sandbox.Command, opts Options) (sandbox.Completed, error) {
	if opts.Dir != "" {
		s.Log.Printf("+ %s  (in %s)", cmd, opts.Dir)
	} else {
		s.Log.Printf("+ %s", cmd)
	}

	start := time.Now()
	outcome, err := s.Supervisor.Run(sandbox.Policy{
		Command:  cmd,
		Dir:      opts.Dir,
		Env:      opts.Env,
		Limits:   opts.Limits,
		WatchDir: opts.WatchDir,
	})
	s.Log.Durations.Record(cmd.Path, time.Since(start))
	if err != nil {
		return sandbox.Completed{}, err
	}

	switch outcome := outcome.(type) {
	case sandbox.Completed:
		if outcome.ExitCode != 0 && !opts.AllowFailure {
			return outcome, &sandbox.ExecutionError{Command: cmd, ExitCode: outcome.ExitCode, Output: outcome.Output}
		}
		return outcome, nil
	case sandbox.TimedOut:
		return sandbox.Completed{}, &sandbox.TimeLimitExceeded{Command: cmd, Limit: outcome.Limit}
	case sandbox.SizeExceeded:
		return sandbox.Completed{}, &sandbox.SizeLimitExceeded{
			Command: cmd,
			Source:  outcome.Source,
			Limit:   outcome.Limit,
			Size:    outcome.Size,
		}
	default:
		panic("unknown outcome")
	}
}
