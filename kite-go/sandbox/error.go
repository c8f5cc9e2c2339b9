package sandbox

import (
	"errors"
	"fmt"
	"time"

	humanize "github.com/dustin/go-humanize"
)

// ErrEmptyCommand is returned when a policy has no program to run
var ErrEmptyCommand = errors.New("sandbox: empty command")

// SpawnError is generated when a subprocess could not be started at all, e.g. because the
// program does not exist or is not executable.
type SpawnError struct {
	Command Command
	Err     error
}

// Error returns a description of what went wrong.
func (e *SpawnError) Error() string {
	return fmt.Sprintf("could not start %s: %v", e.Command, e.Err)
}

// Unwrap returns the underlying start error
func (e *SpawnError) Unwrap() error {
	return e.Err
}

// ExecutionError is generated when a subprocess ran to completion but returned a non-zero exit code.
type ExecutionError struct {
	Command  Command
	ExitCode int
	// Output is the combined stdout/stderr of the process
	Output []byte
}

// Error returns a description of what went wrong.
func (e *ExecutionError) Error() string {
	return fmt.Sprintf("%s exited with status %d. output was: %s", e.Command, e.ExitCode, e.Output)
}

// TimeLimitExceeded is generated when a subprocess runs longer than its time limit and was killed.
type TimeLimitExceeded struct {
	Command Command
	// Limit is the timeout (which was exceeded)
	Limit time.Duration
}

// Error returns a description of what went wrong.
func (e *TimeLimitExceeded) Error() string {
	return fmt.Sprintf("%s: time limit of %s exceeded", e.Command, e.Limit)
}

// SizeLimitExceeded is generated when a subprocess writes too much output, or too much data into
// its watched directory, and was killed.
type SizeLimitExceeded struct {
	Command Command
	// Source is "output" or the watched directory that grew too large
	Source string
	// Limit is the maximum size (which was exceeded)
	Limit int64
	// Size is the size observed when the limit tripped
	Size int64
}

// Error returns a description of what went wrong.
func (e *SizeLimitExceeded) Error() string {
	return fmt.Sprintf("%s: %s size limit of %s exceeded (%s)", e.Command, e.Source,
		humanize.Bytes(uint64(e.Limit)), humanize.Bytes(uint64(e.Size)))
}
