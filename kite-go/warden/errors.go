package warden

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrInvalidState is returned when a session operation is not allowed in the session's current state
	ErrInvalidState = errors.New("warden: invalid session state")
	// ErrUnknownJob is returned when linking to a job that was not spawned by the session
	ErrUnknownJob = errors.New("warden: unknown job")
)

// JailError is generated when the jail manager rejected a control-plane call.
type JailError struct {
	Action string
	// ExitCode is the exit code of the jail manager binary
	ExitCode int
	Output   string
}

// Error returns a description of what went wrong.
func (e *JailError) Error() string {
	return fmt.Sprintf("warden %s failed with exit code %d: %s", e.Action, e.ExitCode, e.Output)
}

// ProtocolError is generated when a control-plane request or response does not follow the protocol.
type ProtocolError struct {
	Action string
	Reason string
}

// Error returns a description of what went wrong.
func (e *ProtocolError) Error() string {
	return fmt.Sprintf("warden %s: protocol violation: %s", e.Action, e.Reason)
}

// ProtocolTimeoutError is generated when a control-plane call did not answer within the protocol timeout.
// It is unrelated to the time limits of the jailed job itself.
type ProtocolTimeoutError struct {
	Action string
	Limit  time.Duration
}

// Error returns a description of what went wrong.
func (e *ProtocolTimeoutError) Error() string {
	return fmt.Sprintf("warden %s: no answer within %s", e.Action, e.Limit)
}

// HandleExistsError is generated when the jail manager hands out a handle that is already in use.
type HandleExistsError struct {
	Handle string
}

// Error returns a description of what went wrong.
func (e *HandleExistsError) Error() string {
	return fmt.Sprintf("warden: handle %s already exists", e.Handle)
}

// SourceMissingError is generated when the source of a copy does not exist.
type SourceMissingError struct {
	Path string
}

// Error returns a description of what went wrong.
func (e *SourceMissingError) Error() string {
	return fmt.Sprintf("warden: copy source %s does not exist", e.Path)
}

// DestinationDirMissingError is generated when the directory that would contain the destination of a
// copy does not exist.
type DestinationDirMissingError struct {
	Path string
}

// Error returns a description of what went wrong.
func (e *DestinationDirMissingError) Error() string {
	return fmt.Sprintf("warden: copy destination directory for %s does not exist", e.Path)
}

// JobFailedError is generated when the jailed script ran but exited with a non-zero status.
type JobFailedError struct {
	JobID  string
	Result LinkResult
}

// Error returns a description of what went wrong.
func (e *JobFailedError) Error() string {
	return fmt.Sprintf("warden job %s exited with status %d. stderr was: %s", e.JobID, e.Result.ExitStatus, e.Result.Stderr)
}
