package warden

import (
	"strconv"

	"github.com/kiteco/retriever/kite-golib/errors"
	"github.com/kiteco/retriever/kite-golib/fileutil"
)

type state int

const (
	uncreated state = iota
	created
	populated
	spawned
	linked
	destroyed
)

var stateNames = [...]string{"uncreated", "created", "populated", "spawned", "linked", "destroyed"}

func (s state) String() string {
	return stateNames[s]
}

// LinkResult is the result of a jailed job
type LinkResult struct {
	ExitStatus int
	Stdout     string
	Stderr     string
}

// Session is one jail managed through the jail manager binary. A session moves from uncreated to
// created on Create, may then copy files and spawn and link jobs any number of times, and ends with
// Destroy. It is not safe for concurrent use.
type Session struct {
	client *Client
	handle string
	state  state
	jobs   map[string]bool
}

// Handle returns the identifier of the jail, or "" before Create
func (s *Session) Handle() string {
	return s.handle
}

// Create asks the jail manager for a new jail
func (s *Session) Create() error {
	if s.state != uncreated {
		return s.invalid(ActionCreate)
	}
	resp, err := s.client.call(NewMessage(ActionCreate))
	if err != nil {
		return err
	}
	handle, err := resp.Get(ActionCreate, FieldHandle)
	if err != nil {
		return err
	}
	if handle == "" {
		return &ProtocolError{Action: ActionCreate, Reason: "empty handle"}
	}
	if err := s.client.register(handle); err != nil {
		return err
	}
	s.handle = handle
	s.state = created
	return nil
}

// CopyIn copies the host file or directory at hostPath to jailedPath inside the jail
func (s *Session) CopyIn(hostPath, jailedPath string) error {
	if !s.alive() {
		return s.invalid(ActionCopyIn)
	}
	if !fileutil.Exists(hostPath) {
		return &SourceMissingError{Path: hostPath}
	}
	_, err := s.client.call(NewMessage(ActionCopyIn).
		With("handle", s.handle).
		With("src_path", hostPath).
		With("dst_path", jailedPath))
	if err != nil {
		return err
	}
	if s.state == created {
		s.state = populated
	}
	return nil
}

// CopyOut copies jailedPath from inside the jail to hostPath
func (s *Session) CopyOut(jailedPath, hostPath string) error {
	if !s.alive() {
		return s.invalid(ActionCopyOut)
	}
	if !fileutil.ParentExists(hostPath) {
		return &DestinationDirMissingError{Path: hostPath}
	}
	_, err := s.client.call(NewMessage(ActionCopyOut).
		With("handle", s.handle).
		With("src_path", jailedPath).
		With("dst_path", hostPath))
	return err
}

// Spawn starts script inside the jail and returns its job id as soon as the jail manager accepted
// it; the script keeps running after Spawn returns.
func (s *Session) Spawn(script string) (string, error) {
	if !s.alive() {
		return "", s.invalid(ActionSpawn)
	}
	resp, err := s.client.call(NewMessage(ActionSpawn).
		With("handle", s.handle).
		With("script", script))
	if err != nil {
		return "", err
	}
	jobID, err := resp.Get(ActionSpawn, FieldJobID)
	if err != nil {
		return "", err
	}
	s.jobs[jobID] = true
	s.state = spawned
	return jobID, nil
}

// Link waits for a spawned job to finish and returns its exit status and output
func (s *Session) Link(jobID string) (*LinkResult, error) {
	if !s.alive() {
		return nil, s.invalid(ActionLink)
	}
	if !s.jobs[jobID] {
		return nil, ErrUnknownJob
	}
	resp, err := s.client.call(NewMessage(ActionLink).
		With("handle", s.handle).
		With("job_id", jobID))
	if err != nil {
		return nil, err
	}

	status, err := resp.Get(ActionLink, FieldExitStatus)
	if err != nil {
		return nil, err
	}
	code, err := strconv.Atoi(status)
	if err != nil {
		return nil, &ProtocolError{Action: ActionLink, Reason: "bad exit_status " + strconv.Quote(status)}
	}

	delete(s.jobs, jobID)
	s.state = linked
	return &LinkResult{
		ExitStatus: code,
		Stdout:     resp[FieldStdout],
		Stderr:     resp[FieldStderr],
	}, nil
}

// Destroy tears the jail down. Destroying a session that was never created, or was already
// destroyed, does nothing.
func (s *Session) Destroy() error {
	if s.state == uncreated || s.state == destroyed {
		return nil
	}
	if _, err := s.client.call(NewMessage(ActionDestroy).With("handle", s.handle)); err != nil {
		return err
	}
	s.client.unregister(s.handle)
	s.state = destroyed
	return nil
}

func (s *Session) alive() bool {
	return s.state != uncreated && s.state != destroyed
}

func (s *Session) invalid(action string) error {
	return errors.Wrapf(ErrInvalidState, "%s in state %s", action, s.state)
}
