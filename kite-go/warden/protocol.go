package warden

import (
	"regexp"
	"strings"
)

// Control-plane actions understood by the jail manager
const (
	ActionCreate  = "create"
	ActionCopyIn  = "copy_in"
	ActionCopyOut = "copy_out"
	ActionSpawn   = "spawn"
	ActionLink    = "link"
	ActionDestroy = "destroy"
)

// Response fields printed by the jail manager
const (
	FieldHandle     = "handle"
	FieldJobID      = "job_id"
	FieldExitStatus = "exit_status"
	FieldStdout     = "stdout"
	FieldStderr     = "stderr"
)

// required lists the flags each action must carry
var required = map[string][]string{
	ActionCreate:  nil,
	ActionCopyIn:  {"handle", "src_path", "dst_path"},
	ActionCopyOut: {"handle", "src_path", "dst_path"},
	ActionSpawn:   {"handle", "script"},
	ActionLink:    {"handle", "job_id"},
	ActionDestroy: {"handle"},
}

var fieldLine = regexp.MustCompile(`^(handle|job_id|exit_status|stdout|stderr)\s*:\s?(.*)$`)

// Flag is one --key value pair
type Flag struct {
	Key   string
	Value string
}

// Message is one control-plane request: an action followed by flags, in order.
type Message struct {
	Action string
	Flags  []Flag
}

// NewMessage starts a request for the given action
func NewMessage(action string) *Message {
	return &Message{Action: action}
}

// With appends a flag and returns the message
func (m *Message) With(key, value string) *Message {
	m.Flags = append(m.Flags, Flag{Key: key, Value: value})
	return m
}

// Validate checks that the action is known and every required flag is present
func (m *Message) Validate() error {
	flags, ok := required[m.Action]
	if !ok {
		return &ProtocolError{Action: m.Action, Reason: "unknown action"}
	}
	for _, key := range flags {
		if !m.has(key) {
			return &ProtocolError{Action: m.Action, Reason: "missing --" + key}
		}
	}
	return nil
}

func (m *Message) has(key string) bool {
	for _, f := range m.Flags {
		if f.Key == key {
			return true
		}
	}
	return false
}

// Args renders the message as arguments for the jail manager binary:
// -- <action> [--<key> <value>]...
func (m *Message) Args() []string {
	args := make([]string, 0, 2+2*len(m.Flags))
	args = append(args, "--", m.Action)
	for _, f := range m.Flags {
		args = append(args, "--"+f.Key, f.Value)
	}
	return args
}

// Response holds the fields printed by the jail manager
type Response map[string]string

// ParseResponse reads "<field> : <value>" lines. handle, job_id and exit_status are single-line values
// that may only appear before stdout, and each is kept the first time it is seen. Once stdout starts
// every line belongs to it until a stderr line; everything after that belongs to stderr. Job output
// therefore cannot replace a field printed by the jail manager.
func ParseResponse(output string) Response {
	resp := make(Response)
	var (
		current string
		lines   []string
	)
	for _, line := range strings.Split(strings.TrimRight(output, "\n"), "\n") {
		switch current {
		case FieldStderr:
			lines = append(lines, line)
			continue
		case FieldStdout:
			if m := fieldLine.FindStringSubmatch(line); m != nil && m[1] == FieldStderr {
				resp[FieldStdout] = strings.Join(lines, "\n")
				current, lines = FieldStderr, []string{m[2]}
			} else {
				lines = append(lines, line)
			}
			continue
		}

		m := fieldLine.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		switch m[1] {
		case FieldStdout, FieldStderr:
			current, lines = m[1], []string{m[2]}
		default:
			if _, seen := resp[m[1]]; !seen {
				resp[m[1]] = m[2]
			}
		}
	}
	if current != "" {
		resp[current] = strings.Join(lines, "\n")
	}
	return resp
}

// Get returns a field that the action must have answered with
func (r Response) Get(action, field string) (string, error) {
	v, ok := r[field]
	if !ok {
		return "", &ProtocolError{Action: action, Reason: "response has no " + field}
	}
	return v, nil
}
