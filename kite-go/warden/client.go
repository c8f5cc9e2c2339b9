package warden

import (
	"sync"
	"time"

	"github.com/kiteco/retriever/kite-go/sandbox"
	"github.com/kiteco/retriever/kite-go/shell"
	"github.com/kiteco/retriever/kite-golib/envutil"
	"github.com/kiteco/retriever/kite-golib/errors"
	"github.com/kiteco/retriever/kite-golib/kitelog"
)

const (
	// DefaultProtocolTimeout bounds every control-plane call, independently of the jailed job
	DefaultProtocolTimeout = 30 * time.Second
	// maxResponseBytes bounds the output of a control-plane call; link responses carry the job's output
	maxResponseBytes = 64 << 20
)

// Config configures the jail manager client
type Config struct {
	// Binary is the jail manager executable
	Binary          string        `yaml:"binary"`
	ProtocolTimeout time.Duration `yaml:"protocol_timeout"`
}

// DefaultConfig reads WARDEN_BIN and WARDEN_PROTOCOL_TIMEOUT from the environment
func DefaultConfig() Config {
	return Config{
		Binary:          envutil.GetenvDefault("WARDEN_BIN", "warden"),
		ProtocolTimeout: envutil.GetenvDefaultDuration("WARDEN_PROTOCOL_TIMEOUT", DefaultProtocolTimeout),
	}
}

// Client drives the jail manager binary. It is safe for concurrent use; each session is not.
type Client struct {
	Binary          string
	ProtocolTimeout time.Duration
	Shell           *shell.Shell

	mu   sync.Mutex
	live map[string]bool
}

// NewClient returns a client for the given config, filling in defaults for zero fields
func NewClient(cfg Config, log *kitelog.Logger) *Client {
	if cfg.Binary == "" {
		cfg.Binary = "warden"
	}
	if cfg.ProtocolTimeout <= 0 {
		cfg.ProtocolTimeout = DefaultProtocolTimeout
	}
	return &Client{
		Binary:          cfg.Binary,
		ProtocolTimeout: cfg.ProtocolTimeout,
		Shell:           shell.New(log),
		live:            make(map[string]bool),
	}
}

// NewSession returns a session that has not yet created its jail
func (c *Client) NewSession() *Session {
	return &Session{client: c, jobs: make(map[string]bool)}
}

// RunCommandInJail runs script in a fresh jail; see RunCommandInJail
func (c *Client) RunCommandInJail(script []string, copyIn, copyOut []Copy) (string, error) {
	return RunCommandInJail(c.NewSession(), script, copyIn, copyOut)
}

// call sends one request to the jail manager under the protocol timeout
func (c *Client) call(msg *Message) (Response, error) {
	if err := msg.Validate(); err != nil {
		return nil, err
	}

	cmd := sandbox.Argv(c.Binary, msg.Args()...)
	out, err := c.Shell.OutputFor(cmd, shell.Options{
		Limits: sandbox.Limits{Timeout: c.ProtocolTimeout, MaxBytes: maxResponseBytes},
	})
	if err != nil {
		switch err := err.(type) {
		case *sandbox.TimeLimitExceeded:
			return nil, &ProtocolTimeoutError{Action: msg.Action, Limit: err.Limit}
		case *sandbox.ExecutionError:
			return nil, &JailError{Action: msg.Action, ExitCode: err.ExitCode, Output: string(err.Output)}
		case *sandbox.SizeLimitExceeded:
			return nil, &ProtocolError{Action: msg.Action, Reason: err.Error()}
		default:
			return nil, errors.Wrapf(err, "warden %s", msg.Action)
		}
	}
	return ParseResponse(out), nil
}

func (c *Client) register(handle string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.live[handle] {
		return &HandleExistsError{Handle: handle}
	}
	c.live[handle] = true
	return nil
}

func (c *Client) unregister(handle string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.live, handle)
}

// Live returns the number of jails created through this client and not yet destroyed
func (c *Client) Live() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.live)
}
