// Package retrieve fetches repositories into local working copies by running the matching client (git,
// svn or curl) through a shell with per-type time and size limits.
package retrieve

import (
	"os"
	"path/filepath"
	"time"

	"github.com/kiteco/retriever/kite-go/sandbox"
	"github.com/kiteco/retriever/kite-go/shell"
	"github.com/kiteco/retriever/kite-golib/errors"
)

// Result describes a retrieved working copy
type Result struct {
	Identity Identity
	// Dir is the working copy
	Dir string
	// Revision is the commit hash for git, the revision number for svn and the content hash for downloads
	Revision string
	Elapsed  time.Duration
}

// Retriever fetches one kind of repository
type Retriever interface {
	// Retrieve fetches id into dest, which must not exist yet
	Retrieve(id Identity, dest string) (*Result, error)
}

// Limits holds the limits for each repository type
type Limits struct {
	Git      sandbox.Limits `yaml:"git"`
	Svn      sandbox.Limits `yaml:"svn"`
	Download sandbox.Limits `yaml:"download"`
}

// DefaultLimits are generous enough for large monorepos while still catching runaway clients
var DefaultLimits = Limits{
	Git:      sandbox.Limits{Timeout: 30 * time.Minute, MaxBytes: 8 << 30},
	Svn:      sandbox.Limits{Timeout: 30 * time.Minute, MaxBytes: 8 << 30},
	Download: sandbox.Limits{Timeout: 10 * time.Minute, MaxBytes: 2 << 30},
}

// For returns the limits for typ
func (l Limits) For(typ Type) sandbox.Limits {
	switch typ {
	case Git:
		return l.Git
	case Svn:
		return l.Svn
	default:
		return l.Download
	}
}

// New returns the retriever for typ
func New(typ Type, sh *shell.Shell, limits Limits) (Retriever, error) {
	switch typ {
	case Git:
		return &GitRetriever{Shell: sh, Limits: limits.Git}, nil
	case Svn:
		return &SvnRetriever{Shell: sh, Limits: limits.Svn}, nil
	case Download:
		return &DownloadRetriever{Shell: sh, Limits: limits.Download}, nil
	default:
		return nil, errors.Errorf("unknown repository type %q", typ)
	}
}

// Retrieve validates id and fetches it into dest with the matching retriever
func Retrieve(sh *shell.Shell, limits Limits, id Identity, dest string) (*Result, error) {
	if err := id.Validate(); err != nil {
		return nil, err
	}
	r, err := New(id.Type, sh, limits)
	if err != nil {
		return nil, err
	}
	return r.Retrieve(id, dest)
}

// prepare checks that dest does not exist and creates its parent
func prepare(dest string) (string, error) {
	dest, err := filepath.Abs(dest)
	if err != nil {
		return "", err
	}
	if _, err := os.Lstat(dest); err == nil {
		return "", errors.Errorf("destination %s already exists", dest)
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return "", errors.Wrapf(err, "error creating parent of %s", dest)
	}
	return dest, nil
}
