package retrieve

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/go-git/go-git/v5/plumbing/transport"

	"github.com/kiteco/retriever/kite-golib/errors"
)

// Type is the kind of repository an identity points to
type Type string

const (
	// Git repositories are cloned with the git client
	Git Type = "git"
	// Svn repositories are checked out with the svn client
	Svn Type = "svn"
	// Download fetches a single file or archive over http(s)
	Download Type = "download"
)

// Types lists the supported repository types
var Types = []Type{Git, Svn, Download}

// Identity names a repository and the revision to retrieve from it
type Identity struct {
	Type Type   `yaml:"type" json:"type"`
	URL  string `yaml:"url" json:"url"`
	// Ref is a branch, tag or commit for git and a revision for svn; empty means the default head
	Ref string `yaml:"ref,omitempty" json:"ref,omitempty"`
}

// String returns e.g. "git+https://github.com/kiteco/kiteco@master"
func (id Identity) String() string {
	s := string(id.Type) + "+" + id.URL
	if id.Ref != "" {
		s += "@" + id.Ref
	}
	return s
}

// Validate checks that the URL can be handled by the client for the identity's type
func (id Identity) Validate() error {
	if strings.TrimSpace(id.URL) == "" {
		return errors.Errorf("%s: empty url", id.Type)
	}
	if strings.HasPrefix(id.Ref, "-") {
		return errors.Errorf("%s: ref %q looks like a flag", id, id.Ref)
	}

	switch id.Type {
	case Git:
		ep, err := transport.NewEndpoint(id.URL)
		if err != nil {
			return errors.Wrapf(err, "invalid git url %s", id.URL)
		}
		switch ep.Protocol {
		case "https", "http", "ssh", "git", "file":
			return nil
		default:
			return errors.Errorf("unsupported git protocol %s in %s", ep.Protocol, id.URL)
		}
	case Svn:
		return checkScheme(id.URL, "svn", "svn+ssh", "http", "https", "file")
	case Download:
		return checkScheme(id.URL, "http", "https", "file")
	default:
		return errors.Errorf("unknown repository type %q", id.Type)
	}
}

func checkScheme(raw string, schemes ...string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return errors.Wrapf(err, "invalid url %s", raw)
	}
	for _, s := range schemes {
		if u.Scheme == s {
			return nil
		}
	}
	return fmt.Errorf("unsupported scheme %q in %s (want one of %s)", u.Scheme, raw, strings.Join(schemes, ", "))
}

// ParseIdentity parses the form produced by Identity.String
func ParseIdentity(s string) (Identity, error) {
	plus := strings.Index(s, "+")
	if plus < 0 {
		return Identity{}, errors.Errorf("%s: expected <type>+<url>[@ref]", s)
	}
	id := Identity{Type: Type(s[:plus]), URL: s[plus+1:]}

	// the ref separator is the last @ after the host part, so user@host urls survive
	if at := strings.LastIndex(id.URL, "@"); at > pathStart(id.URL) {
		id.URL, id.Ref = id.URL[:at], id.URL[at+1:]
	}
	return id, id.Validate()
}

// pathStart returns the index at which the path of a url begins: after the host of scheme://host/path,
// at the colon of scp-like user@host:path, and at 0 for local paths.
func pathStart(raw string) int {
	if i := strings.Index(raw, "://"); i >= 0 {
		j := strings.Index(raw[i+3:], "/")
		if j < 0 {
			return len(raw)
		}
		return i + 3 + j
	}
	if c := strings.Index(raw, ":"); c >= 0 && !strings.Contains(raw[:c], "/") {
		return c
	}
	return 0
}
