package retrieve

import (
	"regexp"
	"time"

	version "github.com/hashicorp/go-version"

	"github.com/kiteco/retriever/kite-go/sandbox"
	"github.com/kiteco/retriever/kite-go/shell"
	"github.com/kiteco/retriever/kite-golib/errors"
)

// client is the external program a repository type is retrieved with
type client struct {
	program string
	args    []string
	// constraint lists the features the retrievers rely on
	constraint string
}

var clients = map[Type]client{
	// checkout --detach
	Git: {program: "git", args: []string{"--version"}, constraint: ">= 1.7.5"},
	// info --show-item
	Svn: {program: "svn", args: []string{"--version", "--quiet"}, constraint: ">= 1.9"},
	// --proto
	Download: {program: "curl", args: []string{"--version"}, constraint: ">= 7.20.2"},
}

var versionPattern = regexp.MustCompile(`\d+\.\d+(\.\d+)?`)

// CheckClient runs the client program for typ and checks that it is recent enough
func CheckClient(sh *shell.Shell, typ Type) (*version.Version, error) {
	c, ok := clients[typ]
	if !ok {
		return nil, errors.Errorf("unknown repository type %q", typ)
	}

	out, err := sh.OutputFor(sandbox.Argv(c.program, c.args...), shell.Options{
		Limits: sandbox.Limits{Timeout: 30 * time.Second, MaxBytes: 64 << 10},
	})
	if err != nil {
		return nil, err
	}
	v, err := parseVersion(out)
	if err != nil {
		return nil, errors.Wrapf(err, "%s", c.program)
	}

	required, err := version.NewConstraint(c.constraint)
	if err != nil {
		return nil, err
	}
	if !required.Check(v) {
		return nil, errors.Errorf("%s %s is too old, need %s", c.program, v, c.constraint)
	}
	return v, nil
}

// parseVersion finds the first version number in the output of e.g. git --version
func parseVersion(out string) (*version.Version, error) {
	s := versionPattern.FindString(out)
	if s == "" {
		return nil, errors.Errorf("no version in %q", out)
	}
	return version.NewVersion(s)
}
