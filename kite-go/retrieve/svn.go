package retrieve

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/kiteco/retriever/kite-go/sandbox"
	"github.com/kiteco/retriever/kite-go/shell"
)

// SvnRetriever checks out with the svn client
type SvnRetriever struct {
	Shell  *shell.Shell
	Limits sandbox.Limits
}

// Retrieve checks out id.URL at revision id.Ref (HEAD when empty) into dest
func (s *SvnRetriever) Retrieve(id Identity, dest string) (*Result, error) {
	start := time.Now()
	dest, err := prepare(dest)
	if err != nil {
		return nil, err
	}

	args := []string{"checkout", "--non-interactive", "--quiet"}
	if id.Ref != "" {
		args = append(args, "--revision", id.Ref)
	}
	args = append(args, "--", id.URL, dest)

	_, err = s.Shell.Execute(sandbox.Argv("svn", args...), shell.Options{
		Dir:      filepath.Dir(dest),
		Limits:   s.Limits,
		WatchDir: dest,
	})
	if err != nil {
		return nil, err
	}

	out, err := s.Shell.OutputFor(sandbox.Argv("svn", "info", "--non-interactive", "--show-item", "revision"), shell.Options{
		Dir:    dest,
		Limits: sandbox.Limits{Timeout: time.Minute, MaxBytes: 1 << 10},
	})
	if err != nil {
		return nil, err
	}
	return &Result{Identity: id, Dir: dest, Revision: strings.TrimSpace(out), Elapsed: time.Since(start)}, nil
}
