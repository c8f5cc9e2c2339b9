package retrieve

import (
	"path/filepath"
	"time"

	"github.com/go-git/go-git/v5"

	"github.com/kiteco/retriever/kite-go/sandbox"
	"github.com/kiteco/retriever/kite-go/shell"
	"github.com/kiteco/retriever/kite-golib/errors"
)

// git must never wait for credentials on a terminal that nobody is watching
var gitEnv = []string{"GIT_TERMINAL_PROMPT=0", "GIT_ASKPASS=true"}

// GitRetriever clones with the git client and reads the checked out commit with go-git
type GitRetriever struct {
	Shell  *shell.Shell
	Limits sandbox.Limits
}

// Retrieve clones id.URL into dest and checks out id.Ref (detached) when set
func (g *GitRetriever) Retrieve(id Identity, dest string) (*Result, error) {
	start := time.Now()
	dest, err := prepare(dest)
	if err != nil {
		return nil, err
	}

	opts := shell.Options{
		Dir:      filepath.Dir(dest),
		Env:      gitEnv,
		Limits:   g.Limits,
		WatchDir: dest,
	}
	_, err = g.Shell.Execute(sandbox.Argv("git", "clone", "--quiet", "--", id.URL, dest), opts)
	if err != nil {
		return nil, err
	}

	if id.Ref != "" {
		opts.Dir = dest
		_, err = g.Shell.Execute(sandbox.Argv("git", "checkout", "--quiet", "--detach", id.Ref, "--"), opts)
		if err != nil {
			return nil, err
		}
	}

	rev, err := HeadCommit(dest)
	if err != nil {
		return nil, err
	}
	return &Result{Identity: id, Dir: dest, Revision: rev, Elapsed: time.Since(start)}, nil
}

// HeadCommit returns the hash of the commit checked out in the git working copy at dir
func HeadCommit(dir string) (string, error) {
	repo, err := git.PlainOpen(dir)
	if err != nil {
		return "", errors.Wrapf(err, "error opening git repository %s", dir)
	}
	head, err := repo.Head()
	if err != nil {
		return "", errors.Wrapf(err, "error resolving HEAD of %s", dir)
	}
	return head.Hash().String(), nil
}
