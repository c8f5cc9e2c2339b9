package retrieve

import (
	"io/ioutil"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/mholt/archiver"

	"github.com/kiteco/retriever/kite-go/manifest"
	"github.com/kiteco/retriever/kite-go/sandbox"
	"github.com/kiteco/retriever/kite-go/shell"
	"github.com/kiteco/retriever/kite-golib/errors"
	"github.com/kiteco/retriever/kite-golib/fileutil"
)

var tarSuffixes = []string{".tar", ".tar.gz", ".tgz", ".tar.bz2", ".tbz2", ".tar.xz", ".txz"}

// DownloadRetriever fetches a single file with curl. Tarballs are unpacked with tar and zip files with
// archiver; anything else is kept as is.
type DownloadRetriever struct {
	Shell  *shell.Shell
	Limits sandbox.Limits
}

// Retrieve downloads id.URL into dest. The size limit applies to the download and, separately, to the
// unpacked tree.
func (d *DownloadRetriever) Retrieve(id Identity, dest string) (*Result, error) {
	start := time.Now()
	dest, err := prepare(dest)
	if err != nil {
		return nil, err
	}
	if err := os.Mkdir(dest, 0755); err != nil {
		return nil, err
	}

	name, err := fileName(id.URL)
	if err != nil {
		return nil, err
	}

	staging, err := ioutil.TempDir(filepath.Dir(dest), ".download-")
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(staging)
	file := filepath.Join(staging, name)

	_, err = d.Shell.Execute(sandbox.Argv("curl", "--fail", "--silent", "--show-error", "--location",
		"--proto", "=http,https,file", "--output", file, "--", id.URL), shell.Options{
		Dir:      staging,
		Limits:   d.Limits,
		WatchDir: staging,
	})
	if err != nil {
		return nil, err
	}

	rev, err := manifest.HashFile(fileutil.OS, file)
	if err != nil {
		return nil, err
	}

	switch {
	case isTarball(name):
		_, err = d.Shell.Execute(sandbox.Argv("tar", "-x", "-f", file, "-C", dest), shell.Options{
			Dir:      dest,
			Limits:   d.Limits,
			WatchDir: dest,
		})
	case strings.HasSuffix(strings.ToLower(name), ".zip"):
		err = errors.WrapfOrNil(archiver.NewZip().Unarchive(file, dest), "error unpacking %s", name)
	default:
		err = os.Rename(file, filepath.Join(dest, name))
	}
	if err != nil {
		return nil, err
	}

	return &Result{Identity: id, Dir: dest, Revision: rev, Elapsed: time.Since(start)}, nil
}

func fileName(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	name := path.Base(u.Path)
	if name == "/" || name == "." || name == "" {
		return "download", nil
	}
	return name, nil
}

func isTarball(name string) bool {
	name = strings.ToLower(name)
	for _, s := range tarSuffixes {
		if strings.HasSuffix(name, s) {
			return true
		}
	}
	return false
}
