// Package archive packs retrieved working copies into compressed tarballs.
package archive

import (
	"io"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"

	humanize "github.com/dustin/go-humanize"
	"github.com/mholt/archiver"

	"github.com/kiteco/retriever/kite-golib/errors"
	"github.com/kiteco/retriever/kite-golib/tarball"
)

// Archive is a packed tree
type Archive struct {
	Path string
	Size int64
}

// String returns e.g. "/var/retriever/out/1f2e.tar.gz (12 MB)"
func (a Archive) String() string {
	return a.Path + " (" + humanize.Bytes(uint64(a.Size)) + ")"
}

// TarGz packs dir into dest, which must end in .tar.gz. The archive holds a single top-level folder
// named root, and its bytes depend only on the content of dir: the same tree packed under the same root
// gives the same archive. It is built next to dest and renamed into place, so dest is never observed
// half written.
func TarGz(dir, root, dest string) (*Archive, error) {
	if !strings.HasSuffix(dest, ".tar.gz") {
		return nil, errors.Errorf("archive name %s must end in .tar.gz", dest)
	}
	if root == "" || strings.ContainsAny(root, `/\`) {
		return nil, errors.Errorf("invalid archive root %q", root)
	}
	info, err := os.Stat(dir)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, errors.Errorf("%s is not a directory", dir)
	}

	tmp, err := ioutil.TempDir(filepath.Dir(dest), ".archive-")
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(tmp)

	tmpfn := filepath.Join(tmp, filepath.Base(dest))
	if err := compress(dir, root, tmpfn); err != nil {
		return nil, errors.Wrapf(err, "tar.gz %s", dir)
	}

	if err := os.Rename(tmpfn, dest); err != nil {
		return nil, errors.Wrapf(err, "mv %s", dest)
	}
	info, err = os.Stat(dest)
	if err != nil {
		return nil, err
	}
	return &Archive{Path: dest, Size: info.Size()}, nil
}

func compress(dir, root, dest string) (err error) {
	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	defer errors.Defer(&err, out.Close)

	pr, pw := io.Pipe()
	go func() {
		pw.CloseWithError(tarball.PackReproducible(dir, root, pw))
	}()
	err = archiver.NewGz().Compress(pr, out)
	pr.CloseWithError(err)
	return err
}

// Unpack extracts a tar.gz archive into dir
func Unpack(path, dir string) error {
	return errors.WrapfOrNil(archiver.NewTarGz().Unarchive(path, dir), "error unpacking %s", path)
}
