// Package tarball moves files and directory trees in and out of tar streams, e.g. to copy them into
// and out of a container.
package tarball

import (
	"archive/tar"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"
)

// epoch is the modification time of every entry written by PackReproducible
var epoch = time.Unix(0, 0)

// PackAs writes the file or directory at inpath to w as a tar stream whose root entry is named name.
// Symlinks are not supported.
func PackAs(inpath, name string, w io.Writer) error {
	return pack(inpath, name, w, false)
}

// PackReproducible is PackAs for archives that must depend only on content: entries carry a fixed
// modification time and no owner, and symlinks are stored as links.
func PackReproducible(inpath, name string, w io.Writer) error {
	return pack(inpath, name, w, true)
}

func pack(inpath, name string, w io.Writer, reproducible bool) error {
	tarWr := tar.NewWriter(w)

	err := filepath.Walk(inpath, func(itemPath string, fileInfo os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		var link string
		if fileInfo.Mode()&os.ModeSymlink != 0 {
			if !reproducible {
				return fmt.Errorf("cannot pack symlinks in tarballs: %s", itemPath)
			}
			if link, err = os.Readlink(itemPath); err != nil {
				return err
			}
		}

		relpath, err := filepath.Rel(inpath, itemPath)
		if err != nil {
			return err
		}

		header, err := tar.FileInfoHeader(fileInfo, filepath.ToSlash(link))
		if err != nil {
			return err
		}
		header.Name = path.Join(name, filepath.ToSlash(relpath))
		if fileInfo.IsDir() {
			header.Name += "/"
		}
		if reproducible {
			header.ModTime = epoch
			header.AccessTime, header.ChangeTime = time.Time{}, time.Time{}
			header.Uid, header.Gid = 0, 0
			header.Uname, header.Gname = "", ""
		}

		if err := tarWr.WriteHeader(header); err != nil {
			return err
		}

		// Only write data if we have a regular file
		if fileInfo.Mode().IsRegular() {
			f, err := os.Open(itemPath)
			if err != nil {
				return err
			}
			defer f.Close()

			if _, err := io.Copy(tarWr, f); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	return tarWr.Close()
}

// Visitor is the type of function called for each entry in a tar archive encounted by the Walk method.
type Visitor func(header *tar.Header, r io.Reader) error

// Walk takes an io.Reader for a tar archive and invokes the provided Vistor function
// to all the entries in the archive.
func Walk(r io.Reader, vf Visitor) error {
	t := tar.NewReader(r)

	for {
		header, err := t.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}

		if err := vf(header, t); err != nil {
			return err
		}
	}

	return nil
}

// UnpackAs extracts a tar stream whose entries are rooted at name, placing that root at outpath.
// Entries outside of name are rejected.
func UnpackAs(outpath, name string, r io.Reader) error {
	name = strings.Trim(path.Clean("/"+name), "/")

	extractFunc := func(header *tar.Header, r io.Reader) error {
		entry := strings.Trim(path.Clean("/"+header.Name), "/")

		var rel string
		switch {
		case entry == name:
		case strings.HasPrefix(entry, name+"/"):
			rel = strings.TrimPrefix(entry, name+"/")
		default:
			return fmt.Errorf("unexpected entry %s outside of %s", header.Name, name)
		}
		filename := filepath.Join(outpath, filepath.FromSlash(rel))

		switch header.Typeflag {
		case tar.TypeDir:
			return os.MkdirAll(filename, os.FileMode(header.Mode).Perm()|0700)

		case tar.TypeReg, tar.TypeRegA:
			if err := os.MkdirAll(filepath.Dir(filename), 0755); err != nil {
				return err
			}
			w, err := os.OpenFile(filename, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, os.FileMode(header.Mode).Perm())
			if err != nil {
				return err
			}
			if _, err := io.Copy(w, r); err != nil {
				w.Close()
				return err
			}
			return w.Close()

		default:
			return fmt.Errorf("unable to untar type %c in file %s", header.Typeflag, header.Name)
		}
	}

	return Walk(r, extractFunc)
}
