// Package manifest describes a retrieved tree by content: one entry per regular file with its size and
// spooky hash, plus a digest over all entries that identifies the tree as a whole.
package manifest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	spooky "github.com/dgryski/go-spooky"
	"github.com/mattn/go-zglob"
	"github.com/spf13/afero"

	"github.com/kiteco/retriever/kite-golib/errors"
)

// version-control metadata is not part of a tree's content
var skipDirs = map[string]bool{
	".git": true,
	".svn": true,
	".hg":  true,
}

// Entry is one regular file
type Entry struct {
	// Path is slash-separated and relative to the root of the tree
	Path string `json:"path"`
	Size int64  `json:"size"`
	Hash string `json:"hash"`
}

// Manifest lists the files of a tree sorted by path
type Manifest struct {
	Digest  string  `json:"digest"`
	Size    int64   `json:"size"`
	Entries []Entry `json:"entries"`
}

// Build walks root and hashes every regular file below it, leaving out files whose slash-separated
// relative path matches one of the exclude globs (e.g. "**/*.pyc"). Symlinks are recorded by their
// target path rather than followed.
func Build(fs afero.Fs, root string, exclude ...string) (*Manifest, error) {
	var m Manifest
	err := afero.Walk(fs, root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			if path != root && skipDirs[info.Name()] {
				return filepath.SkipDir
			}
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		entry := Entry{Path: filepath.ToSlash(rel)}
		for _, pattern := range exclude {
			matched, err := zglob.Match(pattern, entry.Path)
			if err != nil {
				return errors.Wrapf(err, "bad exclude pattern %s", pattern)
			}
			if matched {
				return nil
			}
		}

		switch {
		case info.Mode().IsRegular():
			buf, err := afero.ReadFile(fs, path)
			if err != nil {
				return err
			}
			entry.Size = int64(len(buf))
			entry.Hash = Hash(buf)
		case info.Mode()&os.ModeSymlink != 0:
			target, err := os.Readlink(path)
			if err != nil {
				return err
			}
			entry.Hash = "link:" + Hash([]byte(target))
		default:
			return nil
		}

		m.Entries = append(m.Entries, entry)
		m.Size += entry.Size
		return nil
	})
	if err != nil {
		return nil, errors.Wrapf(err, "error building manifest of %s", root)
	}

	sort.Slice(m.Entries, func(i, j int) bool { return m.Entries[i].Path < m.Entries[j].Path })
	m.Digest = m.digest()
	return &m, nil
}

// Hash returns the hex-encoded spooky hash of buf
func Hash(buf []byte) string {
	return fmt.Sprintf("%016x", spooky.Hash64(buf))
}

// HashFile returns the hash of the file at path
func HashFile(fs afero.Fs, path string) (string, error) {
	buf, err := afero.ReadFile(fs, path)
	if err != nil {
		return "", err
	}
	return Hash(buf), nil
}

func (m *Manifest) digest() string {
	var b bytes.Buffer
	for _, e := range m.Entries {
		fmt.Fprintf(&b, "%s\x00%d\x00%s\n", e.Path, e.Size, e.Hash)
	}
	return Hash(b.Bytes())
}

// Verify checks that the digest matches the entries
func (m *Manifest) Verify() error {
	if d := m.digest(); d != m.Digest {
		return errors.Errorf("manifest digest %s does not match its entries (%s)", m.Digest, d)
	}
	return nil
}

// Write encodes the manifest as indented JSON
func (m *Manifest) Write(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(m)
}

// Read decodes a manifest written by Write and verifies it
func Read(r io.Reader) (*Manifest, error) {
	var m Manifest
	if err := json.NewDecoder(r).Decode(&m); err != nil {
		return nil, errors.Wrapf(err, "error decoding manifest")
	}
	if err := m.Verify(); err != nil {
		return nil, err
	}
	return &m, nil
}
