// Package publish uploads archives and their manifests to S3, keyed by manifest digest.
package publish

import (
	"bytes"
	"io"
	"os"
	"time"

	humanize "github.com/dustin/go-humanize"

	"github.com/kiteco/retriever/kite-go/archive"
	"github.com/kiteco/retriever/kite-go/manifest"
	"github.com/kiteco/retriever/kite-golib/awsutil"
	"github.com/kiteco/retriever/kite-golib/errors"
	"github.com/kiteco/retriever/kite-golib/kitelog"
)

// PutFunc writes r to an s3 uri
type PutFunc func(r io.ReadSeeker, uri string) error

// ExistsFunc reports whether an object exists at an s3 uri
type ExistsFunc func(uri string) (bool, error)

// Publisher uploads to Root, an s3://bucket/prefix uri
type Publisher struct {
	Root string
	Put  PutFunc
	// Exists, if set, is asked for the manifest first; a digest already published is not uploaded again
	Exists ExistsFunc
	Log    kitelog.Interface
}

// Published holds the uris an archive was uploaded to
type Published struct {
	Archive  string
	Manifest string
	// Existing is true if the digest was already published and nothing was uploaded
	Existing bool
}

// New returns a publisher that uploads below root
func New(root string, log kitelog.Interface) (*Publisher, error) {
	if _, err := awsutil.ValidateURI(root); err != nil {
		return nil, err
	}
	return &Publisher{Root: root, Put: awsutil.S3PutObject, Exists: awsutil.Exists, Log: log}, nil
}

// Publish uploads a as <root>/<digest>.tar.gz and m as <root>/<digest>.json. The manifest goes last, so
// its presence means the archive is complete.
func (p *Publisher) Publish(a *archive.Archive, m *manifest.Manifest) (*Published, error) {
	archiveURI, err := awsutil.Join(p.Root, m.Digest+".tar.gz")
	if err != nil {
		return nil, err
	}
	manifestURI, err := awsutil.Join(p.Root, m.Digest+".json")
	if err != nil {
		return nil, err
	}

	if p.Exists != nil {
		exists, err := p.Exists(manifestURI)
		if err != nil {
			return nil, errors.Wrapf(err, "error checking %s", manifestURI)
		}
		if exists {
			p.Log.Printf("%s already published, skipping upload", manifestURI)
			return &Published{Archive: archiveURI, Manifest: manifestURI, Existing: true}, nil
		}
	}

	f, err := os.Open(a.Path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	start := time.Now()
	if err := p.Put(f, archiveURI); err != nil {
		return nil, errors.Wrapf(err, "error uploading %s", archiveURI)
	}
	p.Log.Printf("uploaded %s to %s in %s", humanize.Bytes(uint64(a.Size)), archiveURI, time.Since(start))

	var buf bytes.Buffer
	if err := m.Write(&buf); err != nil {
		return nil, err
	}
	if err := p.Put(bytes.NewReader(buf.Bytes()), manifestURI); err != nil {
		return nil, errors.Wrapf(err, "error uploading %s", manifestURI)
	}

	return &Published{Archive: archiveURI, Manifest: manifestURI}, nil
}
