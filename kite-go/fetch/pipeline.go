// Package fetch runs the retrieval pipeline: retrieve a repository, describe it with a manifest, pack it
// into an archive and optionally publish both.
package fetch

import (
	"os"
	"path/filepath"
	"time"

	uuid "github.com/satori/go.uuid"

	"github.com/kiteco/retriever/kite-go/archive"
	"github.com/kiteco/retriever/kite-go/manifest"
	"github.com/kiteco/retriever/kite-go/publish"
	"github.com/kiteco/retriever/kite-go/retrieve"
	"github.com/kiteco/retriever/kite-go/shell"
	"github.com/kiteco/retriever/kite-golib/errors"
	"github.com/kiteco/retriever/kite-golib/fileutil"
	"github.com/kiteco/retriever/kite-golib/kitelog"
)

// Report describes one pipeline run
type Report struct {
	Retrieved *retrieve.Result
	Manifest  *manifest.Manifest
	Archive   *archive.Archive
	// Published is nil unless the config names a publish location
	Published *publish.Published
}

// Pipeline fetches repositories according to a Config
type Pipeline struct {
	Config    Config
	Shell     *shell.Shell
	Publisher *publish.Publisher
	Log       *kitelog.Logger

	checked map[retrieve.Type]bool
}

// NewPipeline returns a pipeline for cfg that logs to log
func NewPipeline(cfg Config, log *kitelog.Logger) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	p := &Pipeline{
		Config: cfg,
		Shell:  shell.New(log),
		Log:    log,

		checked: make(map[retrieve.Type]bool),
	}
	if cfg.Publish != "" {
		pub, err := publish.New(cfg.Publish, log)
		if err != nil {
			return nil, err
		}
		p.Publisher = pub
	}
	return p, nil
}

// Run retrieves id, builds its manifest and archive, and publishes them when configured. Phase durations
// are logged when the run ends.
func (p *Pipeline) Run(id retrieve.Identity) (report *Report, err error) {
	if err := id.Validate(); err != nil {
		return nil, err
	}
	for _, dir := range []string{p.Config.Workdir, p.Config.Output} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, err
		}
	}
	defer p.Log.Durations.Flush(p.Log)

	if err := p.checkClient(id.Type); err != nil {
		return nil, err
	}

	run, err := uuid.NewV4()
	if err != nil {
		return nil, err
	}
	dest := filepath.Join(p.Config.Workdir, string(id.Type), run.String())
	if !p.Config.Keep {
		defer func() {
			if rerr := os.RemoveAll(dest); rerr != nil {
				p.Log.Printf("error removing %s: %v", dest, rerr)
			}
		}()
	}

	report = &Report{}
	err = p.timed("retrieve", func() (err error) {
		report.Retrieved, err = retrieve.Retrieve(p.Shell, p.Config.Limits, id, dest)
		return err
	})
	if err != nil {
		return nil, errors.Wrapf(err, "error retrieving %s", id)
	}
	p.Log.Printf("retrieved %s at %s into %s", id, report.Retrieved.Revision, dest)

	err = p.timed("manifest", func() (err error) {
		report.Manifest, err = manifest.Build(fileutil.OS, dest, p.Config.Exclude...)
		return err
	})
	if err != nil {
		return nil, err
	}

	err = p.timed("archive", func() (err error) {
		report.Archive, err = archive.TarGz(dest, report.Manifest.Digest, filepath.Join(p.Config.Output, report.Manifest.Digest+".tar.gz"))
		if err != nil {
			return err
		}
		f, err := os.Create(filepath.Join(p.Config.Output, report.Manifest.Digest+".json"))
		if err != nil {
			return err
		}
		defer errors.Defer(&err, f.Close)
		return report.Manifest.Write(f)
	})
	if err != nil {
		return nil, err
	}
	p.Log.Printf("archived %d files as %s", len(report.Manifest.Entries), report.Archive)

	if p.Publisher != nil {
		err = p.timed("publish", func() (err error) {
			report.Published, err = p.Publisher.Publish(report.Archive, report.Manifest)
			return err
		})
		if err != nil {
			return nil, err
		}
	}
	return report, nil
}

// checkClient verifies the client for typ once per pipeline
func (p *Pipeline) checkClient(typ retrieve.Type) error {
	if p.checked[typ] {
		return nil
	}
	v, err := retrieve.CheckClient(p.Shell, typ)
	if err != nil {
		return err
	}
	p.Log.Printf("using %s client %s", typ, v)
	p.checked[typ] = true
	return nil
}

func (p *Pipeline) timed(phase string, f func() error) error {
	start := time.Now()
	err := f()
	p.Log.Durations.Record(phase, time.Since(start))
	return err
}
