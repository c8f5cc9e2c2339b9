package fetch

import (
	"io/ioutil"

	"gopkg.in/yaml.v2"

	"github.com/kiteco/retriever/kite-go/retrieve"
	"github.com/kiteco/retriever/kite-go/warden"
	"github.com/kiteco/retriever/kite-golib/awsutil"
	"github.com/kiteco/retriever/kite-golib/envutil"
	"github.com/kiteco/retriever/kite-golib/errors"
)

// Config configures a retrieval pipeline. It is read from a yaml file; fields the file leaves out keep
// the values from DefaultConfig.
type Config struct {
	// Workdir holds working copies while they are manifested and archived
	Workdir string `yaml:"workdir"`
	// Output receives <digest>.tar.gz and <digest>.json
	Output string `yaml:"output"`
	// Publish is an optional s3://bucket/prefix to upload archives and manifests to
	Publish string `yaml:"publish"`
	// Keep leaves working copies in Workdir after archiving
	Keep bool `yaml:"keep"`
	// Exclude lists globs of files left out of manifests, e.g. "**/*.pyc"
	Exclude []string        `yaml:"exclude"`
	Limits  retrieve.Limits `yaml:"limits"`
	Warden  warden.Config   `yaml:"warden"`
}

// DefaultConfig reads RETRIEVER_WORKDIR, RETRIEVER_OUTPUT and RETRIEVER_PUBLISH from the environment
func DefaultConfig() Config {
	return Config{
		Workdir: envutil.GetenvDefault("RETRIEVER_WORKDIR", "/var/retriever/work"),
		Output:  envutil.GetenvDefault("RETRIEVER_OUTPUT", "/var/retriever/out"),
		Publish: envutil.GetenvDefault("RETRIEVER_PUBLISH", ""),
		Limits:  retrieve.DefaultLimits,
		Warden:  warden.DefaultConfig(),
	}
}

// LoadConfig overlays the yaml file at path on DefaultConfig
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	buf, err := ioutil.ReadFile(path)
	if err != nil {
		return Config{}, errors.Wrapf(err, "error reading config")
	}
	if err := yaml.UnmarshalStrict(buf, &cfg); err != nil {
		return Config{}, errors.Wrapf(err, "error parsing config %s", path)
	}
	return cfg, cfg.Validate()
}

// Validate checks that the directories are set
func (c Config) Validate() error {
	if c.Workdir == "" {
		return errors.New("config: workdir is required")
	}
	if c.Output == "" {
		return errors.New("config: output is required")
	}
	if c.Publish != "" && !awsutil.IsS3URI(c.Publish) {
		return errors.Errorf("config: publish must be an s3:// uri, got %s", c.Publish)
	}
	return nil
}
