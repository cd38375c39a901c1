// Package config loads the gitshed configuration of a repository.
//
// The configuration lives in .gitshed/config.json and may be overridden with GITSHED_ environment
// variables, e.g. GITSHED_CONTENT_STORE_CHUNK_SIZE=50.
package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/oneconcern/gitshed/pkg/errors"
	"github.com/oneconcern/gitshed/pkg/shed"
	"github.com/oneconcern/gitshed/pkg/storage"
	"github.com/oneconcern/gitshed/pkg/transfer"
	"github.com/spf13/viper"
)

// ErrConfiguration indicates a missing or invalid configuration
var ErrConfiguration = errors.New("invalid configuration")

const (
	// Dir is the gitshed directory at the root of a repository
	Dir = shed.Dir
	// FileName of the configuration file in Dir
	FileName = "config.json"
	// EnvPrefix for environment overrides
	EnvPrefix = "GITSHED"
)

// Path returns the default location of the configuration file for a repository
func Path(repoRoot string) string {
	return filepath.Join(repoRoot, Dir, FileName)
}

// Config for a repository
type Config struct {
	// Exclude lists directory names never scanned for pointers, at any depth.
	// Entries with a slash name one directory relative to the repository root.
	Exclude      []string     `mapstructure:"exclude" json:"exclude,omitempty" yaml:"exclude,omitempty"`
	Concurrency  Concurrency  `mapstructure:"concurrency" json:"concurrency" yaml:"concurrency"`
	ContentStore ContentStore `mapstructure:"content_store" json:"content_store" yaml:"content_store"`
}

// Concurrency of transfers
type Concurrency struct {
	Get int `mapstructure:"get" json:"get" yaml:"get"`
	Put int `mapstructure:"put" json:"put" yaml:"put"`
}

// ContentStore configures the remote store. Exactly one backend must be set.
type ContentStore struct {
	ChunkSize int     `mapstructure:"chunk_size" json:"chunk_size" yaml:"chunk_size"`
	Remote    *Remote `mapstructure:"remote" json:"remote,omitempty" yaml:"remote,omitempty"`
	Local     *Local  `mapstructure:"local" json:"local,omitempty" yaml:"local,omitempty"`
	S3        *S3     `mapstructure:"s3" json:"s3,omitempty" yaml:"s3,omitempty"`
	GCS       *GCS    `mapstructure:"gcs" json:"gcs,omitempty" yaml:"gcs,omitempty"`
}

// Remote is the rsync over ssh + HTTP backend
type Remote struct {
	Host        string  `mapstructure:"host" json:"host" yaml:"host"`
	RootPath    string  `mapstructure:"root_path" json:"root_path" yaml:"root_path"`
	RootURL     string  `mapstructure:"root_url" json:"root_url" yaml:"root_url"`
	TimeoutSecs float64 `mapstructure:"timeout_secs" json:"timeout_secs,omitempty" yaml:"timeout_secs,omitempty"`
	Sudo        bool    `mapstructure:"sudo" json:"sudo,omitempty" yaml:"sudo,omitempty"`
}

// Local is a content store in a local directory, e.g. on a shared file system
type Local struct {
	Root string `mapstructure:"root" json:"root" yaml:"root"`
}

// S3 backend
type S3 struct {
	Bucket      string  `mapstructure:"bucket" json:"bucket" yaml:"bucket"`
	Prefix      string  `mapstructure:"prefix" json:"prefix,omitempty" yaml:"prefix,omitempty"`
	Region      string  `mapstructure:"region" json:"region,omitempty" yaml:"region,omitempty"`
	Endpoint    string  `mapstructure:"endpoint" json:"endpoint,omitempty" yaml:"endpoint,omitempty"`
	TimeoutSecs float64 `mapstructure:"timeout_secs" json:"timeout_secs,omitempty" yaml:"timeout_secs,omitempty"`
}

// GCS backend
type GCS struct {
	Bucket      string  `mapstructure:"bucket" json:"bucket" yaml:"bucket"`
	Prefix      string  `mapstructure:"prefix" json:"prefix,omitempty" yaml:"prefix,omitempty"`
	Credentials string  `mapstructure:"credentials" json:"credentials,omitempty" yaml:"credentials,omitempty"`
	TimeoutSecs float64 `mapstructure:"timeout_secs" json:"timeout_secs,omitempty" yaml:"timeout_secs,omitempty"`
}

// keys which may be set from the environment only
var envKeys = []string{
	"content_store.remote.host",
	"content_store.remote.root_path",
	"content_store.remote.root_url",
	"content_store.remote.timeout_secs",
	"content_store.remote.sudo",
	"content_store.local.root",
	"content_store.s3.bucket",
	"content_store.s3.prefix",
	"content_store.s3.region",
	"content_store.s3.endpoint",
	"content_store.s3.timeout_secs",
	"content_store.gcs.bucket",
	"content_store.gcs.prefix",
	"content_store.gcs.credentials",
	"content_store.gcs.timeout_secs",
}

// Load the configuration file at path, with environment overrides.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("json")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, key := range envKeys {
		_ = v.BindEnv(key)
	}

	v.SetDefault("content_store.chunk_size", transfer.DefaultChunkSize)
	v.SetDefault("concurrency.get", transfer.DefaultGetConcurrency)
	v.SetDefault("concurrency.put", transfer.DefaultPutConcurrency)

	if err := v.ReadInConfig(); err != nil {
		if os.IsNotExist(err) {
			return nil, ErrConfiguration.Wrapf("no configuration found at %s", path)
		}
		return nil, ErrConfiguration.Wrap(err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, ErrConfiguration.Wrap(err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate the configuration
func (c *Config) Validate() error {
	backends := 0
	for _, set := range []bool{c.ContentStore.Remote != nil, c.ContentStore.Local != nil, c.ContentStore.S3 != nil, c.ContentStore.GCS != nil} {
		if set {
			backends++
		}
	}
	if backends != 1 {
		return ErrConfiguration.Wrapf("exactly one content store must be configured, found %d", backends)
	}

	cs := c.ContentStore
	switch {
	case cs.ChunkSize <= 0:
		return ErrConfiguration.Wrapf("content_store.chunk_size must be positive")
	case c.Concurrency.Get <= 0 || c.Concurrency.Put <= 0:
		return ErrConfiguration.Wrapf("concurrency must be positive")
	case cs.Remote != nil && (cs.Remote.Host == "" || cs.Remote.RootPath == "" || cs.Remote.RootURL == ""):
		return ErrConfiguration.Wrapf("content_store.remote requires host, root_path and root_url")
	case cs.Local != nil && cs.Local.Root == "":
		return ErrConfiguration.Wrapf("content_store.local requires root")
	case cs.S3 != nil && cs.S3.Bucket == "":
		return ErrConfiguration.Wrapf("content_store.s3 requires bucket")
	case cs.GCS != nil && cs.GCS.Bucket == "":
		return ErrConfiguration.Wrapf("content_store.gcs requires bucket")
	}
	return nil
}

// Timeout for each single item transfer
func Timeout(secs float64) time.Duration {
	if secs <= 0 {
		return storage.DefaultTimeout
	}
	return time.Duration(secs * float64(time.Second))
}
