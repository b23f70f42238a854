package bundler

import (
	"time"

	"go.uber.org/zap"
)

const (
	DefaultWorkDir      = "temp_metadata"
	DefaultArchiveName  = "metadata_deployable.zip"
	DefaultAPIVersion   = "57.0"
	DefaultObjectSuffix = "__c"
	DefaultNamespace    = "http://soap.sforce.com/2006/04/metadata"
)

// Option configures the bundling process.
type Option func(*config)

type config struct {
	workDir      string
	archivePath  string
	timestamp    time.Time
	apiVersion   string
	objectSuffix string
	namespace    string
	cleanWorkDir bool
	logger       *zap.Logger
}

func newConfig(opts []Option) *config {
	cfg := &config{
		workDir:      DefaultWorkDir,
		archivePath:  DefaultArchiveName,
		timestamp:    time.Now(), // Default, can be overridden for determinism
		apiVersion:   DefaultAPIVersion,
		objectSuffix: DefaultObjectSuffix,
		namespace:    DefaultNamespace,
		logger:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// WithWorkDir sets the directory entities are rendered into.
func WithWorkDir(path string) Option {
	return func(c *config) {
		c.workDir = path
	}
}

// WithArchivePath sets where the zip archive is written.
func WithArchivePath(path string) Option {
	return func(c *config) {
		c.archivePath = path
	}
}

// WithTimestamp sets a specific timestamp for archive entries.
// If zero, defaults to time.Now() (which breaks determinism across runs).
func WithTimestamp(t time.Time) Option {
	return func(c *config) {
		if !t.IsZero() {
			c.timestamp = t
		}
	}
}

// WithAPIVersion sets the version written in the manifest footer.
func WithAPIVersion(v string) Option {
	return func(c *config) {
		c.apiVersion = v
	}
}

// WithObjectSuffix sets the suffix appended to CustomObject identifiers.
func WithObjectSuffix(s string) Option {
	return func(c *config) {
		c.objectSuffix = s
	}
}

// WithNamespace sets the XML namespace of object documents and the manifest.
func WithNamespace(ns string) Option {
	return func(c *config) {
		c.namespace = ns
	}
}

// WithCleanWorkDir removes and recreates the work dir before rendering so
// files from an earlier run do not leak into the archive.
func WithCleanWorkDir() Option {
	return func(c *config) {
		c.cleanWorkDir = true
	}
}

// WithLogger sets the logger. Nil keeps the no-op logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.logger = l
		}
	}
}
