package testsupport

import (
	"path/filepath"
	"testing"

	"snapsort/internal/config"
)

// ConfigOption adjusts the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig builds a fully-populated configuration rooted in a temp
// directory. The source directory exists; destination-side directories are
// created so engine tests can move files immediately.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.SourceDir = filepath.Join(base, "source")
	cfg.Paths.DestDir = filepath.Join(base, "dest")
	cfg.Paths.DataDir = filepath.Join(base, "data")
	cfg.Paths.DuplicatesDir = filepath.Join(base, "dest", "duplicates")
	cfg.Paths.OrphansDir = filepath.Join(base, "dest", "orphan-sidecars")
	cfg.Paths.ReviewDir = filepath.Join(base, "dest", "needs-review")
	cfg.Paths.DatabasePath = filepath.Join(base, "data", "catalog.db")

	for _, opt := range opts {
		opt(&cfg)
	}

	MkdirAll(t, cfg.Paths.SourceDir)
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	return &cfg
}

// WithHashThreshold overrides the full/tail hashing cutoff in MiB.
func WithHashThreshold(mib int) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Hashing.ThresholdMiB = mib
	}
}

// WithVerifyTailCollision toggles the tail collision double-check.
func WithVerifyTailCollision(enabled bool) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Hashing.VerifyTailCollision = enabled
	}
}
