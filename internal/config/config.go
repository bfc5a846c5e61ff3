package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration for a run.
type Paths struct {
	SourceDir     string `toml:"source_dir"`
	DestDir       string `toml:"dest_dir"`
	DataDir       string `toml:"data_dir"`
	DuplicatesDir string `toml:"duplicates_dir"`
	OrphansDir    string `toml:"orphans_dir"`
	ReviewDir     string `toml:"review_dir"`
	DatabasePath  string `toml:"database_path"`
}

// Extensions groups the recognized media extension sets.
type Extensions struct {
	Images  []string `toml:"images"`
	Videos  []string `toml:"videos"`
	Raw     []string `toml:"raw"`
	Sidecar string   `toml:"sidecar"`
}

// LivePairing configures still-image/video clip pairing.
type LivePairing struct {
	Enabled    bool     `toml:"enabled"`
	ClipExt    string   `toml:"clip_ext"`
	MasterExts []string `toml:"master_exts"`
}

// Hashing configures the tiered content hasher.
type Hashing struct {
	ThresholdMiB        int  `toml:"threshold_mib"`
	Workers             int  `toml:"workers"`
	VerifyTailCollision bool `toml:"verify_tail_collision"`
}

// ExifTool configures the external metadata extraction tool.
type ExifTool struct {
	Binary         string `toml:"binary"`
	ChunkSize      int    `toml:"chunk_size"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
	InlineFallback bool   `toml:"inline_fallback"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Options contains run-mode defaults that CLI flags may override.
type Options struct {
	DryRun      bool `toml:"dry_run"`
	IncludeDest bool `toml:"include_dest"`
}

// Config encapsulates all configuration values for snapsort.
//
// Configuration sections by subsystem:
//   - Paths: source/destination trees and catalog location
//   - Extensions: recognized media, sidecar, and raw extension sets
//   - LivePairing: still image + companion clip binding
//   - Hashing: tiered fingerprint threshold and worker pool
//   - ExifTool: external metadata tool invocation
//   - Logging: log format and level
//   - Options: dry-run and destination-indexing defaults
type Config struct {
	Paths       Paths       `toml:"paths"`
	Extensions  Extensions  `toml:"extensions"`
	LivePairing LivePairing `toml:"live_pairing"`
	Hashing     Hashing     `toml:"hashing"`
	ExifTool    ExifTool    `toml:"exiftool"`
	Logging     Logging     `toml:"logging"`
	Options     Options     `toml:"options"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/snapsort/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config
// has all path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("snapsort.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the directories a run mutates. The source tree is
// never created here; a missing source is a user error surfaced separately.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DestDir, c.Paths.DataDir, c.Paths.DuplicatesDir, c.Paths.OrphansDir, c.Paths.ReviewDir, c.ReportsDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// ReportsDir returns the directory holding per-run report subdirectories.
func (c *Config) ReportsDir() string {
	return filepath.Join(c.Paths.DataDir, "reports")
}

// HistoryPath returns the cumulative run history file location.
func (c *Config) HistoryPath() string {
	return filepath.Join(c.Paths.DataDir, "run_history.json")
}

// LockPath returns the per-catalog run lock file location.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.DataDir, "snapsort.lock")
}

// MediaExtensions returns the combined recognized-media extension set,
// lowercased with leading dots. The live clip extension is excluded when
// pairing is enabled because clips are classified separately.
func (c *Config) MediaExtensions() map[string]struct{} {
	exts := make(map[string]struct{})
	for _, group := range [][]string{c.Extensions.Images, c.Extensions.Videos, c.Extensions.Raw} {
		for _, ext := range group {
			exts[normalizeExt(ext)] = struct{}{}
		}
	}
	if c.LivePairing.Enabled {
		delete(exts, normalizeExt(c.LivePairing.ClipExt))
	}
	return exts
}

// PairableMasterExtensions returns the extensions eligible to own a live clip.
func (c *Config) PairableMasterExtensions() map[string]struct{} {
	exts := make(map[string]struct{}, len(c.LivePairing.MasterExts))
	for _, ext := range c.LivePairing.MasterExts {
		exts[normalizeExt(ext)] = struct{}{}
	}
	return exts
}

func normalizeExt(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
