package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateExtensions(); err != nil {
		return err
	}
	if err := c.validateHashing(); err != nil {
		return err
	}
	if err := c.validateExifTool(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.DestDir) == "" {
		return errors.New("paths.dest_dir must be set")
	}
	if c.Paths.SourceDir == c.Paths.DestDir {
		return errors.New("paths.source_dir and paths.dest_dir must differ")
	}
	// A destination nested inside the source tree would be rescanned on the
	// next run and treated as new input.
	if within(c.Paths.DestDir, c.Paths.SourceDir) {
		return fmt.Errorf("paths.dest_dir %q must not live inside paths.source_dir", c.Paths.DestDir)
	}
	return nil
}

func (c *Config) validateExtensions() error {
	if len(c.Extensions.Images)+len(c.Extensions.Videos)+len(c.Extensions.Raw) == 0 {
		return errors.New("extensions: at least one recognized media extension is required")
	}
	if c.Extensions.Sidecar == "" || c.Extensions.Sidecar == "." {
		return errors.New("extensions.sidecar must be a non-empty extension")
	}
	if c.LivePairing.Enabled {
		if c.LivePairing.ClipExt == "" || c.LivePairing.ClipExt == "." {
			return errors.New("live_pairing.clip_ext must be set when live_pairing.enabled is true")
		}
		if len(c.LivePairing.MasterExts) == 0 {
			return errors.New("live_pairing.master_exts must be set when live_pairing.enabled is true")
		}
	}
	return nil
}

func (c *Config) validateHashing() error {
	if c.Hashing.ThresholdMiB <= 0 {
		return errors.New("hashing.threshold_mib must be positive")
	}
	if c.Hashing.Workers <= 0 {
		return errors.New("hashing.workers must be positive")
	}
	return nil
}

func (c *Config) validateExifTool() error {
	if c.ExifTool.Binary == "" {
		return errors.New("exiftool.binary must be set")
	}
	if c.ExifTool.ChunkSize <= 0 {
		return errors.New("exiftool.chunk_size must be positive")
	}
	if c.ExifTool.TimeoutSeconds <= 0 {
		return errors.New("exiftool.timeout_seconds must be positive")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	return nil
}

func within(path, root string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}
