package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeExtensions()
	c.normalizeHashing()
	c.normalizeExifTool()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.SourceDir, err = expandPath(c.Paths.SourceDir); err != nil {
		return fmt.Errorf("paths.source_dir: %w", err)
	}
	if c.Paths.DestDir, err = expandPath(c.Paths.DestDir); err != nil {
		return fmt.Errorf("paths.dest_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = filepath.Join(c.Paths.DestDir, defaultDataDirName)
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.DuplicatesDir) == "" {
		c.Paths.DuplicatesDir = filepath.Join(c.Paths.DestDir, defaultDuplicatesName)
	}
	if c.Paths.DuplicatesDir, err = expandPath(c.Paths.DuplicatesDir); err != nil {
		return fmt.Errorf("paths.duplicates_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.OrphansDir) == "" {
		c.Paths.OrphansDir = filepath.Join(c.Paths.DestDir, defaultOrphansName)
	}
	if c.Paths.OrphansDir, err = expandPath(c.Paths.OrphansDir); err != nil {
		return fmt.Errorf("paths.orphans_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.ReviewDir) == "" {
		c.Paths.ReviewDir = filepath.Join(c.Paths.DestDir, defaultReviewName)
	}
	if c.Paths.ReviewDir, err = expandPath(c.Paths.ReviewDir); err != nil {
		return fmt.Errorf("paths.review_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.DatabasePath) == "" {
		c.Paths.DatabasePath = filepath.Join(c.Paths.DataDir, defaultDatabaseName)
	}
	if c.Paths.DatabasePath, err = expandPath(c.Paths.DatabasePath); err != nil {
		return fmt.Errorf("paths.database_path: %w", err)
	}
	return nil
}

func (c *Config) normalizeExtensions() {
	c.Extensions.Images = normalizeExtSlice(c.Extensions.Images)
	c.Extensions.Videos = normalizeExtSlice(c.Extensions.Videos)
	c.Extensions.Raw = normalizeExtSlice(c.Extensions.Raw)
	c.Extensions.Sidecar = normalizeExt(c.Extensions.Sidecar)
	c.LivePairing.ClipExt = normalizeExt(c.LivePairing.ClipExt)
	c.LivePairing.MasterExts = normalizeExtSlice(c.LivePairing.MasterExts)
}

func (c *Config) normalizeHashing() {
	if c.Hashing.ThresholdMiB <= 0 {
		c.Hashing.ThresholdMiB = defaultHashThreshold
	}
	if c.Hashing.Workers <= 0 {
		c.Hashing.Workers = defaultHashWorkers
	}
}

func (c *Config) normalizeExifTool() {
	c.ExifTool.Binary = strings.TrimSpace(c.ExifTool.Binary)
	if c.ExifTool.Binary == "" {
		if value, ok := os.LookupEnv("SNAPSORT_EXIFTOOL"); ok && strings.TrimSpace(value) != "" {
			c.ExifTool.Binary = strings.TrimSpace(value)
		} else {
			c.ExifTool.Binary = defaultExifBinary
		}
	}
	if c.ExifTool.ChunkSize <= 0 {
		c.ExifTool.ChunkSize = defaultExifChunkSize
	}
	if c.ExifTool.TimeoutSeconds <= 0 {
		c.ExifTool.TimeoutSeconds = defaultExifTimeout
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

func normalizeExtSlice(exts []string) []string {
	out := make([]string, 0, len(exts))
	seen := make(map[string]struct{}, len(exts))
	for _, ext := range exts {
		normalized := normalizeExt(ext)
		if normalized == "" || normalized == "." {
			continue
		}
		if _, ok := seen[normalized]; ok {
			continue
		}
		seen[normalized] = struct{}{}
		out = append(out, normalized)
	}
	return out
}
