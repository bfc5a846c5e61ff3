package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"snapsort/internal/config"
)

func TestLoadDefaultsExpandPaths(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantDest := filepath.Join(tempHome, "photos", "archive")
	if cfg.Paths.DestDir != wantDest {
		t.Fatalf("unexpected dest dir: got %q want %q", cfg.Paths.DestDir, wantDest)
	}
	if cfg.Paths.DataDir != filepath.Join(wantDest, ".snapsort") {
		t.Fatalf("unexpected data dir: %q", cfg.Paths.DataDir)
	}
	if cfg.Paths.DatabasePath != filepath.Join(wantDest, ".snapsort", "catalog.db") {
		t.Fatalf("unexpected database path: %q", cfg.Paths.DatabasePath)
	}
	if cfg.Paths.DuplicatesDir != filepath.Join(wantDest, "duplicates") {
		t.Fatalf("unexpected duplicates dir: %q", cfg.Paths.DuplicatesDir)
	}
	if !cfg.Hashing.VerifyTailCollision {
		t.Fatal("expected tail collision verification enabled by default")
	}
	if cfg.Hashing.ThresholdMiB != 10 {
		t.Fatalf("unexpected hash threshold: %d", cfg.Hashing.ThresholdMiB)
	}
	if cfg.ExifTool.Binary != "exiftool" {
		t.Fatalf("unexpected exiftool binary: %q", cfg.ExifTool.Binary)
	}
}

func TestLoadParsesFileAndNormalizesExtensions(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
[paths]
source_dir = "` + filepath.Join(dir, "in") + `"
dest_dir = "` + filepath.Join(dir, "out") + `"

[extensions]
images = ["JPG", ".Heic", "jpg"]
videos = [".mov"]
raw = []
sidecar = "AAE"

[live_pairing]
enabled = true
clip_ext = "MOV"
master_exts = ["heic", "jpg"]
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected config file to exist")
	}
	if got := cfg.Extensions.Images; len(got) != 2 || got[0] != ".jpg" || got[1] != ".heic" {
		t.Fatalf("unexpected image extensions: %v", got)
	}
	if cfg.Extensions.Sidecar != ".aae" {
		t.Fatalf("unexpected sidecar extension: %q", cfg.Extensions.Sidecar)
	}
	if cfg.LivePairing.ClipExt != ".mov" {
		t.Fatalf("unexpected clip extension: %q", cfg.LivePairing.ClipExt)
	}

	// Clip extension is carved out of the general media set while pairing
	// is enabled.
	media := cfg.MediaExtensions()
	if _, ok := media[".mov"]; ok {
		t.Fatal("expected clip extension excluded from media set")
	}
	if _, ok := media[".jpg"]; !ok {
		t.Fatal("expected .jpg in media set")
	}
}

func TestLoadRejectsDestInsideSource(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
[paths]
source_dir = "` + dir + `"
dest_dir = "` + filepath.Join(dir, "archive") + `"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	_, _, _, err := config.Load(path)
	if err == nil {
		t.Fatal("expected error for dest inside source")
	}
	if !strings.Contains(err.Error(), "dest_dir") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestLoadRejectsBadLogFormat(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
[paths]
source_dir = "` + filepath.Join(dir, "in") + `"
dest_dir = "` + filepath.Join(dir, "out") + `"

[logging]
format = "xml"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, _, _, err := config.Load(path); err == nil {
		t.Fatal("expected error for unsupported log format")
	}
}

func TestCreateSampleWritesParseableConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}
	if _, _, exists, err := config.Load(path); err != nil || !exists {
		t.Fatalf("sample config did not load: exists=%v err=%v", exists, err)
	}
}
