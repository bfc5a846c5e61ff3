// Package exif resolves capture timestamps for media files by batching
// paths through exiftool, with an optional in-process decoder fallback.
package exif

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"log/slog"

	"snapsort/internal/config"
	"snapsort/internal/logging"
)

// Executor abstracts command execution for testability.
type Executor interface {
	Output(ctx context.Context, binary string, args []string) ([]byte, error)
}

// Option configures the resolver.
type Option func(*Resolver)

// WithExecutor injects a custom executor (primarily for tests).
func WithExecutor(exec Executor) Option {
	return func(r *Resolver) {
		if exec != nil {
			r.exec = exec
		}
	}
}

// Resolver extracts capture timestamps in priority order from exiftool
// JSON output. Paths that yield no usable field are simply absent from the
// result; callers fall back to filesystem mtimes.
type Resolver struct {
	binary         string
	chunkSize      int
	timeout        time.Duration
	inlineFallback bool
	exec           Executor
	logger         *slog.Logger
}

// NewResolver constructs a Resolver from configuration.
func NewResolver(cfg *config.Config, logger *slog.Logger, opts ...Option) *Resolver {
	r := &Resolver{
		binary:         cfg.ExifTool.Binary,
		chunkSize:      cfg.ExifTool.ChunkSize,
		timeout:        time.Duration(cfg.ExifTool.TimeoutSeconds) * time.Second,
		inlineFallback: cfg.ExifTool.InlineFallback,
		exec:           commandExecutor{},
		logger:         logging.NewComponentLogger(logger, "exif"),
	}
	if r.chunkSize <= 0 {
		r.chunkSize = 800
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ResolveAll resolves capture timestamps for paths in chunks. The progress
// callback, if non-nil, receives the running done count after each chunk.
// A chunk whose exiftool invocation fails leaves its paths unresolved; the
// remaining chunks still run.
func (r *Resolver) ResolveAll(ctx context.Context, paths []string, progress func(done, total int)) map[string]time.Time {
	resolved := make(map[string]time.Time, len(paths))
	if len(paths) == 0 {
		return resolved
	}

	total := len(paths)
	done := 0
	for start := 0; start < total; start += r.chunkSize {
		if ctx.Err() != nil {
			break
		}
		end := start + r.chunkSize
		if end > total {
			end = total
		}
		chunk := paths[start:end]
		if err := r.resolveChunk(ctx, chunk, resolved); err != nil && r.logger != nil {
			r.logger.Warn("exiftool chunk failed",
				logging.Int("chunk_size", len(chunk)),
				logging.Error(err))
		}
		done = end
		if progress != nil {
			progress(done, total)
		}
	}

	if r.inlineFallback {
		r.fillInline(ctx, paths, resolved)
	}
	return resolved
}

func (r *Resolver) resolveChunk(ctx context.Context, chunk []string, resolved map[string]time.Time) error {
	args := []string{"-json", "-n"}
	for _, field := range timestampFields {
		args = append(args, "-"+field)
	}
	args = append(args, chunk...)

	runCtx := ctx
	if r.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	output, err := r.exec.Output(runCtx, r.binary, args)
	if len(output) == 0 {
		if err != nil {
			return fmt.Errorf("run %s: %w", r.binary, err)
		}
		return errors.New("empty exiftool output")
	}
	// exiftool exits non-zero when any file in the batch is unreadable but
	// still reports the rest; trust the JSON whenever there is some.

	var entries []map[string]any
	if jsonErr := json.Unmarshal(output, &entries); jsonErr != nil {
		if err != nil {
			return fmt.Errorf("run %s: %w", r.binary, err)
		}
		return fmt.Errorf("decode exiftool output: %w", jsonErr)
	}

	lookup := make(map[string]string, len(chunk)*2)
	for _, path := range chunk {
		lookup[path] = path
		if abs, absErr := filepath.Abs(path); absErr == nil {
			lookup[abs] = path
		}
		if real, realErr := filepath.EvalSymlinks(path); realErr == nil {
			lookup[real] = path
		}
	}

	for _, entry := range entries {
		sourceFile, _ := entry["SourceFile"].(string)
		if sourceFile == "" {
			continue
		}
		path, ok := lookup[sourceFile]
		if !ok {
			if real, realErr := filepath.EvalSymlinks(sourceFile); realErr == nil {
				path, ok = lookup[real]
			}
			if !ok {
				continue
			}
		}
		for _, field := range timestampFields {
			raw, present := entry[field]
			if !present {
				continue
			}
			ts, parsed := ParseTimestamp(fmt.Sprint(raw))
			if parsed {
				resolved[path] = ts
				break
			}
		}
	}
	return nil
}

// fillInline decodes embedded metadata in-process for formats the local
// decoder understands, covering paths exiftool left unresolved.
func (r *Resolver) fillInline(ctx context.Context, paths []string, resolved map[string]time.Time) {
	for _, path := range paths {
		if ctx.Err() != nil {
			return
		}
		if _, ok := resolved[path]; ok {
			continue
		}
		if !inlineDecodable(path) {
			continue
		}
		ts, ok := decodeInline(path)
		if !ok {
			continue
		}
		resolved[path] = ts
		if r.logger != nil {
			r.logger.Debug("inline decoder resolved timestamp", logging.String("path", path))
		}
	}
}

func inlineDecodable(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jpg", ".jpeg", ".tif", ".tiff":
		return true
	default:
		return false
	}
}

type commandExecutor struct{}

func (commandExecutor) Output(ctx context.Context, binary string, args []string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, binary, args...) //nolint:gosec
	output, err := cmd.Output()
	if err != nil {
		return output, err
	}
	return output, nil
}
