// Package engine orchestrates an ingestion run: scan, filter, timestamp
// resolution, the per-unit duplicate decision, and the move plus record
// step that makes repeated runs resumable.
package engine

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"log/slog"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"snapsort/internal/binder"
	"snapsort/internal/catalog"
	"snapsort/internal/config"
	"snapsort/internal/exif"
	"snapsort/internal/hashing"
	"snapsort/internal/logging"
	"snapsort/internal/report"
)

var (
	// ErrAlreadyRunning means another process holds the run lock.
	ErrAlreadyRunning = errors.New("another ingestion run is already in progress")
	// ErrSourceMissing means the source directory does not exist and no
	// destination indexing was requested.
	ErrSourceMissing = errors.New("source directory does not exist")
)

// TimestampResolver is the capture-time lookup the engine depends on.
type TimestampResolver interface {
	ResolveAll(ctx context.Context, paths []string, progress func(done, total int)) map[string]time.Time
}

// Option configures the engine.
type Option func(*Engine)

// WithResolver injects a custom timestamp resolver (used in tests).
func WithResolver(resolver TimestampResolver) Option {
	return func(e *Engine) {
		if resolver != nil {
			e.resolver = resolver
		}
	}
}

// WithProgress toggles interactive progress bars on stdout.
func WithProgress(enabled bool) Option {
	return func(e *Engine) {
		e.progress = enabled
	}
}

// Engine runs the ingestion pipeline end to end.
type Engine struct {
	cfg      *config.Config
	store    *catalog.Store
	logger   *slog.Logger
	hasher   *hashing.Hasher
	binder   *binder.Binder
	resolver TimestampResolver
	progress bool

	runID      string
	data       *report.Data
	dryRunSeen map[hashing.Fingerprint]struct{}
	bytesMoved int64
}

// Outcome summarizes a completed run.
type Outcome struct {
	RunID       string
	ReportDir   string
	Counts      report.Counts
	Interrupted bool
	DryRun      bool
}

// New constructs an Engine. The catalog store stays owned by the caller.
func New(cfg *config.Config, store *catalog.Store, logger *slog.Logger, opts ...Option) *Engine {
	e := &Engine{
		cfg:        cfg,
		store:      store,
		logger:     logging.NewComponentLogger(logger, "engine"),
		hasher:     hashing.New(cfg.Hashing.ThresholdMiB, cfg.Hashing.Workers),
		binder:     binder.New(cfg, logger),
		resolver:   exif.NewResolver(cfg, logger),
		runID:      newRunID(),
		data:       &report.Data{},
		dryRunSeen: make(map[hashing.Fingerprint]struct{}),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run executes one full ingestion pass. An interrupt lands between units:
// the unit in flight finishes, reports are still written, and the next run
// resumes from the ledger.
func (e *Engine) Run(ctx context.Context) (*Outcome, error) {
	lock := flock.New(e.cfg.LockPath())
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire run lock: %w", err)
	}
	if !locked {
		return nil, ErrAlreadyRunning
	}
	defer func() {
		_ = lock.Unlock()
	}()

	started := time.Now()
	e.logger.Info("run starting",
		logging.String(logging.FieldRunID, e.runID),
		logging.String("source", e.cfg.Paths.SourceDir),
		logging.String("dest", e.cfg.Paths.DestDir),
		logging.Bool("dry_run", e.cfg.Options.DryRun))

	sourceExists := isDir(e.cfg.Paths.SourceDir)
	if !sourceExists && !e.cfg.Options.IncludeDest {
		return nil, fmt.Errorf("%w: %s", ErrSourceMissing, e.cfg.Paths.SourceDir)
	}

	if e.cfg.Options.IncludeDest {
		if err := e.indexDestination(ctx); err != nil {
			return nil, err
		}
	}

	candidates := 0
	interrupted := false
	if sourceExists {
		candidates, interrupted, err = e.ingestSource(ctx)
		if err != nil {
			return nil, err
		}
	} else {
		e.logger.Info("source missing, destination indexing only")
	}

	outcome, err := e.finalize(started, candidates, interrupted)
	if err != nil {
		return nil, err
	}
	return outcome, nil
}

// ingestSource scans, filters, resolves timestamps, then walks every unit
// and the two leftover passes. Returns the candidate count and whether the
// run was cut short.
func (e *Engine) ingestSource(ctx context.Context) (int, bool, error) {
	scan, err := e.binder.Scan(e.cfg.Paths.SourceDir)
	if err != nil {
		return 0, false, fmt.Errorf("scan source: %w", err)
	}

	candidates, err := e.filterCandidates(scan.Units)
	if err != nil {
		return 0, false, err
	}
	e.logger.Info("scan filtered",
		logging.Int("units", len(scan.Units)),
		logging.Int("candidates", len(candidates)),
		logging.Int("orphan_sidecars", len(scan.OrphanSidecars)),
		logging.Int("unrecognized", len(scan.Unrecognized)))

	var timestamps map[string]time.Time
	if len(candidates) > 0 {
		masters := make([]string, 0, len(candidates))
		for _, unit := range candidates {
			masters = append(masters, unit.Master)
		}
		bar := e.newBar(len(masters), "metadata")
		timestamps = e.resolver.ResolveAll(ctx, masters, func(done, total int) {
			barSet(bar, done)
		})
		barFinish(bar)
	}

	interrupted := false
	bar := e.newBar(len(candidates), "ingest")
	for _, unit := range candidates {
		if ctx.Err() != nil {
			interrupted = true
			break
		}
		e.processUnit(unit, timestamps)
		barAdd(bar, 1)
	}
	barFinish(bar)
	if interrupted {
		e.logger.Warn("run interrupted, rerun with the same arguments to continue",
			logging.String(logging.FieldRunID, e.runID))
	}

	e.processOrphanSidecars(ctx, scan.OrphanSidecars)
	e.processUnrecognized(ctx, scan.Unrecognized)

	return len(candidates), interrupted, nil
}

func (e *Engine) finalize(started time.Time, candidates int, interrupted bool) (*Outcome, error) {
	finished := time.Now()
	counts := e.data.Counts(candidates)

	writer, err := report.NewWriter(e.reportDir())
	if err != nil {
		return nil, err
	}
	summary := report.Summary{
		RunID:       e.runID,
		StartedAt:   started.Unix(),
		FinishedAt:  finished.Unix(),
		DurationSec: finished.Unix() - started.Unix(),
		Args:        e.effectiveArgs(),
		Counts:      counts,
	}
	if err := writer.WriteAll(summary, e.data); err != nil {
		return nil, fmt.Errorf("write reports: %w", err)
	}

	record := report.HistoryRecord{
		RunID:       e.runID,
		StartedAt:   summary.StartedAt,
		FinishedAt:  summary.FinishedAt,
		DurationSec: summary.DurationSec,
		DryRun:      e.cfg.Options.DryRun,
		IncludeDest: e.cfg.Options.IncludeDest,
		Counts:      counts,
		ReportDir:   writer.Dir(),
	}
	if err := report.AppendHistory(e.cfg.HistoryPath(), record); err != nil {
		e.logger.Warn("run history update failed", logging.Error(err))
	}

	e.logger.Info("run finished",
		logging.String(logging.FieldRunID, e.runID),
		logging.Int("moved", counts.Moved),
		logging.Int("duplicate", counts.Duplicate),
		logging.Int("errors", counts.Error),
		logging.String("bytes_moved", humanBytes(e.bytesMoved)),
		logging.String("report_dir", writer.Dir()))

	return &Outcome{
		RunID:       e.runID,
		ReportDir:   writer.Dir(),
		Counts:      counts,
		Interrupted: interrupted,
		DryRun:      e.cfg.Options.DryRun,
	}, nil
}

func (e *Engine) reportDir() string {
	return filepath.Join(e.cfg.ReportsDir(), "run-"+e.runID)
}

func (e *Engine) effectiveArgs() map[string]any {
	return map[string]any{
		"source":                e.cfg.Paths.SourceDir,
		"dest":                  e.cfg.Paths.DestDir,
		"duplicates":            e.cfg.Paths.DuplicatesDir,
		"orphans":               e.cfg.Paths.OrphansDir,
		"review":                e.cfg.Paths.ReviewDir,
		"db":                    e.cfg.Paths.DatabasePath,
		"chunk_size":            e.cfg.ExifTool.ChunkSize,
		"hash_workers":          e.cfg.Hashing.Workers,
		"hash_threshold_mib":    e.cfg.Hashing.ThresholdMiB,
		"live_pairing_enabled":  e.cfg.LivePairing.Enabled,
		"verify_tail_collision": e.cfg.Hashing.VerifyTailCollision,
		"dry_run":               e.cfg.Options.DryRun,
		"include_dest":          e.cfg.Options.IncludeDest,
	}
}

func newRunID() string {
	token := uuid.NewString()
	return time.Now().Format("20060102-150405") + "-" + token[:6]
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
