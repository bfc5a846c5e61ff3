package engine

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"

	"snapsort/internal/fileutil"
	"snapsort/internal/logging"
	"snapsort/internal/report"
)

// indexDestination fingerprints the files already in the destination tree
// and registers them, so a fresh database can be seeded from an existing
// archive. Content that hashes to an already-registered fingerprint at a
// different path is reported, never touched.
func (e *Engine) indexDestination(ctx context.Context) error {
	skipRoots := []string{
		e.cfg.Paths.DataDir,
		e.cfg.Paths.DuplicatesDir,
		e.cfg.Paths.OrphansDir,
		e.cfg.Paths.ReviewDir,
	}

	var files []string
	err := filepath.WalkDir(e.cfg.Paths.DestDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			if underAny(path, skipRoots) {
				return fs.SkipDir
			}
			return nil
		}
		if d.Type()&fs.ModeSymlink != 0 {
			return nil
		}
		if path == e.cfg.Paths.DatabasePath || underAny(path, skipRoots) {
			return nil
		}
		files = append(files, path)
		return nil
	})
	if err != nil {
		return err
	}

	e.logger.Info("indexing destination",
		logging.String("dest", e.cfg.Paths.DestDir),
		logging.Int("files", len(files)))
	if len(files) == 0 {
		return nil
	}

	indexed := 0
	bar := e.newBar(len(files), "index")
	batchSize := e.cfg.ExifTool.ChunkSize
	for start := 0; start < len(files); start += batchSize {
		if ctx.Err() != nil {
			break
		}
		end := start + batchSize
		if end > len(files) {
			end = len(files)
		}
		batch := files[start:end]
		results := e.hasher.FingerprintAll(ctx, batch)

		for _, path := range batch {
			result, ok := results[path]
			if !ok || result.Err != nil {
				continue
			}
			fp := result.Fingerprint
			existing, found, err := e.store.LookupHash(ctx, fp)
			if err != nil {
				e.logger.Warn("index lookup failed", logging.String("path", path), logging.Error(err))
				continue
			}
			switch {
			case found && existing != path:
				e.data.DestDuplicate = append(e.data.DestDuplicate, report.DestDuplicateRow{
					DupPath:      path,
					ExistingPath: existing,
					Digest:       fp.Digest,
					Method:       string(fp.Method),
					Size:         fp.Size,
				})
			case !found:
				if err := e.store.AddHash(ctx, fp, path); err != nil {
					e.logger.Warn("index insert failed", logging.String("path", path), logging.Error(err))
					continue
				}
				indexed++
			}
		}
		barSet(bar, end)
	}
	barFinish(bar)

	e.logger.Info("destination indexed",
		logging.Int("registered", indexed),
		logging.Int("duplicates_found", len(e.data.DestDuplicate)))
	return nil
}

// processOrphanSidecars resolves a timestamp for each unclaimed sidecar and
// files it into a dated bucket under the orphans directory, keeping its
// original name.
func (e *Engine) processOrphanSidecars(ctx context.Context, orphans []string) {
	if len(orphans) == 0 {
		return
	}
	e.logger.Info("processing orphan sidecars", logging.Int("count", len(orphans)))

	timestamps := e.resolver.ResolveAll(ctx, orphans, nil)
	for _, sidecar := range orphans {
		if ctx.Err() != nil {
			return
		}
		info, err := os.Stat(sidecar)
		if err != nil {
			continue
		}
		inferred, ok := timestamps[sidecar]
		if !ok {
			inferred = info.ModTime()
		}

		bucket := filepath.Join(e.cfg.Paths.OrphansDir, inferred.Format("2006"), inferred.Format("01"))
		final := filepath.Join(bucket, filepath.Base(sidecar))
		if !e.cfg.Options.DryRun {
			final, err = fileutil.SafeMove(sidecar, final)
			if err != nil {
				e.data.Error = append(e.data.Error, report.ErrorRow{
					SrcPath: sidecar,
					Error:   err.Error(),
					Stage:   "move_orphan_sidecar",
				})
				continue
			}
		}

		e.data.OrphanSidecar = append(e.data.OrphanSidecar, report.OrphanSidecarRow{
			SrcPath:      sidecar,
			DestPath:     final,
			InferredTime: inferred.Unix(),
			Reason:       "no_master_in_same_dir_same_stem",
		})
	}
}

// processUnrecognized moves everything with an unknown extension into the
// flat review directory for a human to sort out.
func (e *Engine) processUnrecognized(ctx context.Context, unrecognized []string) {
	if len(unrecognized) == 0 {
		return
	}
	e.logger.Info("processing unrecognized files", logging.Int("count", len(unrecognized)))

	for _, path := range unrecognized {
		if ctx.Err() != nil {
			return
		}
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if e.cfg.Options.DryRun {
			continue
		}
		name := fileutil.UniqueReviewName(e.cfg.Paths.ReviewDir, filepath.Base(path))
		if err := fileutil.MoveFile(path, filepath.Join(e.cfg.Paths.ReviewDir, name)); err != nil {
			e.data.Error = append(e.data.Error, report.ErrorRow{
				SrcPath: path,
				Error:   err.Error(),
				Stage:   "move_unrecognized",
			})
		}
	}
}
