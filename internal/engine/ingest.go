package engine

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"snapsort/internal/binder"
	"snapsort/internal/catalog"
	"snapsort/internal/fileutil"
	"snapsort/internal/hashing"
	"snapsort/internal/logging"
	"snapsort/internal/report"
)

// filterCandidates drops units whose master is already in the ledger and
// anything that lives under the destination-side trees, which would loop
// files back through the pipeline. Dry runs reprocess everything. Ledger
// lookups run on a background context so an interrupt still produces a
// clean report.
func (e *Engine) filterCandidates(units []binder.Unit) ([]binder.Unit, error) {
	ctx := context.Background()
	skipRoots := []string{
		e.cfg.Paths.DestDir,
		e.cfg.Paths.DuplicatesDir,
		e.cfg.Paths.OrphansDir,
		e.cfg.Paths.ReviewDir,
	}

	candidates := make([]binder.Unit, 0, len(units))
	for _, unit := range units {
		if underAny(unit.Master, skipRoots) {
			continue
		}
		if !e.cfg.Options.DryRun {
			processed, err := e.store.IsProcessed(ctx, unit.Master)
			if err != nil {
				return nil, fmt.Errorf("ledger lookup for %s: %w", unit.Master, err)
			}
			if processed {
				continue
			}
		}
		candidates = append(candidates, unit)
	}
	return candidates, nil
}

// processUnit takes one unit through stat, timestamp, fingerprint, and the
// duplicate decision. Failures at any stage record an error outcome so the
// next run retries the path.
func (e *Engine) processUnit(unit binder.Unit, timestamps map[string]time.Time) {
	master := unit.Master

	info, err := os.Stat(master)
	if err != nil {
		e.recordError(master, "process_master", err)
		return
	}
	size := info.Size()
	modTime := info.ModTime()

	captured, ok := timestamps[master]
	if !ok {
		captured = modTime
	}

	fp, err := e.hasher.Fingerprint(master)
	if err != nil {
		e.recordError(master, "fingerprint", err)
		return
	}

	isDup, finalFP, err := e.checkDuplicate(master, fp)
	if err != nil {
		e.recordError(master, "duplicate_check", err)
		return
	}

	if isDup {
		e.handleDuplicate(unit, size, modTime, captured, finalFP)
	} else {
		e.handleNewFile(unit, size, modTime, captured, finalFP)
	}
}

// checkDuplicate applies the tiered decision. Full digests are
// authoritative; a tail hit is double-checked against a full digest unless
// verification is disabled. The returned fingerprint is the one to persist.
func (e *Engine) checkDuplicate(master string, fp hashing.Fingerprint) (bool, hashing.Fingerprint, error) {
	if e.cfg.Options.DryRun {
		if _, seen := e.dryRunSeen[fp]; seen {
			return true, fp, nil
		}
	}

	ctx := context.Background()
	if fp.Method == hashing.MethodFull {
		exists, err := e.store.HasHash(ctx, fp)
		return exists, fp, err
	}

	exists, err := e.store.HasHash(ctx, fp)
	if err != nil || !exists {
		return false, fp, err
	}
	if !e.cfg.Hashing.VerifyTailCollision {
		return true, fp, nil
	}

	fullFP, err := e.hasher.FullFingerprint(master)
	if err != nil {
		return false, fp, fmt.Errorf("verify tail collision: %w", err)
	}
	exists, err = e.store.HasHash(ctx, fullFP)
	if err != nil {
		return false, fullFP, err
	}
	return exists, fullFP, nil
}

func (e *Engine) handleDuplicate(unit binder.Unit, size int64, modTime, captured time.Time, fp hashing.Fingerprint) {
	dupDir := e.cfg.Paths.DuplicatesDir
	finalMaster := filepath.Join(dupDir, filepath.Base(unit.Master))
	finalSidecar := ""
	finalClip := ""

	if e.cfg.Options.DryRun {
		if unit.Sidecar != "" {
			finalSidecar = filepath.Join(dupDir, filepath.Base(unit.Sidecar))
		}
		if unit.Clip != "" {
			finalClip = filepath.Join(dupDir, filepath.Base(unit.Clip))
		}
	} else {
		moved, err := fileutil.SafeMove(unit.Master, finalMaster)
		if err != nil {
			e.recordError(unit.Master, "move_duplicate", err)
			return
		}
		finalMaster = moved

		finalSidecar = e.moveCompanion(unit.Sidecar, dupDir, "")
		finalClip = e.moveCompanion(unit.Clip, dupDir, "")

		rec := &catalog.FileRecord{
			SourcePath:  unit.Master,
			Size:        size,
			ModTime:     modTime.Unix(),
			CaptureTime: captured.Unix(),
			Digest:      fp.Digest,
			Method:      fp.Method,
			Status:      catalog.StatusDuplicate,
			DestMaster:  finalMaster,
			DestSidecar: finalSidecar,
			DestClip:    finalClip,
			RunID:       e.runID,
		}
		if err := e.store.UpsertRecord(context.Background(), rec); err != nil {
			e.recordError(unit.Master, "record_duplicate", err)
			return
		}
	}

	e.data.Duplicate = append(e.data.Duplicate, report.DuplicateRow{
		SrcPath:        unit.Master,
		DupPath:        finalMaster,
		DupSidecarPath: finalSidecar,
		DupClipPath:    finalClip,
		CaptureTime:    captured.Unix(),
		Digest:         fp.Digest,
		Method:         string(fp.Method),
		Size:           size,
	})
}

func (e *Engine) handleNewFile(unit binder.Unit, size int64, modTime, captured time.Time, fp hashing.Fingerprint) {
	year := captured.Format("2006")
	month := captured.Format("01")
	targetDir := filepath.Join(e.cfg.Paths.DestDir, year, month)

	name := fileutil.ArchiveName(
		targetDir,
		captured.Format("20060102"),
		filepath.Ext(unit.Master),
		e.cfg.Extensions.Sidecar,
		e.cfg.LivePairing.ClipExt,
	)
	stem := strings.TrimSuffix(name, filepath.Ext(name))

	finalMaster := filepath.Join(targetDir, name)
	finalSidecar := ""
	finalClip := ""

	if e.cfg.Options.DryRun {
		e.dryRunSeen[fp] = struct{}{}
		if unit.Sidecar != "" {
			finalSidecar = filepath.Join(targetDir, stem+normalizedExt(e.cfg.Extensions.Sidecar))
		}
		if unit.Clip != "" {
			finalClip = filepath.Join(targetDir, stem+normalizedExt(e.cfg.LivePairing.ClipExt))
		}
	} else {
		moved, err := fileutil.SafeMove(unit.Master, finalMaster)
		if err != nil {
			e.recordError(unit.Master, "move_master", err)
			return
		}
		finalMaster = moved

		finalSidecar = e.moveCompanion(unit.Sidecar, targetDir, stem+normalizedExt(e.cfg.Extensions.Sidecar))
		finalClip = e.moveCompanion(unit.Clip, targetDir, stem+normalizedExt(e.cfg.LivePairing.ClipExt))

		ctx := context.Background()
		if err := e.store.AddHash(ctx, fp, finalMaster); err != nil {
			e.recordError(unit.Master, "register_hash", err)
			return
		}
		rec := &catalog.FileRecord{
			SourcePath:  unit.Master,
			Size:        size,
			ModTime:     modTime.Unix(),
			CaptureTime: captured.Unix(),
			Digest:      fp.Digest,
			Method:      fp.Method,
			Status:      catalog.StatusMoved,
			DestMaster:  finalMaster,
			DestSidecar: finalSidecar,
			DestClip:    finalClip,
			RunID:       e.runID,
		}
		if err := e.store.UpsertRecord(ctx, rec); err != nil {
			e.recordError(unit.Master, "record_moved", err)
			return
		}
		e.bytesMoved += size
	}

	e.data.Moved = append(e.data.Moved, report.MovedRow{
		SrcPath:         unit.Master,
		DestPath:        finalMaster,
		DestSidecarPath: finalSidecar,
		DestClipPath:    finalClip,
		CaptureTime:     captured.Unix(),
		Year:            year,
		Month:           month,
		Digest:          fp.Digest,
		Method:          string(fp.Method),
		Size:            size,
	})
}

// moveCompanion moves a bound sidecar or clip next to its master. The
// companion may legitimately have vanished since the scan; that is not an
// error. An empty newName keeps the companion's original filename.
func (e *Engine) moveCompanion(src, targetDir, newName string) string {
	if src == "" {
		return ""
	}
	if _, err := os.Stat(src); err != nil {
		return ""
	}
	if newName == "" {
		newName = filepath.Base(src)
	}
	moved, err := fileutil.SafeMove(src, filepath.Join(targetDir, newName))
	if err != nil {
		e.recordError(src, "move_companion", err)
		return ""
	}
	return moved
}

func (e *Engine) recordError(path, stage string, cause error) {
	e.logger.Error("processing failed",
		logging.String("path", path),
		logging.String(logging.FieldStage, stage),
		logging.Error(cause))

	var size, modTime int64
	if info, err := os.Stat(path); err == nil {
		size = info.Size()
		modTime = info.ModTime().Unix()
	}

	if !e.cfg.Options.DryRun {
		rec := &catalog.FileRecord{
			SourcePath:  path,
			Size:        size,
			ModTime:     modTime,
			CaptureTime: modTime,
			Status:      catalog.StatusError,
			ErrorText:   cause.Error(),
			RunID:       e.runID,
		}
		if err := e.store.UpsertRecord(context.Background(), rec); err != nil {
			e.logger.Error("error record write failed",
				logging.String("path", path),
				logging.Error(err))
		}
	}

	e.data.Error = append(e.data.Error, report.ErrorRow{
		SrcPath: path,
		Error:   cause.Error(),
		Stage:   stage,
		Size:    size,
		ModTime: modTime,
	})
}

func normalizedExt(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}

func underAny(path string, roots []string) bool {
	for _, root := range roots {
		if root == "" {
			continue
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			continue
		}
		if rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return true
		}
	}
	return false
}
