// Package report writes per-run artifacts: a JSON summary, one CSV per
// outcome category, and the cumulative run history file.
package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// MovedRow records one successful archival.
type MovedRow struct {
	SrcPath         string
	DestPath        string
	DestSidecarPath string
	DestClipPath    string
	CaptureTime     int64
	Year            string
	Month           string
	Digest          string
	Method          string
	Size            int64
}

// DuplicateRow records one source file routed to the duplicates directory.
type DuplicateRow struct {
	SrcPath        string
	DupPath        string
	DupSidecarPath string
	DupClipPath    string
	CaptureTime    int64
	Digest         string
	Method         string
	Size           int64
}

// ErrorRow records one failed source file.
type ErrorRow struct {
	SrcPath string
	Error   string
	Stage   string
	Size    int64
	ModTime int64
}

// OrphanSidecarRow records one sidecar that had no master to bind to.
type OrphanSidecarRow struct {
	SrcPath      string
	DestPath     string
	InferredTime int64
	Reason       string
}

// DestDuplicateRow records duplicate content discovered while indexing the
// destination tree.
type DestDuplicateRow struct {
	DupPath      string
	ExistingPath string
	Digest       string
	Method       string
	Size         int64
}

// Data accumulates report rows over a run.
type Data struct {
	Moved         []MovedRow
	Duplicate     []DuplicateRow
	Error         []ErrorRow
	OrphanSidecar []OrphanSidecarRow
	DestDuplicate []DestDuplicateRow
}

// Counts summarizes outcome totals for the summary and history records.
type Counts struct {
	CandidateMasters int `json:"candidate_masters"`
	Moved            int `json:"moved"`
	Duplicate        int `json:"duplicate"`
	Error            int `json:"error"`
	OrphanSidecar    int `json:"orphan_sidecar"`
	DestDuplicate    int `json:"dest_duplicate"`
}

// Counts derives outcome totals from the accumulated rows.
func (d *Data) Counts(candidates int) Counts {
	return Counts{
		CandidateMasters: candidates,
		Moved:            len(d.Moved),
		Duplicate:        len(d.Duplicate),
		Error:            len(d.Error),
		OrphanSidecar:    len(d.OrphanSidecar),
		DestDuplicate:    len(d.DestDuplicate),
	}
}

// Summary is the per-run summary.json payload.
type Summary struct {
	RunID       string         `json:"run_id"`
	StartedAt   int64          `json:"started_at"`
	FinishedAt  int64          `json:"finished_at"`
	DurationSec int64          `json:"duration_sec"`
	Args        map[string]any `json:"args"`
	Counts      Counts         `json:"counts"`
}

// Writer emits all artifacts for one run directory.
type Writer struct {
	dir string
}

// NewWriter creates the run's report directory.
func NewWriter(dir string) (*Writer, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create report dir: %w", err)
	}
	return &Writer{dir: dir}, nil
}

// Dir returns the report directory path.
func (w *Writer) Dir() string {
	return w.dir
}

// WriteAll writes the summary and every category CSV. Each CSV carries its
// fixed header even when there are no rows.
func (w *Writer) WriteAll(summary Summary, data *Data) error {
	if err := w.writeSummary(summary); err != nil {
		return err
	}
	if err := w.writeMoved(data.Moved); err != nil {
		return err
	}
	if err := w.writeDuplicate(data.Duplicate); err != nil {
		return err
	}
	if err := w.writeError(data.Error); err != nil {
		return err
	}
	if err := w.writeOrphanSidecar(data.OrphanSidecar); err != nil {
		return err
	}
	return w.writeDestDuplicate(data.DestDuplicate)
}

func (w *Writer) writeSummary(summary Summary) error {
	payload, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal summary: %w", err)
	}
	path := filepath.Join(w.dir, "summary.json")
	if err := os.WriteFile(path, append(payload, '\n'), 0o644); err != nil {
		return fmt.Errorf("write summary: %w", err)
	}
	return nil
}

func (w *Writer) writeMoved(rows []MovedRow) error {
	header := []string{"src_path", "dest_path", "dest_sidecar_path", "dest_clip_path", "capture_time", "year", "month", "digest", "method", "size"}
	records := make([][]string, 0, len(rows))
	for _, row := range rows {
		records = append(records, []string{
			row.SrcPath, row.DestPath, row.DestSidecarPath, row.DestClipPath,
			formatInt(row.CaptureTime), row.Year, row.Month,
			row.Digest, row.Method, formatInt(row.Size),
		})
	}
	return w.writeCSV("moved.csv", header, records)
}

func (w *Writer) writeDuplicate(rows []DuplicateRow) error {
	header := []string{"src_path", "dup_path", "dup_sidecar_path", "dup_clip_path", "capture_time", "digest", "method", "size"}
	records := make([][]string, 0, len(rows))
	for _, row := range rows {
		records = append(records, []string{
			row.SrcPath, row.DupPath, row.DupSidecarPath, row.DupClipPath,
			formatInt(row.CaptureTime), row.Digest, row.Method, formatInt(row.Size),
		})
	}
	return w.writeCSV("duplicate.csv", header, records)
}

func (w *Writer) writeError(rows []ErrorRow) error {
	header := []string{"src_path", "error", "stage", "size", "mtime"}
	records := make([][]string, 0, len(rows))
	for _, row := range rows {
		records = append(records, []string{
			row.SrcPath, row.Error, row.Stage, formatInt(row.Size), formatInt(row.ModTime),
		})
	}
	return w.writeCSV("error.csv", header, records)
}

func (w *Writer) writeOrphanSidecar(rows []OrphanSidecarRow) error {
	header := []string{"sidecar_src_path", "orphan_dest_path", "inferred_time", "reason"}
	records := make([][]string, 0, len(rows))
	for _, row := range rows {
		records = append(records, []string{
			row.SrcPath, row.DestPath, formatInt(row.InferredTime), row.Reason,
		})
	}
	return w.writeCSV("orphan_sidecar.csv", header, records)
}

func (w *Writer) writeDestDuplicate(rows []DestDuplicateRow) error {
	header := []string{"dup_path", "existing_path", "digest", "method", "size"}
	records := make([][]string, 0, len(rows))
	for _, row := range rows {
		records = append(records, []string{
			row.DupPath, row.ExistingPath, row.Digest, row.Method, formatInt(row.Size),
		})
	}
	return w.writeCSV("dest_duplicate.csv", header, records)
}

func (w *Writer) writeCSV(name string, header []string, records [][]string) error {
	f, err := os.Create(filepath.Join(w.dir, name))
	if err != nil {
		return fmt.Errorf("create %s: %w", name, err)
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write %s header: %w", name, err)
	}
	for _, record := range records {
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write %s row: %w", name, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush %s: %w", name, err)
	}
	return f.Close()
}

func formatInt(v int64) string {
	return fmt.Sprintf("%d", v)
}
