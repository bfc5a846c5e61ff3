package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// HistoryRecord is one entry in the cumulative run history file.
type HistoryRecord struct {
	RunID       string `json:"run_id"`
	StartedAt   int64  `json:"started_at"`
	FinishedAt  int64  `json:"finished_at"`
	DurationSec int64  `json:"duration_sec"`
	DryRun      bool   `json:"dry_run"`
	IncludeDest bool   `json:"include_dest"`
	Counts      Counts `json:"counts"`
	ReportDir   string `json:"report_dir"`
}

// ReadHistory loads the history file. A missing or unreadable file yields
// an empty history rather than an error, so one corrupt write never blocks
// future runs.
func ReadHistory(path string) []HistoryRecord {
	payload, err := os.ReadFile(path)
	if err != nil {
		return nil
	}
	var history []HistoryRecord
	if err := json.Unmarshal(payload, &history); err != nil {
		return nil
	}
	return history
}

// AppendHistory reads the existing history, appends record, and rewrites
// the file as a JSON array.
func AppendHistory(path string, record HistoryRecord) error {
	history := append(ReadHistory(path), record)

	payload, err := json.MarshalIndent(history, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal run history: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create history dir: %w", err)
	}
	if err := os.WriteFile(path, append(payload, '\n'), 0o644); err != nil {
		return fmt.Errorf("write run history: %w", err)
	}
	return nil
}
