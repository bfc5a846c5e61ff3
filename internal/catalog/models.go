package catalog

import (
	"time"

	"snapsort/internal/hashing"
)

// Status is the terminal outcome recorded for a processed source path.
type Status string

const (
	// StatusMoved marks content archived into the destination tree.
	StatusMoved Status = "moved"
	// StatusDuplicate marks content routed to the duplicates holding directory.
	StatusDuplicate Status = "duplicate"
	// StatusError marks a path whose processing failed; retried next run.
	StatusError Status = "error"
)

// HashEntry is the durable first-seen record for a content fingerprint.
type HashEntry struct {
	Fingerprint hashing.Fingerprint
	FirstPath   string
	AddedAt     time.Time
}

// FileRecord is the durable processing record for one source path. It is
// replaced wholesale every time the path is processed, including error
// retries, which is what makes repeated runs over an unchanged tree cheap.
type FileRecord struct {
	SourcePath  string
	Size        int64
	ModTime     int64
	CaptureTime int64
	Digest      string
	Method      hashing.Method
	Status      Status
	DestMaster  string
	DestSidecar string
	DestClip    string
	ErrorText   string
	RunID       string
	UpdatedAt   int64
}
