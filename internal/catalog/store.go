package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"snapsort/internal/config"
	"snapsort/internal/hashing"
)

// Store manages the content-hash registry and the per-file processing ledger,
// backed by a single SQLite database.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the catalog database and applies migrations.
func Open(cfg *config.Config) (*Store, error) {
	dbPath := cfg.Paths.DatabasePath
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create catalog directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath}
	if err := store.applyMigrations(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

// AddHash records the first-seen path for a fingerprint. Insert-if-absent:
// an existing entry for the same (digest, size, method) wins and is kept.
func (s *Store) AddHash(ctx context.Context, fp hashing.Fingerprint, firstPath string) error {
	if fp.Digest == "" {
		return errors.New("fingerprint digest is empty")
	}
	_, err := s.db.ExecContext(
		ctx,
		`INSERT OR IGNORE INTO content_hashes (digest, size, method, first_path, added_at)
         VALUES (?, ?, ?, ?, ?)`,
		fp.Digest,
		fp.Size,
		string(fp.Method),
		firstPath,
		time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("insert hash: %w", err)
	}
	return nil
}

// LookupHash returns the first-seen path for a fingerprint, or ok=false when
// the content has never been registered.
func (s *Store) LookupHash(ctx context.Context, fp hashing.Fingerprint) (string, bool, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT first_path FROM content_hashes WHERE digest = ? AND size = ? AND method = ? LIMIT 1`,
		fp.Digest,
		fp.Size,
		string(fp.Method),
	)
	var firstPath sql.NullString
	if err := row.Scan(&firstPath); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("lookup hash: %w", err)
	}
	return firstPath.String, true, nil
}

// HasHash reports whether a fingerprint is registered.
func (s *Store) HasHash(ctx context.Context, fp hashing.Fingerprint) (bool, error) {
	_, ok, err := s.LookupHash(ctx, fp)
	return ok, err
}

// IsProcessed reports whether a source path already has a successful outcome.
// Error outcomes do not count: those paths are retried on the next run.
func (s *Store) IsProcessed(ctx context.Context, sourcePath string) (bool, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT status FROM file_records WHERE source_path = ?`,
		sourcePath,
	)
	var status string
	if err := row.Scan(&status); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("check processed: %w", err)
	}
	return status == string(StatusMoved) || status == string(StatusDuplicate), nil
}

// GetRecord fetches the processing record for a source path, or nil when the
// path has never been processed.
func (s *Store) GetRecord(ctx context.Context, sourcePath string) (*FileRecord, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+recordColumns+` FROM file_records WHERE source_path = ?`, sourcePath)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get record: %w", err)
	}
	return rec, nil
}

// UpsertRecord replaces the processing record for rec.SourcePath.
func (s *Store) UpsertRecord(ctx context.Context, rec *FileRecord) error {
	if rec == nil {
		return errors.New("record is nil")
	}
	if rec.SourcePath == "" {
		return errors.New("record source path is empty")
	}
	rec.UpdatedAt = time.Now().Unix()
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO file_records
            (source_path, size, mtime, capture_time, digest, method, status,
             dest_master, dest_sidecar, dest_clip, error_text, run_id, updated_at)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
         ON CONFLICT(source_path) DO UPDATE SET
            size = excluded.size,
            mtime = excluded.mtime,
            capture_time = excluded.capture_time,
            digest = excluded.digest,
            method = excluded.method,
            status = excluded.status,
            dest_master = excluded.dest_master,
            dest_sidecar = excluded.dest_sidecar,
            dest_clip = excluded.dest_clip,
            error_text = excluded.error_text,
            run_id = excluded.run_id,
            updated_at = excluded.updated_at`,
		rec.SourcePath,
		rec.Size,
		rec.ModTime,
		rec.CaptureTime,
		nullableString(rec.Digest),
		nullableString(string(rec.Method)),
		string(rec.Status),
		nullableString(rec.DestMaster),
		nullableString(rec.DestSidecar),
		nullableString(rec.DestClip),
		nullableString(rec.ErrorText),
		nullableString(rec.RunID),
		rec.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert record: %w", err)
	}
	return nil
}

// Stats returns a count of ledger records grouped by status.
func (s *Store) Stats(ctx context.Context) (map[Status]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(1) FROM file_records GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("ledger stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[Status]int)
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		stats[Status(status)] = count
	}
	return stats, rows.Err()
}

// HashCount returns the number of registered fingerprints.
func (s *Store) HashCount(ctx context.Context) (int64, error) {
	row := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM content_hashes`)
	var count int64
	if err := row.Scan(&count); err != nil {
		return 0, fmt.Errorf("count hashes: %w", err)
	}
	return count, nil
}

const recordColumns = "source_path, size, mtime, capture_time, digest, method, status, dest_master, dest_sidecar, dest_clip, error_text, run_id, updated_at"

func scanRecord(scanner interface{ Scan(dest ...any) error }) (*FileRecord, error) {
	var (
		sourcePath  string
		size        sql.NullInt64
		mtime       sql.NullInt64
		captureTime sql.NullInt64
		digest      sql.NullString
		method      sql.NullString
		status      string
		destMaster  sql.NullString
		destSidecar sql.NullString
		destClip    sql.NullString
		errorText   sql.NullString
		runID       sql.NullString
		updatedAt   sql.NullInt64
	)

	if err := scanner.Scan(
		&sourcePath,
		&size,
		&mtime,
		&captureTime,
		&digest,
		&method,
		&status,
		&destMaster,
		&destSidecar,
		&destClip,
		&errorText,
		&runID,
		&updatedAt,
	); err != nil {
		return nil, err
	}

	return &FileRecord{
		SourcePath:  sourcePath,
		Size:        size.Int64,
		ModTime:     mtime.Int64,
		CaptureTime: captureTime.Int64,
		Digest:      digest.String,
		Method:      hashing.Method(method.String),
		Status:      Status(status),
		DestMaster:  destMaster.String,
		DestSidecar: destSidecar.String,
		DestClip:    destClip.String,
		ErrorText:   errorText.String,
		RunID:       runID.String,
		UpdatedAt:   updatedAt.Int64,
	}, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}
