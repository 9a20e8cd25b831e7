package catalog

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// FileName is the catalog database inside a batch directory.
const FileName = "catalog.db"

//go:embed schema.sql
var schemaSQL string

const schemaVersion = 1

// ErrSchemaMismatch indicates the catalog was written by an incompatible version.
var ErrSchemaMismatch = errors.New("catalog schema version mismatch")

// Status values for a job run.
const (
	StatusSucceeded = "succeeded"
	StatusSkipped   = "skipped"
	StatusFailed    = "failed"
)

// Operation values for a job run.
const (
	OperationEncode = "encode"
	OperationDecode = "decode"
)

// Entry is one recorded job run.
type Entry struct {
	ID               int64
	RunID            string
	BatchID          string
	Array            string
	Operation        string
	Status           string
	Container        string
	Manifest         string
	OriginalBytes    int64
	CompressedBytes  int64
	CompressionRatio float64
	BitsPerSample    float64
	Duration         time.Duration
	ErrorLabel       string
	Message          string
	RecordedAt       time.Time
}

// Store is an open catalog database.
type Store struct {
	db   *sql.DB
	path string
}

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

// Open creates or opens the catalog in batchDir.
func Open(batchDir string) (*Store, error) {
	if strings.TrimSpace(batchDir) == "" {
		return nil, errors.New("catalog: batch dir is empty")
	}
	if err := os.MkdirAll(batchDir, 0o755); err != nil {
		return nil, fmt.Errorf("catalog: ensure batch dir: %w", err)
	}
	dbPath := filepath.Join(batchDir, FileName)
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Path returns the database file location.
func (s *Store) Path() string { return s.path }

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) initSchema(ctx context.Context) error {
	var tableExists int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	).Scan(&tableExists)
	if err != nil {
		return fmt.Errorf("check schema_version table: %w", err)
	}
	if tableExists == 0 {
		return s.createSchema(ctx)
	}

	var version int
	if err := s.db.QueryRowContext(ctx, "SELECT version FROM schema_version LIMIT 1").Scan(&version); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if version != schemaVersion {
		return fmt.Errorf("%w: catalog has version %d, expected %d (delete %s)",
			ErrSchemaMismatch, version, schemaVersion, s.path)
	}
	return nil
}

func (s *Store) createSchema(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "INSERT INTO schema_version (version) VALUES (?)", schemaVersion); err != nil {
		return fmt.Errorf("record schema version: %w", err)
	}
	return tx.Commit()
}

// Record inserts e and returns it with ID and RecordedAt populated.
func (s *Store) Record(ctx context.Context, e Entry) (Entry, error) {
	if strings.TrimSpace(e.BatchID) == "" || strings.TrimSpace(e.Array) == "" {
		return Entry{}, errors.New("catalog: entry needs batch id and array")
	}
	if e.RecordedAt.IsZero() {
		e.RecordedAt = time.Now().UTC()
	}
	var res sql.Result
	err := retryOnBusy(ctx, func() error {
		var execErr error
		res, execErr = s.db.ExecContext(ctx,
			`INSERT INTO job_runs (
                run_id, batch_id, array_name, operation, status, container, manifest,
                original_bytes, compressed_bytes, compression_ratio, bits_per_sample,
                duration_ms, error_label, message, recorded_at
            ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			e.RunID, e.BatchID, e.Array, e.Operation, e.Status,
			nullableString(e.Container), nullableString(e.Manifest),
			e.OriginalBytes, e.CompressedBytes, e.CompressionRatio, e.BitsPerSample,
			e.Duration.Milliseconds(), nullableString(e.ErrorLabel), nullableString(e.Message),
			e.RecordedAt.Format(time.RFC3339Nano),
		)
		return execErr
	})
	if err != nil {
		return Entry{}, fmt.Errorf("insert job run: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return Entry{}, fmt.Errorf("last insert id: %w", err)
	}
	e.ID = id
	return e, nil
}

// List returns the runs of a batch in insertion order. An empty batchID lists
// every run in the catalog.
func (s *Store) List(ctx context.Context, batchID string) ([]Entry, error) {
	query := `SELECT id, run_id, batch_id, array_name, operation, status, container, manifest,
        original_bytes, compressed_bytes, compression_ratio, bits_per_sample,
        duration_ms, error_label, message, recorded_at
        FROM job_runs`
	var args []any
	if batchID = strings.TrimSpace(batchID); batchID != "" {
		query += " WHERE batch_id = ?"
		args = append(args, batchID)
	}
	query += " ORDER BY id"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list job runs: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e                                   Entry
			container, manifest, label, message sql.NullString
			durationMS                          int64
			recordedAt                          string
		)
		if err := rows.Scan(&e.ID, &e.RunID, &e.BatchID, &e.Array, &e.Operation, &e.Status,
			&container, &manifest, &e.OriginalBytes, &e.CompressedBytes, &e.CompressionRatio,
			&e.BitsPerSample, &durationMS, &label, &message, &recordedAt); err != nil {
			return nil, fmt.Errorf("scan job run: %w", err)
		}
		e.Container = container.String
		e.Manifest = manifest.String
		e.ErrorLabel = label.String
		e.Message = message.String
		e.Duration = time.Duration(durationMS) * time.Millisecond
		if ts, err := time.Parse(time.RFC3339Nano, recordedAt); err == nil {
			e.RecordedAt = ts
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Latest returns the most recent run per array, in first-seen array order.
func Latest(entries []Entry) []Entry {
	index := make(map[string]int)
	var out []Entry
	for _, e := range entries {
		key := e.Operation + "\x00" + e.Array
		if i, ok := index[key]; ok {
			out[i] = e
			continue
		}
		index[key] = len(out)
		out = append(out, e)
	}
	return out
}

func retryOnBusy(ctx context.Context, op func() error) error {
	if ctx == nil {
		ctx = context.Background()
	}
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func nullableString(value string) any {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return value
}
