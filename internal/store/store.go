// Package store provides SQLite-backed persistence for batch history and
// the audit trail.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/fentz26/archivist/internal/models"
)

// Store provides access to the archivist SQLite database.
type Store struct {
	db *sql.DB
}

// New creates a new Store and runs migrations.
func New(dbPath string) (*Store, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	// SQLite only supports one writer at a time
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the database connection is alive.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// migrate runs idempotent schema migrations.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS batches (
		id TEXT PRIMARY KEY,
		source TEXT NOT NULL,
		backend TEXT,
		started_at DATETIME NOT NULL,
		finished_at DATETIME NOT NULL,
		total INTEGER NOT NULL,
		succeeded INTEGER NOT NULL,
		failed INTEGER NOT NULL,
		duration_ns INTEGER NOT NULL,
		failure_kind TEXT,
		failure_detail TEXT
	);

	CREATE TABLE IF NOT EXISTS entries (
		batch_id TEXT NOT NULL,
		seq INTEGER NOT NULL,
		name TEXT NOT NULL,
		source_path TEXT NOT NULL,
		kind TEXT NOT NULL,
		state TEXT NOT NULL,
		tier TEXT,
		department TEXT,
		raw TEXT,
		target_path TEXT,
		failure_kind TEXT,
		failure_detail TEXT,
		elapsed_ns INTEGER NOT NULL,
		PRIMARY KEY (batch_id, seq),
		FOREIGN KEY (batch_id) REFERENCES batches(id)
	);

	CREATE TABLE IF NOT EXISTS pdr (
		id TEXT PRIMARY KEY,
		action TEXT NOT NULL,
		inputs_hash TEXT NOT NULL,
		outcome TEXT NOT NULL,
		batch_id TEXT,
		details TEXT,
		timestamp DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_batches_finished_at ON batches(finished_at);
	CREATE INDEX IF NOT EXISTS idx_pdr_batch_id ON pdr(batch_id);
	`

	_, err := s.db.Exec(schema)
	return err
}

// --- Batch Operations ---

// SaveBatch stores r and its entries, replacing any earlier copy of the same batch.
func (s *Store) SaveBatch(ctx context.Context, r *models.BatchResult, backend string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	failKind, failDetail := failureColumns(r.Failure)
	_, err = tx.ExecContext(ctx,
		`INSERT OR REPLACE INTO batches (id, source, backend, started_at, finished_at, total, succeeded, failed, duration_ns, failure_kind, failure_detail)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.Source, backend, r.StartedAt.UTC(), r.FinishedAt.UTC(),
		r.Total, r.Succeeded, r.Failed, int64(r.Duration), failKind, failDetail,
	)
	if err != nil {
		return fmt.Errorf("insert batch: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM entries WHERE batch_id = ?`, r.ID); err != nil {
		return fmt.Errorf("clear entries: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO entries (batch_id, seq, name, source_path, kind, state, tier, department, raw, target_path, failure_kind, failure_detail, elapsed_ns)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare entry insert: %w", err)
	}
	defer stmt.Close()

	for i, e := range r.Entries {
		var tier, dept, raw string
		if e.Decision != nil {
			tier, dept, raw = string(e.Decision.Tier), e.Decision.Department, e.Decision.Raw
		}
		fk, fd := failureColumns(e.Failure)
		if _, err := stmt.ExecContext(ctx,
			r.ID, i, e.Name, e.SourcePath, e.Kind, e.State,
			tier, dept, raw, e.TargetPath, fk, fd, int64(e.Elapsed),
		); err != nil {
			return fmt.Errorf("insert entry %q: %w", e.Name, err)
		}
	}

	return tx.Commit()
}

const batchColumns = `id, source, backend, started_at, finished_at, total, succeeded, failed, duration_ns, failure_kind, failure_detail`

// GetBatch retrieves a batch and its entries by ID. It returns nil when no
// such batch exists.
func (s *Store) GetBatch(ctx context.Context, id string) (*models.BatchResult, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+batchColumns+` FROM batches WHERE id = ?`, id)
	r, _, err := scanBatch(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query batch: %w", err)
	}

	entries, err := s.entries(ctx, id)
	if err != nil {
		return nil, err
	}
	r.Entries = entries
	return r, nil
}

// BatchRecord is a stored batch without its entries.
type BatchRecord struct {
	*models.BatchResult
	Backend string
}

// ListBatches returns the most recent batches first. limit <= 0 means no limit.
func (s *Store) ListBatches(ctx context.Context, limit int) ([]BatchRecord, error) {
	query := `SELECT ` + batchColumns + ` FROM batches ORDER BY finished_at DESC`
	var args []interface{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query batches: %w", err)
	}
	defer rows.Close()

	var out []BatchRecord
	for rows.Next() {
		r, backend, err := scanBatch(rows)
		if err != nil {
			return nil, fmt.Errorf("scan batch: %w", err)
		}
		out = append(out, BatchRecord{BatchResult: r, Backend: backend})
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanBatch(row scanner) (*models.BatchResult, string, error) {
	r := &models.BatchResult{}
	var backend, failKind, failDetail sql.NullString
	var duration int64
	err := row.Scan(&r.ID, &r.Source, &backend, &r.StartedAt, &r.FinishedAt,
		&r.Total, &r.Succeeded, &r.Failed, &duration, &failKind, &failDetail)
	if err != nil {
		return nil, "", err
	}
	r.Duration = time.Duration(duration)
	r.Failure = failureFrom(failKind, failDetail)
	return r, backend.String, nil
}

func (s *Store) entries(ctx context.Context, batchID string) ([]*models.Entry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT name, source_path, kind, state, tier, department, raw, target_path, failure_kind, failure_detail, elapsed_ns
		 FROM entries WHERE batch_id = ? ORDER BY seq`,
		batchID,
	)
	if err != nil {
		return nil, fmt.Errorf("query entries: %w", err)
	}
	defer rows.Close()

	entries := []*models.Entry{}
	for rows.Next() {
		e := &models.Entry{}
		var tier, dept, raw, target, failKind, failDetail sql.NullString
		var elapsed int64
		if err := rows.Scan(&e.Name, &e.SourcePath, &e.Kind, &e.State,
			&tier, &dept, &raw, &target, &failKind, &failDetail, &elapsed); err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		if tier.String != "" {
			e.Decision = &models.Decision{
				Tier:       models.Tier(tier.String),
				Department: dept.String,
				Raw:        raw.String,
			}
		}
		e.TargetPath = target.String
		e.Failure = failureFrom(failKind, failDetail)
		e.Elapsed = time.Duration(elapsed)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func failureColumns(f *models.Failure) (kind, detail interface{}) {
	if f == nil {
		return nil, nil
	}
	return string(f.Kind), f.Detail
}

func failureFrom(kind, detail sql.NullString) *models.Failure {
	if !kind.Valid || kind.String == "" {
		return nil
	}
	return &models.Failure{Kind: models.FailureKind(kind.String), Detail: detail.String}
}

// --- PDR Operations ---

// WritePDR writes a Process Decision Record.
func (s *Store) WritePDR(ctx context.Context, action, inputsHash, outcome, batchID, details string) (*models.PDREntry, error) {
	now := time.Now().UTC()
	pdr := &models.PDREntry{
		ID:         uuid.New().String(),
		Action:     action,
		InputsHash: inputsHash,
		Outcome:    outcome,
		BatchID:    batchID,
		Details:    details,
		Timestamp:  now,
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO pdr (id, action, inputs_hash, outcome, batch_id, details, timestamp) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		pdr.ID, pdr.Action, pdr.InputsHash, pdr.Outcome, pdr.BatchID, pdr.Details, pdr.Timestamp,
	)
	if err != nil {
		return nil, fmt.Errorf("insert pdr: %w", err)
	}
	return pdr, nil
}

// ListPDR returns audit records oldest first, optionally filtered by batch.
// limit <= 0 means no limit.
func (s *Store) ListPDR(ctx context.Context, batchID string, limit int) ([]models.PDREntry, error) {
	query := `SELECT id, action, inputs_hash, outcome, batch_id, details, timestamp FROM pdr`
	var args []interface{}
	if batchID != "" {
		query += ` WHERE batch_id = ?`
		args = append(args, batchID)
	}
	query += ` ORDER BY timestamp, rowid`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query pdr: %w", err)
	}
	defer rows.Close()

	var out []models.PDREntry
	for rows.Next() {
		var p models.PDREntry
		var batch, details sql.NullString
		if err := rows.Scan(&p.ID, &p.Action, &p.InputsHash, &p.Outcome, &batch, &details, &p.Timestamp); err != nil {
			return nil, fmt.Errorf("scan pdr: %w", err)
		}
		p.BatchID = batch.String
		p.Details = details.String
		out = append(out, p)
	}
	return out, rows.Err()
}
