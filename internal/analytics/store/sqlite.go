// Package store persists the per-owner dataset history in SQLite and the
// raw upload blobs on the local filesystem.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver.

	"github.com/Esha-Parvin/chemical-equipment-visualizer/internal/analytics/entity"
	"github.com/Esha-Parvin/chemical-equipment-visualizer/internal/pkg/pkgerror"
)

// SQLite is the Store implementation backed by a SQLite database plus a
// BlobStore for the raw files.
type SQLite struct {
	db    *sql.DB
	blobs *BlobStore
}

// Open opens or creates the database, applies migrations, and wires the
// blob store that owns the raw files.
func Open(path string, blobs *BlobStore) (*SQLite, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	// One connection: SQLite serializes writers anyway, and a single
	// connection avoids SQLITE_BUSY under concurrent owners.
	db.SetMaxOpenConns(1)

	s := &SQLite{db: db, blobs: blobs}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}

	return s, nil
}

// Close closes the underlying database.
func (s *SQLite) Close() error {
	return s.db.Close()
}

func (s *SQLite) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS datasets (
			id INTEGER PRIMARY KEY,
			owner TEXT NOT NULL,
			seq INTEGER NOT NULL,
			file_name TEXT NOT NULL,
			uploaded_at TEXT NOT NULL,
			blob_key TEXT NOT NULL,
			summary TEXT NOT NULL,
			UNIQUE(owner, seq)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_datasets_owner_seq ON datasets(owner, seq);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// Append stores the dataset with the owner's next sequence number and, in
// the same transaction, evicts whatever exceeds the history capacity. The
// blob is written first; if the transaction fails the blob is removed again,
// so a crash can only ever leave an orphaned blob, never a dataset row
// without its blob.
func (s *SQLite) Append(ctx context.Context, dataset entity.Dataset, blob []byte) ([]entity.Dataset, error) {
	if err := s.blobs.Save(dataset.BlobKey, blob); err != nil {
		return nil, pkgerror.NewStorage("append", err)
	}

	evicted, err := s.appendRow(ctx, dataset)
	if err != nil {
		if rmErr := s.blobs.Remove(dataset.BlobKey); rmErr != nil {
			slog.WarnContext(ctx, "failed to remove blob after aborted append",
				"blob_key", dataset.BlobKey, "error", rmErr)
		}
		return nil, pkgerror.NewStorage("append", err)
	}

	return evicted, nil
}

func (s *SQLite) appendRow(ctx context.Context, dataset entity.Dataset) (evicted []entity.Dataset, err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var maxSeq int64
	if err = tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(seq), 0) FROM datasets WHERE owner = ?`,
		dataset.Owner,
	).Scan(&maxSeq); err != nil {
		return nil, err
	}
	dataset.Seq = maxSeq + 1

	summaryJSON, err := json.Marshal(dataset.Summary)
	if err != nil {
		return nil, err
	}

	if _, err = tx.ExecContext(ctx,
		`INSERT INTO datasets (id, owner, seq, file_name, uploaded_at, blob_key, summary)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		dataset.ID,
		dataset.Owner,
		dataset.Seq,
		dataset.FileName,
		dataset.UploadedAt.UTC().Format(time.RFC3339Nano),
		dataset.BlobKey,
		string(summaryJSON),
	); err != nil {
		return nil, err
	}

	var count int
	if err = tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM datasets WHERE owner = ?`,
		dataset.Owner,
	).Scan(&count); err != nil {
		return nil, err
	}

	if over := count - entity.HistoryCapacity; over > 0 {
		evicted, err = s.collectOldest(ctx, tx, dataset.Owner, over)
		if err != nil {
			return nil, err
		}

		ids := make([]string, 0, len(evicted))
		args := make([]any, 0, len(evicted))
		for _, old := range evicted {
			ids = append(ids, "?")
			args = append(args, old.ID)
		}
		if _, err = tx.ExecContext(ctx,
			`DELETE FROM datasets WHERE id IN (`+strings.Join(ids, ",")+`)`,
			args...,
		); err != nil {
			return nil, err
		}
	}

	if err = tx.Commit(); err != nil {
		return nil, err
	}

	return evicted, nil
}

func (s *SQLite) collectOldest(ctx context.Context, tx *sql.Tx, owner string, n int) ([]entity.Dataset, error) {
	rows, err := tx.QueryContext(ctx,
		`SELECT id, owner, seq, file_name, uploaded_at, blob_key, summary
		 FROM datasets WHERE owner = ? ORDER BY seq ASC LIMIT ?`,
		owner, n,
	)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = rows.Close()
	}()

	return scanDatasets(rows)
}

// List returns the owner's datasets in descending sequence order. The sort
// key is the insertion counter, never the upload timestamp.
func (s *SQLite) List(ctx context.Context, owner string) ([]entity.Dataset, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, owner, seq, file_name, uploaded_at, blob_key, summary
		 FROM datasets WHERE owner = ? ORDER BY seq DESC`,
		owner,
	)
	if err != nil {
		return nil, pkgerror.NewStorage("list", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	datasets, err := scanDatasets(rows)
	if err != nil {
		return nil, pkgerror.NewStorage("list", err)
	}

	return datasets, nil
}

// Current returns the most recent dataset, or pkgerror.ErrNotFound when the
// owner has none.
func (s *SQLite) Current(ctx context.Context, owner string) (entity.Dataset, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, owner, seq, file_name, uploaded_at, blob_key, summary
		 FROM datasets WHERE owner = ? ORDER BY seq DESC LIMIT 1`,
		owner,
	)

	dataset, err := scanDataset(row)
	if errors.Is(err, sql.ErrNoRows) {
		return entity.Dataset{}, pkgerror.ErrNotFound
	}
	if err != nil {
		return entity.Dataset{}, pkgerror.NewStorage("current", err)
	}

	return dataset, nil
}

// Clear removes all of the owner's datasets. Blobs go first: if the process
// dies mid-clear, what remains are orphaned blob files, which are harmless,
// rather than dataset rows pointing at missing blobs.
func (s *SQLite) Clear(ctx context.Context, owner string) error {
	rows, err := s.db.QueryContext(ctx,
		`SELECT blob_key FROM datasets WHERE owner = ?`, owner)
	if err != nil {
		return pkgerror.NewStorage("clear", err)
	}

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			_ = rows.Close()
			return pkgerror.NewStorage("clear", err)
		}
		keys = append(keys, key)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return pkgerror.NewStorage("clear", err)
	}
	_ = rows.Close()

	for _, key := range keys {
		if err := s.blobs.Remove(key); err != nil {
			slog.WarnContext(ctx, "failed to remove blob during clear",
				"owner", owner, "blob_key", key, "error", err)
		}
	}

	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM datasets WHERE owner = ?`, owner); err != nil {
		return pkgerror.NewStorage("clear", err)
	}

	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDataset(row rowScanner) (entity.Dataset, error) {
	var (
		dataset     entity.Dataset
		uploadedAt  string
		summaryJSON string
	)
	if err := row.Scan(
		&dataset.ID,
		&dataset.Owner,
		&dataset.Seq,
		&dataset.FileName,
		&uploadedAt,
		&dataset.BlobKey,
		&summaryJSON,
	); err != nil {
		return entity.Dataset{}, err
	}

	ts, err := time.Parse(time.RFC3339Nano, uploadedAt)
	if err != nil {
		return entity.Dataset{}, fmt.Errorf("parse uploaded_at: %w", err)
	}
	dataset.UploadedAt = ts

	if err := json.Unmarshal([]byte(summaryJSON), &dataset.Summary); err != nil {
		return entity.Dataset{}, fmt.Errorf("decode summary: %w", err)
	}

	return dataset, nil
}

func scanDatasets(rows *sql.Rows) ([]entity.Dataset, error) {
	var datasets []entity.Dataset
	for rows.Next() {
		dataset, err := scanDataset(rows)
		if err != nil {
			return nil, err
		}
		datasets = append(datasets, dataset)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return datasets, nil
}
