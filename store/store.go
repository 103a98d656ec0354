// Package store is the local annotation cache: a SQLite database holding the
// most recently downloaded annotations per backend, project, dataset and
// image. It caches backend-owned data; deleting it loses nothing
// authoritative.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/openlabel/openlabel/annotation"
)

// ErrNotCached is returned when no cached entry matches the lookup.
var ErrNotCached = errors.New("annotation not cached")

const schema = `
CREATE TABLE IF NOT EXISTS annotations (
	backend     TEXT NOT NULL,
	project_id  INTEGER NOT NULL,
	dataset_id  INTEGER NOT NULL,
	image_id    INTEGER NOT NULL,
	payload     TEXT NOT NULL,
	fetched_at  TEXT NOT NULL,
	PRIMARY KEY (backend, project_id, dataset_id, image_id)
);
CREATE INDEX IF NOT EXISTS idx_annotations_dataset
	ON annotations (backend, project_id, dataset_id);
`

// Entry is one cached annotation with its provenance.
type Entry struct {
	Backend    string                    `json:"backend"`
	ProjectID  int64                     `json:"project_id"`
	DatasetID  int64                     `json:"dataset_id"`
	ImageID    int64                     `json:"image_id"`
	Annotation annotation.AnnotationInfo `json:"annotation"`
	FetchedAt  time.Time                 `json:"fetched_at"`
}

// Store provides persistence for downloaded annotations.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the cache database at path and applies the
// schema.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("ensure cache dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}
	if _, err := db.Exec(`PRAGMA journal_mode=WAL;`); err != nil {
		_ = db.Close()
		return nil, err
	}
	if _, err := db.Exec(`PRAGMA busy_timeout=5000;`); err != nil {
		_ = db.Close()
		return nil, err
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply cache schema: %w", err)
	}

	return &Store{db: db}, nil
}

// NewWithDB constructs a Store over an existing database handle. The schema
// must already be applied.
func NewWithDB(db *sql.DB) *Store {
	return &Store{db: db}
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Put upserts one downloaded annotation.
func (s *Store) Put(ctx context.Context, backend string, projectID, datasetID int64, info annotation.AnnotationInfo) error {
	if s == nil || s.db == nil {
		return errors.New("annotation store is not initialized")
	}

	payload, err := json.Marshal(info)
	if err != nil {
		return fmt.Errorf("encode annotation: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO annotations (backend, project_id, dataset_id, image_id, payload, fetched_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (backend, project_id, dataset_id, image_id)
		DO UPDATE SET payload = excluded.payload, fetched_at = excluded.fetched_at`,
		backend, projectID, datasetID, info.ImageID, string(payload),
		time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("cache annotation: %w", err)
	}
	return nil
}

// PutAll upserts a batch of downloaded annotations in one transaction.
func (s *Store) PutAll(ctx context.Context, backend string, projectID, datasetID int64, infos []annotation.AnnotationInfo) error {
	if s == nil || s.db == nil {
		return errors.New("annotation store is not initialized")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().UTC().Format(time.RFC3339Nano)
	for _, info := range infos {
		payload, err := json.Marshal(info)
		if err != nil {
			return fmt.Errorf("encode annotation for image %d: %w", info.ImageID, err)
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO annotations (backend, project_id, dataset_id, image_id, payload, fetched_at)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT (backend, project_id, dataset_id, image_id)
			DO UPDATE SET payload = excluded.payload, fetched_at = excluded.fetched_at`,
			backend, projectID, datasetID, info.ImageID, string(payload), now)
		if err != nil {
			return fmt.Errorf("cache annotation for image %d: %w", info.ImageID, err)
		}
	}
	return tx.Commit()
}

// Get returns the cached annotation for one image.
func (s *Store) Get(ctx context.Context, backend string, projectID, datasetID, imageID int64) (*Entry, error) {
	if s == nil || s.db == nil {
		return nil, errors.New("annotation store is not initialized")
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT payload, fetched_at FROM annotations
		WHERE backend = ? AND project_id = ? AND dataset_id = ? AND image_id = ?`,
		backend, projectID, datasetID, imageID)

	var payload, fetchedAt string
	if err := row.Scan(&payload, &fetchedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotCached
		}
		return nil, err
	}
	return decodeEntry(backend, projectID, datasetID, imageID, payload, fetchedAt)
}

// List returns all cached annotations for a dataset, newest first.
func (s *Store) List(ctx context.Context, backend string, projectID, datasetID int64) ([]Entry, error) {
	if s == nil || s.db == nil {
		return nil, errors.New("annotation store is not initialized")
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT image_id, payload, fetched_at FROM annotations
		WHERE backend = ? AND project_id = ? AND dataset_id = ?
		ORDER BY fetched_at DESC, image_id`,
		backend, projectID, datasetID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			imageID            int64
			payload, fetchedAt string
		)
		if err := rows.Scan(&imageID, &payload, &fetchedAt); err != nil {
			return nil, err
		}
		entry, err := decodeEntry(backend, projectID, datasetID, imageID, payload, fetchedAt)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *entry)
	}
	return entries, rows.Err()
}

// Purge drops all cached annotations for a dataset and returns the number
// removed.
func (s *Store) Purge(ctx context.Context, backend string, projectID, datasetID int64) (int64, error) {
	if s == nil || s.db == nil {
		return 0, errors.New("annotation store is not initialized")
	}

	res, err := s.db.ExecContext(ctx, `
		DELETE FROM annotations
		WHERE backend = ? AND project_id = ? AND dataset_id = ?`,
		backend, projectID, datasetID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func decodeEntry(backend string, projectID, datasetID, imageID int64, payload, fetchedAt string) (*Entry, error) {
	var info annotation.AnnotationInfo
	if err := json.Unmarshal([]byte(payload), &info); err != nil {
		return nil, fmt.Errorf("decode cached annotation: %w", err)
	}

	ts, err := time.Parse(time.RFC3339Nano, fetchedAt)
	if err != nil {
		ts = time.Time{}
	}
	return &Entry{
		Backend:    backend,
		ProjectID:  projectID,
		DatasetID:  datasetID,
		ImageID:    imageID,
		Annotation: info,
		FetchedAt:  ts,
	}, nil
}
