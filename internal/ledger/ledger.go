// Package ledger records completed manifest conversions in SQLite so batch
// runs can skip inputs that were already converted with the same options.
package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/FocuswithJustin/iiif-downgrade/core/errors"
	"github.com/FocuswithJustin/iiif-downgrade/core/sqlite"
)

// DefaultLimit is the number of records List returns when limit <= 0.
const DefaultLimit = 50

// timeLayout is fixed width so created_at sorts lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

const schema = `
CREATE TABLE IF NOT EXISTS conversions (
	id            TEXT PRIMARY KEY,
	run_id        TEXT NOT NULL DEFAULT '',
	source        TEXT NOT NULL,
	source_digest TEXT NOT NULL,
	options_key   TEXT NOT NULL,
	output        TEXT NOT NULL,
	output_digest TEXT NOT NULL,
	manifest_id   TEXT NOT NULL DEFAULT '',
	label         TEXT NOT NULL DEFAULT '',
	canvases      INTEGER NOT NULL DEFAULT 0,
	images        INTEGER NOT NULL DEFAULT 0,
	created_at    TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_conversions_lookup
	ON conversions (source_digest, options_key, output, created_at);
`

// Record is one completed conversion.
type Record struct {
	ID           string    `json:"id"`
	RunID        string    `json:"run_id,omitempty"`
	Source       string    `json:"source"`
	SourceDigest string    `json:"source_digest"`
	OptionsKey   string    `json:"options_key"`
	Output       string    `json:"output"`
	OutputDigest string    `json:"output_digest"`
	ManifestID   string    `json:"manifest_id,omitempty"`
	Label        string    `json:"label,omitempty"`
	Canvases     int       `json:"canvases"`
	Images       int       `json:"images"`
	CreatedAt    time.Time `json:"created_at"`
}

// Ledger is a SQLite-backed conversion history. It is safe for concurrent
// use; writes go through a single connection.
type Ledger struct {
	db   *sql.DB
	path string
}

// Open opens or creates the ledger database at path.
func Open(path string) (*Ledger, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, errors.NewIO("create", dir, err)
		}
	}

	db, err := sqlite.OpenWriter(path)
	if err != nil {
		return nil, errors.NewIO("open", path, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, errors.Wrapf(err, "failed to initialize ledger %s", path)
	}

	return &Ledger{db: db, path: path}, nil
}

// OpenReadOnly opens an existing ledger for queries only.
func OpenReadOnly(path string) (*Ledger, error) {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewNotFound("ledger", path)
		}
		return nil, errors.NewIO("stat", path, err)
	}
	db, err := sqlite.OpenReadOnly(path)
	if err != nil {
		return nil, errors.NewIO("open", path, err)
	}
	return &Ledger{db: db, path: path}, nil
}

// Path returns the database file path.
func (l *Ledger) Path() string {
	return l.path
}

// Close closes the database.
func (l *Ledger) Close() error {
	return l.db.Close()
}

// Record stores rec, assigning an ID and timestamp when they are unset.
func (l *Ledger) Record(ctx context.Context, rec *Record) error {
	if rec.SourceDigest == "" || rec.OutputDigest == "" {
		return errors.NewValidation("record", "source and output digests are required")
	}
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	_, err := l.db.ExecContext(ctx, `
		INSERT INTO conversions (
			id, run_id, source, source_digest, options_key, output, output_digest,
			manifest_id, label, canvases, images, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.RunID, rec.Source, rec.SourceDigest, rec.OptionsKey, rec.Output, rec.OutputDigest,
		rec.ManifestID, rec.Label, rec.Canvases, rec.Images, rec.CreatedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return errors.Wrapf(err, "failed to record conversion of %s", rec.Source)
	}
	return nil
}

const selectColumns = `
	SELECT id, run_id, source, source_digest, options_key, output, output_digest,
	       manifest_id, label, canvases, images, created_at
	FROM conversions`

// Lookup returns the most recent conversion of the given source digest
// with the given options to output. Identical inputs written to different
// outputs have separate records. A miss yields a *errors.NotFoundError.
func (l *Ledger) Lookup(ctx context.Context, sourceDigest, optionsKey, output string) (*Record, error) {
	row := l.db.QueryRowContext(ctx, selectColumns+`
		WHERE source_digest = ? AND options_key = ? AND output = ?
		ORDER BY created_at DESC LIMIT 1`,
		sourceDigest, optionsKey, output,
	)

	rec, err := scanRecord(row)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFound("conversion", sourceDigest)
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to look up conversion")
	}
	return rec, nil
}

// List returns up to limit records, newest first.
func (l *Ledger) List(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}

	rows, err := l.db.QueryContext(ctx, selectColumns+`
		ORDER BY created_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list conversions")
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, errors.Wrap(err, "failed to read conversion")
		}
		records = append(records, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to list conversions")
	}
	return records, nil
}

// Count returns the number of recorded conversions.
func (l *Ledger) Count(ctx context.Context) (int, error) {
	var n int
	if err := l.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM conversions`).Scan(&n); err != nil {
		return 0, errors.Wrap(err, "failed to count conversions")
	}
	return n, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(s scanner) (*Record, error) {
	var rec Record
	var created string
	err := s.Scan(
		&rec.ID, &rec.RunID, &rec.Source, &rec.SourceDigest, &rec.OptionsKey, &rec.Output, &rec.OutputDigest,
		&rec.ManifestID, &rec.Label, &rec.Canvases, &rec.Images, &created,
	)
	if err != nil {
		return nil, err
	}
	rec.CreatedAt, err = time.Parse(timeLayout, created)
	if err != nil {
		return nil, fmt.Errorf("invalid created_at %q: %w", created, err)
	}
	return &rec, nil
}
