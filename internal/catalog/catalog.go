// Package catalog maintains a SQLite index of completed recordings, the
// queryable counterpart of the offline inspection tooling: one row per
// session with its paths, timing, totals, and content digest.
package catalog

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

const schema = `
CREATE TABLE IF NOT EXISTS recordings (
	id              TEXT PRIMARY KEY,
	path            TEXT NOT NULL,
	gains_path      TEXT,
	started_at      TIMESTAMP,
	stopped_at      TIMESTAMP,
	channels        INTEGER NOT NULL,
	total_samples   INTEGER NOT NULL,
	dropped_samples INTEGER NOT NULL,
	output_samples  INTEGER NOT NULL,
	data_size       INTEGER NOT NULL,
	digest          TEXT,
	status          TEXT NOT NULL
);`

// Recording is one catalog row.
type Recording struct {
	ID             string
	Path           string
	GainsPath      string
	StartedAt      time.Time
	StoppedAt      time.Time
	Channels       int
	TotalSamples   uint64
	DroppedSamples uint64
	OutputSamples  uint64
	DataSize       uint64
	Digest         string
	Status         string
}

// Catalog wraps the recordings database.
type Catalog struct {
	db *sql.DB
}

// Open opens (creating if needed) the catalog database at path.
// ":memory:" is accepted for tests.
func Open(path string) (*Catalog, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init catalog schema: %w", err)
	}
	return &Catalog{db: db}, nil
}

// Close releases the database handle.
func (c *Catalog) Close() error {
	return c.db.Close()
}

// Add inserts one completed recording.
func (c *Catalog) Add(r Recording) error {
	_, err := c.db.Exec(
		`INSERT INTO recordings
		 (id, path, gains_path, started_at, stopped_at, channels,
		  total_samples, dropped_samples, output_samples, data_size, digest, status)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.Path, r.GainsPath, r.StartedAt, r.StoppedAt, r.Channels,
		int64(r.TotalSamples), int64(r.DroppedSamples), int64(r.OutputSamples),
		int64(r.DataSize), r.Digest, r.Status,
	)
	if err != nil {
		return fmt.Errorf("add recording %s: %w", r.ID, err)
	}
	return nil
}

// List returns all recordings, most recent first.
func (c *Catalog) List() ([]Recording, error) {
	rows, err := c.db.Query(
		`SELECT id, path, gains_path, started_at, stopped_at, channels,
		        total_samples, dropped_samples, output_samples, data_size, digest, status
		 FROM recordings ORDER BY started_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list recordings: %w", err)
	}
	defer rows.Close()

	var out []Recording
	for rows.Next() {
		var r Recording
		var totals, dropped, output, size int64
		if err := rows.Scan(&r.ID, &r.Path, &r.GainsPath, &r.StartedAt, &r.StoppedAt,
			&r.Channels, &totals, &dropped, &output, &size, &r.Digest, &r.Status); err != nil {
			return nil, fmt.Errorf("scan recording: %w", err)
		}
		r.TotalSamples = uint64(totals)
		r.DroppedSamples = uint64(dropped)
		r.OutputSamples = uint64(output)
		r.DataSize = uint64(size)
		out = append(out, r)
	}
	return out, rows.Err()
}
