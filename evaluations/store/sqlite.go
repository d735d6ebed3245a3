/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"chainguard.dev/docscore/evaluations"
	_ "github.com/mattn/go-sqlite3"
)

const schema = `
CREATE TABLE IF NOT EXISTS evaluations (
	id              TEXT PRIMARY KEY,
	status          TEXT NOT NULL,
	assessment_type TEXT NOT NULL,
	assessment_mode TEXT NOT NULL,
	provider_id     TEXT NOT NULL,
	overall_score   INTEGER,
	record          TEXT NOT NULL,
	created_at      DATETIME NOT NULL,
	updated_at      DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_evaluations_status ON evaluations(status);
CREATE INDEX IF NOT EXISTS idx_evaluations_created_at ON evaluations(created_at);
`

// SQLite stores records in a SQLite database. The full record is kept as
// JSON; the summary columns exist for ad-hoc queries.
type SQLite struct {
	db *sql.DB
}

var _ evaluations.Store = (*SQLite)(nil)

// Open opens or creates the database at path. ":memory:" gives a private
// in-memory database.
func Open(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// A single connection serializes writes and keeps ":memory:" databases
	// alive for the lifetime of the store.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return &SQLite{db: db}, nil
}

// Close closes the database.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// Save inserts or replaces rec.
func (s *SQLite) Save(ctx context.Context, rec *evaluations.Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encoding record %s: %w", rec.ID, err)
	}
	var score sql.NullInt64
	if rec.OverallScore != nil {
		score = sql.NullInt64{Int64: int64(*rec.OverallScore), Valid: true}
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO evaluations (id, status, assessment_type, assessment_mode, provider_id, overall_score, record, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			overall_score = excluded.overall_score,
			record = excluded.record,
			updated_at = excluded.updated_at`,
		rec.ID, string(rec.Status), rec.AssessmentType, string(rec.AssessmentMode), string(rec.ProviderID),
		score, string(data), rec.CreatedAt.UTC().Format(time.RFC3339Nano), rec.UpdatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("saving record %s: %w", rec.ID, err)
	}
	return nil
}

// Get loads the record for id.
func (s *SQLite) Get(ctx context.Context, id string) (*evaluations.Record, error) {
	var data string
	err := s.db.QueryRowContext(ctx, `SELECT record FROM evaluations WHERE id = ?`, id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, evaluations.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("loading record %s: %w", id, err)
	}

	var rec evaluations.Record
	if err := json.Unmarshal([]byte(data), &rec); err != nil {
		return nil, fmt.Errorf("decoding record %s: %w", id, err)
	}
	return &rec, nil
}

// Count returns the number of stored records with status.
func (s *SQLite) Count(ctx context.Context, status evaluations.Status) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM evaluations WHERE status = ?`, string(status)).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting records: %w", err)
	}
	return n, nil
}

// FailInterrupted marks every pending or running record as interrupted and
// returns how many were changed. It must run before this process accepts
// submissions: any unfinished record found then belongs to a dead process.
func (s *SQLite) FailInterrupted(ctx context.Context, now time.Time) (int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT record FROM evaluations WHERE status IN (?, ?)`,
		string(evaluations.StatusPending), string(evaluations.StatusRunning))
	if err != nil {
		return 0, fmt.Errorf("listing unfinished records: %w", err)
	}
	var stale []*evaluations.Record
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			rows.Close()
			return 0, fmt.Errorf("reading unfinished record: %w", err)
		}
		var rec evaluations.Record
		if err := json.Unmarshal([]byte(data), &rec); err != nil {
			rows.Close()
			return 0, fmt.Errorf("decoding unfinished record: %w", err)
		}
		stale = append(stale, &rec)
	}
	err = rows.Err()
	// The single connection must be released before saving.
	rows.Close()
	if err != nil {
		return 0, fmt.Errorf("listing unfinished records: %w", err)
	}

	for _, rec := range stale {
		rec.Interrupt(now)
		if err := s.Save(ctx, rec); err != nil {
			return 0, err
		}
	}
	return len(stale), nil
}
