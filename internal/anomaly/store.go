// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch

package anomaly

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/mantisfury/arkham-core/internal/apperr"
)

// Store persists Anomaly records, deduplicating within a detection run
// by (doc_id, type, details_fingerprint), grounded on
// internal/rules/store.go's SQLite schema-init idiom.
type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) (*Store, error) {
	s := &Store{db: db}
	if err := s.initSchema(); err != nil {
		return nil, apperr.Fatal(err, "failed to initialize anomaly schema")
	}
	return s, nil
}

func (s *Store) initSchema() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS anomalies (
			id TEXT PRIMARY KEY,
			doc_id TEXT NOT NULL,
			type TEXT NOT NULL,
			score REAL NOT NULL,
			severity TEXT NOT NULL,
			confidence REAL NOT NULL,
			status TEXT NOT NULL,
			explanation TEXT,
			details TEXT,
			fingerprint TEXT NOT NULL,
			detected_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			UNIQUE(doc_id, type, fingerprint)
		);
		CREATE INDEX IF NOT EXISTS idx_anomalies_doc_id ON anomalies(doc_id);
		CREATE INDEX IF NOT EXISTS idx_anomalies_status ON anomalies(status);
		CREATE TABLE IF NOT EXISTS anomaly_notes (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			anomaly_id TEXT NOT NULL,
			note TEXT NOT NULL,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_anomaly_notes_anomaly_id ON anomaly_notes(anomaly_id);
	`)
	return err
}

// SaveRun persists a detection run's findings, skipping any that
// already exist for (doc_id, type, fingerprint) — i.e. the dedup key
// is enforced by the schema's UNIQUE constraint via INSERT OR IGNORE.
func (s *Store) SaveRun(ctx context.Context, anomalies []Anomaly) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR IGNORE INTO anomalies
		(id, doc_id, type, score, severity, confidence, status, explanation, details, fingerprint)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, a := range anomalies {
		details, err := json.Marshal(a.Details)
		if err != nil {
			return err
		}
		id := a.ID
		if id == "" {
			id = uuid.NewString()
		}
		if _, err := stmt.ExecContext(ctx, id, a.DocID, a.Type, a.Score, a.Severity, a.Confidence, a.Status, a.Explanation, string(details), a.Fingerprint()); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// ByDocument returns every stored anomaly for a document.
func (s *Store) ByDocument(ctx context.Context, docID string) ([]Anomaly, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, doc_id, type, score, severity, confidence, status, explanation, details, detected_at
		FROM anomalies WHERE doc_id = ? ORDER BY detected_at DESC
	`, docID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Anomaly
	for rows.Next() {
		var a Anomaly
		var details string
		if err := rows.Scan(&a.ID, &a.DocID, &a.Type, &a.Score, &a.Severity, &a.Confidence, &a.Status, &a.Explanation, &details, &a.DetectedAt); err != nil {
			return nil, err
		}
		json.Unmarshal([]byte(details), &a.Details)
		out = append(out, a)
	}
	return out, rows.Err()
}

// UpdateStatus transitions an anomaly's review status (e.g. CONFIRMED,
// DISMISSED, FALSE_POSITIVE).
func (s *Store) UpdateStatus(ctx context.Context, anomalyID string, status Status) error {
	res, err := s.db.ExecContext(ctx, `UPDATE anomalies SET status = ? WHERE id = ?`, status, anomalyID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return apperr.NotFound("anomaly %s not found", anomalyID)
	}
	return nil
}

// BulkUpdateStatus transitions every listed anomaly to status in one
// transaction, for POST /api/anomalies/bulk-status.
func (s *Store) BulkUpdateStatus(ctx context.Context, anomalyIDs []string, status Status) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `UPDATE anomalies SET status = ? WHERE id = ?`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, id := range anomalyIDs {
		if _, err := stmt.ExecContext(ctx, status, id); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// List returns the most recently detected anomalies across every
// document, newest first, for GET /api/anomalies/list.
func (s *Store) List(ctx context.Context, limit int) ([]Anomaly, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, doc_id, type, score, severity, confidence, status, explanation, details, detected_at
		FROM anomalies ORDER BY detected_at DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Anomaly
	for rows.Next() {
		var a Anomaly
		var details string
		if err := rows.Scan(&a.ID, &a.DocID, &a.Type, &a.Score, &a.Severity, &a.Confidence, &a.Status, &a.Explanation, &details, &a.DetectedAt); err != nil {
			return nil, err
		}
		json.Unmarshal([]byte(details), &a.Details)
		out = append(out, a)
	}
	return out, rows.Err()
}

// Stats summarizes counts by type, severity and status, for
// GET /api/anomalies/stats.
type Stats struct {
	Total      int            `json:"total"`
	ByType     map[string]int `json:"by_type"`
	BySeverity map[string]int `json:"by_severity"`
	ByStatus   map[string]int `json:"by_status"`
}

func (s *Store) Stats(ctx context.Context) (Stats, error) {
	out := Stats{ByType: map[string]int{}, BySeverity: map[string]int{}, ByStatus: map[string]int{}}

	if err := s.countInto(ctx, "SELECT type, COUNT(*) FROM anomalies GROUP BY type", out.ByType); err != nil {
		return out, err
	}
	if err := s.countInto(ctx, "SELECT severity, COUNT(*) FROM anomalies GROUP BY severity", out.BySeverity); err != nil {
		return out, err
	}
	if err := s.countInto(ctx, "SELECT status, COUNT(*) FROM anomalies GROUP BY status", out.ByStatus); err != nil {
		return out, err
	}
	for _, n := range out.ByType {
		out.Total += n
	}
	return out, nil
}

func (s *Store) countInto(ctx context.Context, query string, into map[string]int) error {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var key string
		var n int
		if err := rows.Scan(&key, &n); err != nil {
			return err
		}
		into[key] = n
	}
	return rows.Err()
}

// AddNote attaches a reviewer note to an anomaly (POST /{id}/notes).
func (s *Store) AddNote(ctx context.Context, anomalyID, note string) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO anomaly_notes (anomaly_id, note) VALUES (?, ?)`, anomalyID, note)
	return err
}

// Note is a single reviewer annotation on an anomaly.
type Note struct {
	ID        int64     `json:"id"`
	AnomalyID string    `json:"anomaly_id"`
	Note      string    `json:"note"`
	CreatedAt time.Time `json:"created_at"`
}

// Notes returns every note attached to an anomaly, oldest first.
func (s *Store) Notes(ctx context.Context, anomalyID string) ([]Note, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, anomaly_id, note, created_at FROM anomaly_notes
		WHERE anomaly_id = ? ORDER BY created_at ASC
	`, anomalyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Note
	for rows.Next() {
		var n Note
		if err := rows.Scan(&n.ID, &n.AnomalyID, &n.Note, &n.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}
