// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch

package contradiction

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/mantisfury/arkham-core/internal/apperr"
)

// Store persists confirmed contradictions as graph edges, grounded on
// internal/database/graph.go's graph_edges table, generalized to carry
// the full Contradiction record instead of a bare relationship string.
type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) (*Store, error) {
	s := &Store{db: db}
	if err := s.initSchema(); err != nil {
		return nil, apperr.Fatal(err, "failed to initialize contradiction schema")
	}
	return s, nil
}

func (s *Store) initSchema() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS contradictions (
			id TEXT PRIMARY KEY,
			source_doc_id TEXT NOT NULL,
			target_doc_id TEXT NOT NULL,
			claim_a TEXT NOT NULL,
			claim_b TEXT NOT NULL,
			type TEXT NOT NULL,
			severity TEXT NOT NULL,
			explanation TEXT,
			confidence REAL NOT NULL,
			status TEXT NOT NULL DEFAULT 'DETECTED',
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_contradictions_source ON contradictions(source_doc_id);
		CREATE INDEX IF NOT EXISTS idx_contradictions_target ON contradictions(target_doc_id);
		CREATE INDEX IF NOT EXISTS idx_contradictions_status ON contradictions(status);
	`)
	return err
}

// Save persists a confirmed contradiction, assigning an ID if absent.
func (s *Store) Save(ctx context.Context, c *Contradiction) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.Status == "" {
		c.Status = StatusDetected
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO contradictions
		(id, source_doc_id, target_doc_id, claim_a, claim_b, type, severity, explanation, confidence, status)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, c.ID, c.ClaimA.DocID, c.ClaimB.DocID, c.ClaimA.Text, c.ClaimB.Text, c.Type, c.Severity, c.Explanation, c.Confidence, c.Status)
	return err
}

// UpdateStatus transitions a contradiction's review status (PUT /{id}/status).
func (s *Store) UpdateStatus(ctx context.Context, id string, status Status) error {
	res, err := s.db.ExecContext(ctx, `UPDATE contradictions SET status = ? WHERE id = ?`, status, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return apperr.NotFound("contradiction %s", id)
	}
	return nil
}

// ForDocument returns every contradiction touching docID, as either source or target.
func (s *Store) ForDocument(ctx context.Context, docID string) ([]Contradiction, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, source_doc_id, target_doc_id, claim_a, claim_b, type, severity, explanation, confidence, status
		FROM contradictions WHERE source_doc_id = ? OR target_doc_id = ?
		ORDER BY created_at DESC
	`, docID, docID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanContradictions(rows)
}

// All returns every stored contradiction, used to feed chain detection.
func (s *Store) All(ctx context.Context) ([]Contradiction, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, source_doc_id, target_doc_id, claim_a, claim_b, type, severity, explanation, confidence, status
		FROM contradictions ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanContradictions(rows)
}

func scanContradictions(rows *sql.Rows) ([]Contradiction, error) {
	var out []Contradiction
	for rows.Next() {
		var c Contradiction
		if err := rows.Scan(&c.ID, &c.ClaimA.DocID, &c.ClaimB.DocID, &c.ClaimA.Text, &c.ClaimB.Text, &c.Type, &c.Severity, &c.Explanation, &c.Confidence, &c.Status); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
