// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch

package regexengine

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/mantisfury/arkham-core/internal/apperr"
)

// PresetStore persists custom (non-system) presets alongside the
// built-in catalog, grounded on the original's regex_presets table.
type PresetStore struct {
	DB *sql.DB
}

func NewPresetStore(db *sql.DB) (*PresetStore, error) {
	s := &PresetStore{DB: db}
	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS regex_presets (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			pattern TEXT NOT NULL,
			description TEXT,
			category TEXT NOT NULL,
			created_at TEXT NOT NULL DEFAULT (datetime('now'))
		)
	`); err != nil {
		return nil, apperr.Fatal(err, "failed to init regex_presets schema")
	}
	return s, nil
}

// List returns the system presets plus any custom presets, optionally
// filtered by category.
func (s *PresetStore) List(ctx context.Context, category string) ([]Preset, error) {
	presets := make([]Preset, 0, len(Presets))
	for _, p := range Presets {
		if category == "" || p.Category == category {
			presets = append(presets, p)
		}
	}

	query := "SELECT id, name, pattern, description, category FROM regex_presets"
	args := []interface{}{}
	if category != "" {
		query += " WHERE category = ?"
		args = append(args, category)
	}
	query += " ORDER BY name"

	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var p Preset
		if err := rows.Scan(&p.ID, &p.Name, &p.Pattern, &p.Description, &p.Category); err != nil {
			return nil, err
		}
		presets = append(presets, p)
	}
	return presets, rows.Err()
}

// SaveCustom inserts a new custom preset and returns it with a generated ID.
func (s *PresetStore) SaveCustom(ctx context.Context, name, pattern, description, category string) (Preset, error) {
	if category == "" {
		category = "custom"
	}
	p := Preset{ID: uuid.NewString()[:8], Name: name, Pattern: pattern, Description: description, Category: category}
	_, err := s.DB.ExecContext(ctx, `
		INSERT INTO regex_presets (id, name, pattern, description, category) VALUES (?, ?, ?, ?, ?)
	`, p.ID, p.Name, p.Pattern, p.Description, p.Category)
	if err != nil {
		return Preset{}, err
	}
	return p, nil
}

// DeleteCustom removes a custom preset. Deleting a system preset ID is a no-op.
func (s *PresetStore) DeleteCustom(ctx context.Context, presetID string) error {
	_, err := s.DB.ExecContext(ctx, `DELETE FROM regex_presets WHERE id = ?`, presetID)
	return err
}
