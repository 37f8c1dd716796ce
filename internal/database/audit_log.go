// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch
package database

import (
	"database/sql"
	"fmt"
	"time"
)

// AuditAction categorizes an audited HTTP call.
type AuditAction string

const (
	AuditActionSearch       AuditAction = "SEARCH"
	AuditActionIngest       AuditAction = "INGEST"
	AuditActionEmbed        AuditAction = "EMBED"
	AuditActionAnomaly      AuditAction = "ANOMALY"
	AuditActionContradiction AuditAction = "CONTRADICTION"
)

// AuditLog is one audited request.
type AuditLog struct {
	ID        int64     `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	ClientIP  string    `json:"client_ip"`
	Action    string    `json:"action"`
	Details   string    `json:"details"`
}

// AuditLogStore persists AuditLog rows written through LogAction. The
// request-logging middleware does not write to it.
type AuditLogStore struct {
	db *sql.DB
}

func NewAuditLogStore(db *sql.DB) (*AuditLogStore, error) {
	store := &AuditLogStore{db: db}
	if err := store.initSchema(); err != nil {
		return nil, fmt.Errorf("failed to initialize audit logs schema: %w", err)
	}
	return store, nil
}

func (s *AuditLogStore) initSchema() error {
	const schema = `
	CREATE TABLE IF NOT EXISTS audit_logs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		timestamp DATETIME DEFAULT CURRENT_TIMESTAMP,
		client_ip TEXT NOT NULL,
		action TEXT NOT NULL,
		details TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_audit_logs_timestamp ON audit_logs(timestamp DESC);
	CREATE INDEX IF NOT EXISTS idx_audit_logs_action ON audit_logs(action);
	`
	_, err := s.db.Exec(schema)
	return err
}

// LogAction records one audited request.
func (s *AuditLogStore) LogAction(clientIP string, action AuditAction, details string) error {
	_, err := s.db.Exec(
		"INSERT INTO audit_logs (timestamp, client_ip, action, details) VALUES (?, ?, ?, ?)",
		time.Now(), clientIP, string(action), details,
	)
	return err
}

// GetRecentLogs returns the last limit audit logs, newest first,
// optionally filtered to one action.
func (s *AuditLogStore) GetRecentLogs(limit int, actionFilter string) ([]AuditLog, error) {
	var rows *sql.Rows
	var err error
	if actionFilter != "" {
		rows, err = s.db.Query(
			"SELECT id, timestamp, client_ip, action, details FROM audit_logs WHERE action = ? ORDER BY timestamp DESC LIMIT ?",
			actionFilter, limit,
		)
	} else {
		rows, err = s.db.Query(
			"SELECT id, timestamp, client_ip, action, details FROM audit_logs ORDER BY timestamp DESC LIMIT ?",
			limit,
		)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []AuditLog
	for rows.Next() {
		var l AuditLog
		if err := rows.Scan(&l.ID, &l.Timestamp, &l.ClientIP, &l.Action, &l.Details); err != nil {
			return nil, err
		}
		logs = append(logs, l)
	}
	return logs, nil
}
