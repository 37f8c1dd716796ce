// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch
package ingest

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/mantisfury/arkham-core/internal/apperr"
	"github.com/mantisfury/arkham-core/internal/classify"
)

// SQLStore is a database/sql-backed Store for IngestJob records, grounded
// on internal/documents.SQLStore's schema-migration idiom.
type SQLStore struct {
	db *sql.DB
}

func NewSQLStore(db *sql.DB) (*SQLStore, error) {
	s := &SQLStore{db: db}
	if err := s.initSchema(); err != nil {
		return nil, apperr.Fatal(err, "initialize ingest jobs schema")
	}
	return s, nil
}

func (s *SQLStore) initSchema() error {
	const schema = `
	CREATE TABLE IF NOT EXISTS ingest_jobs (
		job_id          TEXT PRIMARY KEY,
		path            TEXT,
		original_name   TEXT NOT NULL,
		size            INTEGER NOT NULL,
		sha256          TEXT,
		mime_type       TEXT,
		category        TEXT,
		extension       TEXT,
		ext_fidelity    BOOLEAN,
		quality         TEXT,
		classification  TEXT,
		priority        INTEGER NOT NULL,
		status          TEXT NOT NULL,
		worker_route    TEXT,
		current_worker  TEXT,
		retry_count     INTEGER NOT NULL DEFAULT 0,
		max_retries     INTEGER NOT NULL DEFAULT 3,
		created_at      DATETIME NOT NULL,
		updated_at      DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_ingest_jobs_status ON ingest_jobs(status);
	CREATE INDEX IF NOT EXISTS idx_ingest_jobs_sha256 ON ingest_jobs(sha256);
	`
	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLStore) Save(ctx context.Context, job *IngestJob) error {
	route, err := json.Marshal(job.WorkerRoute)
	if err != nil {
		return err
	}
	quality, err := json.Marshal(job.Quality)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO ingest_jobs
		(job_id, path, original_name, size, sha256, mime_type, category, extension, ext_fidelity,
		 quality, classification, priority, status, worker_route, current_worker,
		 retry_count, max_retries, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, job.JobID, job.Path, job.OriginalName, job.Size, job.SHA256, job.MimeType, job.Category, job.Extension, job.ExtFidelity,
		string(quality), job.Classification, job.Priority, job.Status, string(route), job.CurrentWorker,
		job.RetryCount, job.MaxRetries, job.CreatedAt, job.UpdatedAt)
	return err
}

func (s *SQLStore) Get(ctx context.Context, jobID string) (*IngestJob, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT job_id, path, original_name, size, sha256, mime_type, category, extension, ext_fidelity,
		       quality, classification, priority, status, worker_route, current_worker,
		       retry_count, max_retries, created_at, updated_at
		FROM ingest_jobs WHERE job_id = ?
	`, jobID)
	job, err := scanIngestJob(row.Scan)
	if err == sql.ErrNoRows {
		return nil, apperr.NotFound("ingest job %s", jobID)
	}
	if err != nil {
		return nil, err
	}
	return job, nil
}

func (s *SQLStore) Update(ctx context.Context, job *IngestJob) error {
	route, err := json.Marshal(job.WorkerRoute)
	if err != nil {
		return err
	}
	quality, err := json.Marshal(job.Quality)
	if err != nil {
		return err
	}
	job.UpdatedAt = time.Now()
	res, err := s.db.ExecContext(ctx, `
		UPDATE ingest_jobs SET
			path = ?, mime_type = ?, category = ?, quality = ?, classification = ?,
			status = ?, worker_route = ?, current_worker = ?, retry_count = ?, updated_at = ?
		WHERE job_id = ?
	`, job.Path, job.MimeType, job.Category, string(quality), job.Classification,
		job.Status, string(route), job.CurrentWorker, job.RetryCount, job.UpdatedAt, job.JobID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return apperr.NotFound("ingest job %s", job.JobID)
	}
	return nil
}

// scanner abstracts over *sql.Row.Scan and *sql.Rows.Scan so List and Get
// share one row-decoding routine.
type scanner func(dest ...interface{}) error

func scanIngestJob(scan scanner) (*IngestJob, error) {
	var job IngestJob
	var route, quality, category, classification, status string
	if err := scan(&job.JobID, &job.Path, &job.OriginalName, &job.Size, &job.SHA256, &job.MimeType,
		&category, &job.Extension, &job.ExtFidelity, &quality, &classification, &job.Priority,
		&status, &route, &job.CurrentWorker, &job.RetryCount, &job.MaxRetries, &job.CreatedAt, &job.UpdatedAt); err != nil {
		return nil, err
	}
	job.Category = classify.Category(category)
	job.Classification = classify.Classification(classification)
	job.Status = Status(status)
	json.Unmarshal([]byte(route), &job.WorkerRoute)
	if quality != "" && quality != "null" {
		var q classify.QualityScore
		if json.Unmarshal([]byte(quality), &q) == nil {
			job.Quality = &q
		}
	}
	return &job, nil
}

// List returns the most recently created jobs, newest first, for the
// ingest queue status view (GET /api/ingest/queue).
func (s *SQLStore) List(ctx context.Context, limit int) ([]IngestJob, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT job_id, path, original_name, size, sha256, mime_type, category, extension, ext_fidelity,
		       quality, classification, priority, status, worker_route, current_worker,
		       retry_count, max_retries, created_at, updated_at
		FROM ingest_jobs ORDER BY created_at DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []IngestJob
	for rows.Next() {
		job, err := scanIngestJob(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, *job)
	}
	return out, rows.Err()
}
