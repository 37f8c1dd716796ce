// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch

// Package documents implements Document Registration: once a job's worker
// route terminates successfully, its extracted content is recorded as a
// Document with one or more Pages. Grounded on the teacher's
// internal/server/hive_service.go documentTracker (accumulating chunked
// content per document) and internal/database/audit_log.go's sql.DB /
// schema-migration idiom.
package documents

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mantisfury/arkham-core/internal/apperr"
	"github.com/mantisfury/arkham-core/internal/ingest"
)

// Status mirrors spec.md §4.7's create→processed lifecycle.
type Status string

const (
	StatusPending   Status = "pending"
	StatusProcessed Status = "processed"
)

// Page is a single page (or chunked segment) of a document's extracted text.
type Page struct {
	DocumentID string
	PageNumber int
	Content    string
}

// Document is the registered record produced once a job's route completes.
type Document struct {
	DocumentID string
	JobID      string
	Filename   string
	MimeType   string
	SHA256     string
	Status     Status
	Metadata   map[string]string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Store persists Documents and their Pages.
type Store interface {
	CreateDocument(ctx context.Context, doc *Document, pages []Page) error
	UpdateStatus(ctx context.Context, documentID string, status Status) error
	Get(ctx context.Context, documentID string) (*Document, error)
	Pages(ctx context.Context, documentID string) ([]Page, error)
}

// Service implements create_document/update per spec.md §4.7 and satisfies
// internal/dispatch.Registrar.
type Service struct {
	Store Store
}

func NewService(store Store) *Service {
	return &Service{Store: store}
}

// RegisterFromJob builds a Document from a completed IngestJob's accumulated
// result, splitting it into pages when the last worker produced a
// multi-page structure, and marks it processed.
func (s *Service) RegisterFromJob(ctx context.Context, job *ingest.IngestJob, result map[string]interface{}) (string, error) {
	docID := uuid.NewString()
	doc := &Document{
		DocumentID: docID,
		JobID:      job.JobID,
		Filename:   job.OriginalName,
		MimeType:   job.MimeType,
		SHA256:     job.SHA256,
		Status:     StatusPending,
		Metadata:   map[string]string{"category": string(job.Category)},
		CreatedAt:  time.Now(),
		UpdatedAt:  time.Now(),
	}

	pages := pagesFromResult(docID, result)
	if err := s.Store.CreateDocument(ctx, doc, pages); err != nil {
		return "", err
	}
	if err := s.Store.UpdateStatus(ctx, docID, StatusProcessed); err != nil {
		return "", err
	}
	return docID, nil
}

// pagesFromResult extracts page text from a job result. A "pages" key
// holding a []interface{} of strings is treated as a pre-split multi-page
// structure; otherwise a single "text" key becomes page 1.
func pagesFromResult(documentID string, result map[string]interface{}) []Page {
	if raw, ok := result["pages"].([]interface{}); ok && len(raw) > 0 {
		pages := make([]Page, 0, len(raw))
		for i, p := range raw {
			text, _ := p.(string)
			pages = append(pages, Page{DocumentID: documentID, PageNumber: i + 1, Content: text})
		}
		return pages
	}
	if text, ok := result["text"].(string); ok && text != "" {
		return []Page{{DocumentID: documentID, PageNumber: 1, Content: text}}
	}
	return nil
}

// SQLStore is a database/sql-backed Store, grounded on the teacher's
// sqlite schema-migration pattern (CREATE TABLE IF NOT EXISTS).
type SQLStore struct {
	db *sql.DB
}

func NewSQLStore(db *sql.DB) (*SQLStore, error) {
	s := &SQLStore{db: db}
	if err := s.initSchema(); err != nil {
		return nil, apperr.Fatal(err, "initialize documents schema")
	}
	return s, nil
}

func (s *SQLStore) initSchema() error {
	const schema = `
	CREATE TABLE IF NOT EXISTS documents (
		document_id TEXT PRIMARY KEY,
		job_id TEXT NOT NULL,
		filename TEXT NOT NULL,
		mime_type TEXT,
		sha256 TEXT,
		status TEXT NOT NULL,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_documents_job_id ON documents(job_id);
	CREATE INDEX IF NOT EXISTS idx_documents_sha256 ON documents(sha256);

	CREATE TABLE IF NOT EXISTS document_pages (
		document_id TEXT NOT NULL,
		page_number INTEGER NOT NULL,
		content TEXT,
		PRIMARY KEY (document_id, page_number)
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLStore) CreateDocument(ctx context.Context, doc *Document, pages []Page) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO documents (document_id, job_id, filename, mime_type, sha256, status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		doc.DocumentID, doc.JobID, doc.Filename, doc.MimeType, doc.SHA256, string(doc.Status), doc.CreatedAt, doc.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert document: %w", err)
	}

	for _, p := range pages {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO document_pages (document_id, page_number, content) VALUES (?, ?, ?)`,
			p.DocumentID, p.PageNumber, p.Content,
		); err != nil {
			return fmt.Errorf("insert page %d: %w", p.PageNumber, err)
		}
	}

	return tx.Commit()
}

func (s *SQLStore) UpdateStatus(ctx context.Context, documentID string, status Status) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE documents SET status = ?, updated_at = ? WHERE document_id = ?`,
		string(status), time.Now(), documentID,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return apperr.NotFound("document %s", documentID)
	}
	return nil
}

func (s *SQLStore) Get(ctx context.Context, documentID string) (*Document, error) {
	var doc Document
	var status string
	row := s.db.QueryRowContext(ctx,
		`SELECT document_id, job_id, filename, mime_type, sha256, status, created_at, updated_at
		 FROM documents WHERE document_id = ?`, documentID)
	if err := row.Scan(&doc.DocumentID, &doc.JobID, &doc.Filename, &doc.MimeType, &doc.SHA256, &status, &doc.CreatedAt, &doc.UpdatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, apperr.NotFound("document %s", documentID)
		}
		return nil, err
	}
	doc.Status = Status(status)
	return &doc, nil
}

func (s *SQLStore) Pages(ctx context.Context, documentID string) ([]Page, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT document_id, page_number, content FROM document_pages WHERE document_id = ? ORDER BY page_number`, documentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var pages []Page
	for rows.Next() {
		var p Page
		if err := rows.Scan(&p.DocumentID, &p.PageNumber, &p.Content); err != nil {
			return nil, err
		}
		pages = append(pages, p)
	}
	return pages, rows.Err()
}

// ListProcessed returns every document whose status is StatusProcessed,
// used by the corpus-stats recalculation job to rebuild per-metric
// (mean, std) baselines for the Statistical anomaly detector.
func (s *SQLStore) ListProcessed(ctx context.Context) ([]Document, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT document_id, job_id, filename, mime_type, sha256, status, created_at, updated_at
		 FROM documents WHERE status = ?`, string(StatusProcessed))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		var doc Document
		var status string
		if err := rows.Scan(&doc.DocumentID, &doc.JobID, &doc.Filename, &doc.MimeType, &doc.SHA256, &status, &doc.CreatedAt, &doc.UpdatedAt); err != nil {
			return nil, err
		}
		doc.Status = Status(status)
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}
