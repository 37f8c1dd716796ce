package documents

import (
	"context"
	"database/sql"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/mantisfury/arkham-core/internal/classify"
	"github.com/mantisfury/arkham-core/internal/ingest"
)

func newTestStore(t *testing.T) *SQLStore {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	store, err := NewSQLStore(db)
	if err != nil {
		t.Fatalf("NewSQLStore: %v", err)
	}
	return store
}

func TestRegisterFromJobSinglePage(t *testing.T) {
	store := newTestStore(t)
	svc := NewService(store)

	job := &ingest.IngestJob{
		JobID:        "job-1",
		OriginalName: "report.txt",
		MimeType:     "text/plain",
		SHA256:       "deadbeef",
		Category:     classify.CategoryDocument,
		CreatedAt:    time.Now(),
	}
	result := map[string]interface{}{"text": "hello world"}

	docID, err := svc.RegisterFromJob(context.Background(), job, result)
	if err != nil {
		t.Fatal(err)
	}
	if docID == "" {
		t.Fatal("expected a non-empty document id")
	}

	doc, err := store.Get(context.Background(), docID)
	if err != nil {
		t.Fatal(err)
	}
	if doc.Status != StatusProcessed {
		t.Fatalf("expected document marked processed, got %s", doc.Status)
	}

	pages, err := store.Pages(context.Background(), docID)
	if err != nil {
		t.Fatal(err)
	}
	if len(pages) != 1 || pages[0].Content != "hello world" {
		t.Fatalf("expected single page with content, got %+v", pages)
	}
}

func TestRegisterFromJobMultiPage(t *testing.T) {
	store := newTestStore(t)
	svc := NewService(store)

	job := &ingest.IngestJob{JobID: "job-2", OriginalName: "book.pdf", CreatedAt: time.Now()}
	result := map[string]interface{}{
		"pages": []interface{}{"page one", "page two", "page three"},
	}

	docID, err := svc.RegisterFromJob(context.Background(), job, result)
	if err != nil {
		t.Fatal(err)
	}

	pages, err := store.Pages(context.Background(), docID)
	if err != nil {
		t.Fatal(err)
	}
	if len(pages) != 3 {
		t.Fatalf("expected 3 pages, got %d", len(pages))
	}
	if pages[1].PageNumber != 2 || pages[1].Content != "page two" {
		t.Fatalf("unexpected page 2: %+v", pages[1])
	}
}

func TestUpdateStatusUnknownDocumentReturnsNotFound(t *testing.T) {
	store := newTestStore(t)
	err := store.UpdateStatus(context.Background(), "missing", StatusProcessed)
	if err == nil {
		t.Fatal("expected not-found error for unknown document")
	}
}
