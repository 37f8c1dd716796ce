// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch

// Package ingest implements the Intake Manager: receiving a file stream,
// classifying it, scoring image quality, resolving its worker route, and
// persisting the resulting IngestJob record. Grounded on the teacher's
// cmd/hive-server ingestion wiring and internal/parser/dispatcher.go's
// extension-routing idiom, generalized to the full classify+quality+route
// pipeline.
package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mantisfury/arkham-core/internal/apperr"
	"github.com/mantisfury/arkham-core/internal/classify"
	"github.com/mantisfury/arkham-core/internal/queue"
)

// Status is an IngestJob's pipeline status, distinct from queue.State
// (which tracks a single queue record's lease lifecycle).
type Status string

const (
	StatusPending    Status = "PENDING"
	StatusQueued     Status = "QUEUED"
	StatusProcessing Status = "PROCESSING"
	StatusCompleted  Status = "COMPLETED"
	StatusFailed     Status = "FAILED"
	StatusDead       Status = "DEAD"
)

// IngestJob is the pipeline-level record spec.md §3 calls File/IngestJob.
type IngestJob struct {
	JobID        string
	Path         string
	OriginalName string
	Size         int64
	SHA256       string
	MimeType     string
	Category     classify.Category
	Extension    string
	ExtFidelity  bool

	Quality        *classify.QualityScore
	Classification classify.Classification

	Priority     queue.Priority
	Status       Status
	WorkerRoute  []string
	CurrentWorker string
	RetryCount   int
	MaxRetries   int
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Store persists IngestJob records. Implemented by internal/database.
type Store interface {
	Save(ctx context.Context, job *IngestJob) error
	Get(ctx context.Context, jobID string) (*IngestJob, error)
	Update(ctx context.Context, job *IngestJob) error
}

// Manager is the Intake Manager.
type Manager struct {
	StorageRoot string
	Store       Store
	OCRMode     classify.OCRMode
}

func NewManager(storageRoot string, store Store, ocrMode classify.OCRMode) *Manager {
	return &Manager{StorageRoot: storageRoot, Store: store, OCRMode: ocrMode}
}

// ReceiveFile streams src to a temp file while hashing it, classifies it,
// scores image quality when applicable, resolves its worker_route, moves
// it to canonical storage, and persists the job record.
func (m *Manager) ReceiveFile(ctx context.Context, src io.Reader, filename string, priority queue.Priority) (*IngestJob, error) {
	filename = SanitizeFilename(filename)
	jobID := uuid.NewString()

	tmp, err := os.CreateTemp("", "arkham-ingest-*")
	if err != nil {
		return nil, apperr.Fatal(err, "create temp file for %s", filename)
	}
	defer os.Remove(tmp.Name())
	defer tmp.Close()

	hasher := sha256.New()
	size, err := io.Copy(io.MultiWriter(tmp, hasher), src)
	if err != nil {
		return nil, apperr.Fatal(err, "stream upload for %s", filename)
	}
	sha := hex.EncodeToString(hasher.Sum(nil))

	info, err := classify.Classify(tmp.Name())
	if err != nil {
		return nil, apperr.Transient(err, "classify %s", filename)
	}

	job := &IngestJob{
		JobID:        jobID,
		OriginalName: filename,
		Size:         size,
		SHA256:       sha,
		MimeType:     info.MimeType,
		Category:     info.Category,
		Extension:    strings.ToLower(filepath.Ext(filename)),
		ExtFidelity:  info.ExtensionFidelity,
		Priority:     priority,
		Status:       StatusPending,
		WorkerRoute:  info.Route,
		MaxRetries:   3,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}

	if info.Category == classify.CategoryImage {
		score, qerr := classify.AnalyzeImage(tmp.Name())
		if qerr == nil {
			job.Quality = &score
			job.Classification = score.Classify()
			job.WorkerRoute = resolveRouteByQuality(job.WorkerRoute, score, m.OCRMode)
		}
	}

	dest := m.canonicalPath(job)
	if err := moveFile(tmp.Name(), dest); err != nil {
		return nil, apperr.Fatal(err, "store file for job %s", jobID)
	}
	job.Path = dest

	if err := m.Store.Save(ctx, job); err != nil {
		return nil, err
	}
	return job, nil
}

// resolveRouteByQuality replaces the ROUTE_BY_QUALITY marker left by the
// file type classifier with the concrete OCR sub-route.
func resolveRouteByQuality(route []string, score classify.QualityScore, mode classify.OCRMode) []string {
	out := make([]string, 0, len(route)+1)
	for _, step := range route {
		if step == "ROUTE_BY_QUALITY" {
			out = append(out, classify.GetOCRRoute(score, mode)...)
			continue
		}
		out = append(out, step)
	}
	return out
}

func (m *Manager) canonicalPath(job *IngestJob) string {
	day := job.CreatedAt.Format("2006/01/02")
	return filepath.Join(m.StorageRoot, day, string(job.Category), job.JobID+job.Extension)
}

func moveFile(src, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return err
	}
	if err := os.Rename(src, dst); err == nil {
		return nil
	}
	// Cross-device rename failure: fall back to copy+remove.
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()
	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return os.Remove(src)
}

// SanitizeFilename strips path separators and NUL bytes, caps length at
// 200 bytes, and collapses an empty result to "unnamed", per spec.md §4.3.
func SanitizeFilename(name string) string {
	name = strings.ReplaceAll(name, "/", "_")
	name = strings.ReplaceAll(name, "\\", "_")
	name = strings.ReplaceAll(name, "\x00", "")
	if len(name) > 200 {
		name = name[:200]
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return "unnamed"
	}
	return name
}
