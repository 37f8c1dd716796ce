// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch
package ingest

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/mantisfury/arkham-core/internal/queue"
)

// Batch tracks a collection of jobs sharing an origin (a directory walk or
// a multi-file upload). It is complete iff completed+failed == total.
type Batch struct {
	BatchID   string
	JobIDs    []string
	Total     int
	Completed int
	Failed    int
	CreatedAt time.Time
}

func (b Batch) IsComplete() bool {
	return b.Completed+b.Failed == b.Total
}

// ReceivePath walks path (recursively if requested), ingesting every
// regular file it finds as a batch of priority-tagged jobs.
func (m *Manager) ReceivePath(ctx context.Context, root string, recursive bool, priority queue.Priority) (*Batch, error) {
	batch := &Batch{BatchID: uuid.NewString(), CreatedAt: time.Now()}

	walk := func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if !recursive && path != root {
				return filepath.SkipDir
			}
			return nil
		}

		batch.Total++
		f, ferr := os.Open(path)
		if ferr != nil {
			batch.Failed++
			return nil
		}
		defer f.Close()

		job, jerr := m.ReceiveFile(ctx, f, d.Name(), priority)
		if jerr != nil {
			batch.Failed++
			return nil
		}
		batch.JobIDs = append(batch.JobIDs, job.JobID)
		return nil
	}

	if err := filepath.WalkDir(root, walk); err != nil {
		return nil, err
	}
	return batch, nil
}
