package store

import (
	"context"
	"time"
)

// JobStore defines the database operations for retry-queue jobs.
type JobStore interface {
	// Enqueue inserts a new pending job due immediately.
	Enqueue(ctx context.Context, queue, targetID string, payload []byte) (*Job, error)
	// FetchDue retrieves due jobs (pending or processing, next attempt time
	// in the past), oldest-due first, and marks them processing before
	// returning them.
	FetchDue(ctx context.Context, queue string, batchSize int) ([]Job, error)
	// UpdateStatus replaces the mutable fields of one job and stamps its
	// last attempt time. A job that no longer exists is logged and skipped,
	// never surfaced as an error.
	UpdateStatus(ctx context.Context, jobID string, status Status, attemptCount int, nextAttemptAt *time.Time, errorMessage string) error
	// CountsByStatus returns the number of jobs per status for one queue.
	CountsByStatus(ctx context.Context, queue string) (map[Status]int64, error)
	// Recent returns the newest jobs on a queue, optionally filtered by status.
	Recent(ctx context.Context, queue string, limit int, status Status) ([]Job, error)
}
