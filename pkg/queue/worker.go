package queue

import (
	"context"
	"log"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/zoff-tech/webhook-relay/pkg/config"
	"github.com/zoff-tech/webhook-relay/pkg/store"
)

// Sink performs the actual outbound delivery of one job. The context passed
// to Attempt carries the delivery timeout.
type Sink interface {
	Attempt(ctx context.Context, job *store.Job, target *store.Target) error
}

// TargetResolver maps a job's target reference to a configured target. A
// worker for a single-target queue runs without one.
type TargetResolver interface {
	Resolve(id string) (store.Target, bool)
	Populated() bool
	Refresh(ctx context.Context) error
}

// Worker polls one queue for due jobs and drives each through a delivery
// attempt and the backoff schedule.
type Worker struct {
	queue        string
	jobs         store.JobStore
	sink         Sink
	resolver     TargetResolver
	schedule     Schedule
	pollInterval time.Duration
	batchSize    int
	timeout      time.Duration
	tracer       trace.Tracer
}

// NewWorker creates a worker for the named queue. resolver may be nil for
// queues whose jobs carry no target reference.
func NewWorker(queue string, jobs store.JobStore, sink Sink, resolver TargetResolver, cfg config.QueueSettings) *Worker {
	return &Worker{
		queue:        queue,
		jobs:         jobs,
		sink:         sink,
		resolver:     resolver,
		schedule:     Schedule(cfg.Backoff),
		pollInterval: cfg.PollInterval,
		batchSize:    cfg.BatchSize,
		timeout:      cfg.DeliveryTimeout,
		tracer:       otel.Tracer("webhook-relay"),
	}
}

// Run polls until the context is canceled. Cycle-level errors are logged and
// never terminate the loop.
func (w *Worker) Run(ctx context.Context) {
	log.Printf("Starting %s queue worker (max %d attempts, poll every %s)", w.queue, w.schedule.MaxAttempts(), w.pollInterval)
	for {
		w.runCycle(ctx)

		select {
		case <-ctx.Done():
			return
		case <-time.After(w.pollInterval):
		}
	}
}

func (w *Worker) runCycle(ctx context.Context) {
	// The worker must not dispatch against an empty directory snapshot.
	if w.resolver != nil && !w.resolver.Populated() {
		if err := w.resolver.Refresh(ctx); err != nil {
			log.Printf("Error loading target directory for %s queue: %v", w.queue, err)
			return
		}
	}

	jobs, err := w.jobs.FetchDue(ctx, w.queue, w.batchSize)
	if err != nil {
		log.Printf("Error in %s worker loop: %v", w.queue, err)
		return
	}

	if len(jobs) == 0 {
		return
	}
	log.Printf("%s worker found %d jobs to process", w.queue, len(jobs))

	// Jobs are processed sequentially to avoid overwhelming the downstream
	// endpoint; a failure in one never skips the rest of the batch.
	for i := range jobs {
		w.processJob(ctx, &jobs[i])
	}
}

func (w *Worker) processJob(ctx context.Context, job *store.Job) {
	ctx, span := w.tracer.Start(ctx, "ProcessJob", trace.WithAttributes(
		attribute.String("job.id", job.ID),
		attribute.String("job.queue", job.Queue),
		attribute.Int("job.attempt_count", job.AttemptCount),
	))
	defer span.End()

	var target *store.Target
	if w.resolver != nil {
		resolved, ok := w.resolver.Resolve(job.TargetID)
		if !ok || !resolved.Active {
			// Inactive and deleted targets are not retried.
			msg := "Target webhook is inactive or deleted."
			span.SetStatus(codes.Error, msg)
			if err := w.jobs.UpdateStatus(ctx, job.ID, store.StatusFailed, job.AttemptCount, nil, msg); err != nil {
				log.Printf("CRITICAL: Failed to update status for job %s: %v", job.ID, err)
			}
			return
		}
		target = &resolved
	}

	newAttemptCount := job.AttemptCount + 1
	status := store.StatusSuccess
	var nextAttemptAt *time.Time
	errorMessage := ""

	attemptCtx, cancel := context.WithTimeout(ctx, w.timeout)
	err := w.sink.Attempt(attemptCtx, job, target)
	cancel()

	if err == nil {
		log.Printf("Job %s delivered successfully (attempt %d/%d)", job.ID, newAttemptCount, w.schedule.MaxAttempts())
	} else {
		errorMessage = err.Error()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		log.Printf("Job %s failed attempt %d: %s", job.ID, newAttemptCount, errorMessage)

		if !w.schedule.Exhausted(newAttemptCount) {
			status = store.StatusPending
			next := w.schedule.NextAttemptAt(time.Now(), newAttemptCount)
			nextAttemptAt = &next
			log.Printf("Job %s scheduled for retry at %s", job.ID, next.Format(time.RFC3339))
		} else {
			status = store.StatusFailed
			next := w.schedule.NextAttemptAt(time.Now(), newAttemptCount)
			nextAttemptAt = &next
			log.Printf("Job %s failed permanently after %d attempts", job.ID, w.schedule.MaxAttempts())
		}
	}

	// A persistence failure here leaves the job in processing; the next poll
	// cycle picks it up again.
	if err := w.jobs.UpdateStatus(ctx, job.ID, status, newAttemptCount, nextAttemptAt, errorMessage); err != nil {
		span.RecordError(err)
		log.Printf("CRITICAL: Failed to update status for job %s: %v", job.ID, err)
	}
}
