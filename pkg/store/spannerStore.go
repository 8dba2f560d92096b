package store

import (
	"context"
	"log"
	"time"

	"cloud.google.com/go/spanner"
	"github.com/google/uuid"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
)

// SpannerJobStore persists jobs in a Spanner relay_jobs table.
type SpannerJobStore struct {
	client *spanner.Client
}

var jobColumns = []string{"id", "queue", "target_id", "payload", "status", "attempt_count", "next_attempt_at", "last_attempt_at", "error_message", "created_at"}

func (s *SpannerJobStore) Enqueue(ctx context.Context, queue, targetID string, payload []byte) (*Job, error) {
	now := time.Now()
	job := &Job{
		ID:            uuid.NewString(),
		Queue:         queue,
		TargetID:      targetID,
		Payload:       payload,
		Status:        StatusPending,
		NextAttemptAt: &now,
		CreatedAt:     now,
	}

	mutation := spanner.Insert(jobsTable, jobColumns, []interface{}{
		job.ID, job.Queue, spannerNullString(targetID), job.Payload, string(job.Status),
		int64(0), now, spanner.NullTime{}, spanner.NullString{}, now,
	})
	if _, err := s.client.Apply(ctx, []*spanner.Mutation{mutation}); err != nil {
		return nil, err
	}
	return job, nil
}

func (s *SpannerJobStore) FetchDue(ctx context.Context, queue string, batchSize int) ([]Job, error) {
	var jobs []Job

	_, err := s.client.ReadWriteTransaction(ctx, func(ctx context.Context, txn *spanner.ReadWriteTransaction) error {
		stmt := spanner.Statement{
			SQL: `SELECT id, queue, target_id, payload, status, attempt_count, next_attempt_at, last_attempt_at, error_message, created_at
                  FROM relay_jobs
                  WHERE queue = @queue AND status IN ('pending', 'processing') AND next_attempt_at <= @now
                  ORDER BY next_attempt_at ASC
                  LIMIT @batchSize`,
			Params: map[string]interface{}{
				"queue":     queue,
				"now":       time.Now(),
				"batchSize": batchSize,
			},
		}

		jobs = jobs[:0]
		iter := txn.Query(ctx, stmt)
		defer iter.Stop()
		for {
			row, err := iter.Next()
			if err == iterator.Done {
				break
			}
			if err != nil {
				return err
			}
			job, err := decodeSpannerJob(row)
			if err != nil {
				return err
			}
			jobs = append(jobs, *job)
		}

		// Mark the batch processing without touching next_attempt_at.
		for i := range jobs {
			if err := txn.BufferWrite([]*spanner.Mutation{
				spanner.Update(jobsTable, []string{"id", "status"}, []interface{}{jobs[i].ID, string(StatusProcessing)}),
			}); err != nil {
				return err
			}
			jobs[i].Status = StatusProcessing
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return jobs, nil
}

func (s *SpannerJobStore) UpdateStatus(ctx context.Context, jobID string, status Status, attemptCount int, nextAttemptAt *time.Time, errorMessage string) error {
	mutation := spanner.Update(jobsTable,
		[]string{"id", "status", "attempt_count", "next_attempt_at", "last_attempt_at", "error_message"},
		[]interface{}{jobID, string(status), int64(attemptCount), spannerNullTime(nextAttemptAt), time.Now(), spannerNullString(errorMessage)})
	_, err := s.client.Apply(ctx, []*spanner.Mutation{mutation})
	if spanner.ErrCode(err) == codes.NotFound {
		// A deleted job is treated as already resolved.
		log.Printf("Job %s no longer exists, skipping status update", jobID)
		return nil
	}
	return err
}

func (s *SpannerJobStore) CountsByStatus(ctx context.Context, queue string) (map[Status]int64, error) {
	stmt := spanner.Statement{
		SQL:    `SELECT status, COUNT(*) AS count FROM relay_jobs WHERE queue = @queue GROUP BY status`,
		Params: map[string]interface{}{"queue": queue},
	}

	counts := make(map[Status]int64)
	iter := s.client.Single().Query(ctx, stmt)
	defer iter.Stop()
	for {
		row, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, err
		}
		var status string
		var count int64
		if err := row.Columns(&status, &count); err != nil {
			return nil, err
		}
		counts[Status(status)] = count
	}
	return counts, nil
}

func (s *SpannerJobStore) Recent(ctx context.Context, queue string, limit int, status Status) ([]Job, error) {
	sql := `SELECT id, queue, target_id, payload, status, attempt_count, next_attempt_at, last_attempt_at, error_message, created_at
            FROM relay_jobs WHERE queue = @queue`
	params := map[string]interface{}{"queue": queue, "limit": int64(limit)}
	if status != "" {
		sql += ` AND status = @status`
		params["status"] = string(status)
	}
	sql += ` ORDER BY created_at DESC LIMIT @limit`

	var jobs []Job
	iter := s.client.Single().Query(ctx, spanner.Statement{SQL: sql, Params: params})
	defer iter.Stop()
	for {
		row, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, err
		}
		job, err := decodeSpannerJob(row)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, *job)
	}
	return jobs, nil
}

func decodeSpannerJob(row *spanner.Row) (*Job, error) {
	var job Job
	var status string
	var attemptCount int64
	var targetID, errorMessage spanner.NullString
	var nextAttemptAt, lastAttemptAt spanner.NullTime
	if err := row.Columns(&job.ID, &job.Queue, &targetID, &job.Payload, &status,
		&attemptCount, &nextAttemptAt, &lastAttemptAt, &errorMessage, &job.CreatedAt); err != nil {
		return nil, err
	}
	job.Status = Status(status)
	job.AttemptCount = int(attemptCount)
	job.TargetID = targetID.StringVal
	job.ErrorMessage = errorMessage.StringVal
	if nextAttemptAt.Valid {
		t := nextAttemptAt.Time
		job.NextAttemptAt = &t
	}
	if lastAttemptAt.Valid {
		t := lastAttemptAt.Time
		job.LastAttemptAt = &t
	}
	return &job, nil
}

func spannerNullString(s string) spanner.NullString {
	return spanner.NullString{StringVal: s, Valid: s != ""}
}

func spannerNullTime(t *time.Time) spanner.NullTime {
	if t == nil {
		return spanner.NullTime{}
	}
	return spanner.NullTime{Time: *t, Valid: true}
}
