package store

import (
	"context"
	"database/sql"
	"log"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
)

// PostgresJobStore persists jobs in a relay_jobs table.
type PostgresJobStore struct {
	Db *sql.DB
}

const fetchDueSQL = `SELECT id, queue, target_id, payload, status, attempt_count, next_attempt_at, last_attempt_at, error_message, created_at FROM relay_jobs
             WHERE queue = $1 AND status IN ('pending', 'processing') AND next_attempt_at <= $2
             ORDER BY next_attempt_at ASC
             LIMIT $3
             FOR UPDATE SKIP LOCKED`

func (p *PostgresJobStore) Enqueue(ctx context.Context, queue, targetID string, payload []byte) (*Job, error) {
	tracer := otel.Tracer(tracerName)
	ctx, span := tracer.Start(ctx, "Enqueue")
	defer span.End()

	now := time.Now()
	job := &Job{
		ID:            uuid.NewString(),
		Queue:         queue,
		TargetID:      targetID,
		Payload:       payload,
		Status:        StatusPending,
		AttemptCount:  0,
		NextAttemptAt: &now,
		CreatedAt:     now,
	}

	_, err := p.Db.ExecContext(ctx,
		`INSERT INTO relay_jobs (id, queue, target_id, payload, status, attempt_count, next_attempt_at, created_at)
         VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		job.ID, job.Queue, nullString(job.TargetID), job.Payload, job.Status, job.AttemptCount, now, now)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	return job, nil
}

func (p *PostgresJobStore) FetchDue(ctx context.Context, queue string, batchSize int) ([]Job, error) {
	tracer := otel.Tracer(tracerName)
	ctx, span := tracer.Start(ctx, "FetchDue")
	defer span.End()

	start := time.Now()

	tx, err := p.Db.BeginTx(ctx, nil)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	rows, err := tx.QueryContext(ctx, fetchDueSQL, queue, time.Now(), batchSize)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	var jobs []Job
	for rows.Next() {
		var job Job
		if err = scanJob(rows, &job); err != nil {
			rows.Close()
			span.RecordError(err)
			return nil, err
		}
		jobs = append(jobs, job)
	}
	rows.Close()
	if err = rows.Err(); err != nil {
		span.RecordError(err)
		return nil, err
	}

	// Mark the batch processing. next_attempt_at is left untouched so a
	// crash before the terminal update leaves the job selectable again.
	for i := range jobs {
		if _, err = tx.ExecContext(ctx,
			`UPDATE relay_jobs SET status=$1 WHERE id=$2`,
			StatusProcessing, jobs[i].ID); err != nil {
			span.RecordError(err)
			return nil, err
		}
		jobs[i].Status = StatusProcessing
	}

	if err = tx.Commit(); err != nil {
		span.RecordError(err)
		return nil, err
	}

	addDBStatsToSpan(span, "postgresql", "FetchDue", len(jobs), time.Since(start))
	return jobs, nil
}

func (p *PostgresJobStore) UpdateStatus(ctx context.Context, jobID string, status Status, attemptCount int, nextAttemptAt *time.Time, errorMessage string) error {
	tracer := otel.Tracer(tracerName)
	ctx, span := tracer.Start(ctx, "UpdateStatus")
	defer span.End()

	res, err := p.Db.ExecContext(ctx,
		`UPDATE relay_jobs
         SET status=$1, attempt_count=$2, next_attempt_at=$3, last_attempt_at=$4, error_message=$5
         WHERE id=$6`,
		status, attemptCount, nextAttemptAt, time.Now(), nullString(errorMessage), jobID)
	if err != nil {
		span.RecordError(err)
		return err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		span.RecordError(err)
		return err
	}
	if affected == 0 {
		// A deleted job is treated as already resolved.
		log.Printf("Job %s no longer exists, skipping status update", jobID)
	}
	return nil
}

func (p *PostgresJobStore) CountsByStatus(ctx context.Context, queue string) (map[Status]int64, error) {
	tracer := otel.Tracer(tracerName)
	ctx, span := tracer.Start(ctx, "CountsByStatus")
	defer span.End()

	rows, err := p.Db.QueryContext(ctx,
		`SELECT status, COUNT(*) FROM relay_jobs WHERE queue = $1 GROUP BY status`, queue)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	defer rows.Close()

	counts := make(map[Status]int64)
	for rows.Next() {
		var status Status
		var count int64
		if err := rows.Scan(&status, &count); err != nil {
			span.RecordError(err)
			return nil, err
		}
		counts[status] = count
	}
	return counts, rows.Err()
}

func (p *PostgresJobStore) Recent(ctx context.Context, queue string, limit int, status Status) ([]Job, error) {
	tracer := otel.Tracer(tracerName)
	ctx, span := tracer.Start(ctx, "Recent")
	defer span.End()

	query := `SELECT id, queue, target_id, payload, status, attempt_count, next_attempt_at, last_attempt_at, error_message, created_at FROM relay_jobs WHERE queue = $1`
	args := []any{queue}
	if status != "" {
		query += ` AND status = $2`
		args = append(args, status)
	}
	query += ` ORDER BY created_at DESC LIMIT $` + strconv.Itoa(len(args)+1)
	args = append(args, limit)

	rows, err := p.Db.QueryContext(ctx, query, args...)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	defer rows.Close()

	var jobs []Job
	for rows.Next() {
		var job Job
		if err := scanJob(rows, &job); err != nil {
			span.RecordError(err)
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

func scanJob(rows *sql.Rows, job *Job) error {
	var targetID, errorMessage sql.NullString
	var nextAttemptAt, lastAttemptAt sql.NullTime
	if err := rows.Scan(&job.ID, &job.Queue, &targetID, &job.Payload, &job.Status,
		&job.AttemptCount, &nextAttemptAt, &lastAttemptAt, &errorMessage, &job.CreatedAt); err != nil {
		return err
	}
	job.TargetID = targetID.String
	job.ErrorMessage = errorMessage.String
	if nextAttemptAt.Valid {
		t := nextAttemptAt.Time
		job.NextAttemptAt = &t
	}
	if lastAttemptAt.Valid {
		t := lastAttemptAt.Time
		job.LastAttemptAt = &t
	}
	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
