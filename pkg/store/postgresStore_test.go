package store

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
)

func TestEnqueue(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	repo := &PostgresJobStore{Db: db}

	mock.ExpectExec(`INSERT INTO relay_jobs \(id, queue, target_id, payload, status, attempt_count, next_attempt_at, created_at\)`).
		WithArgs(sqlmock.AnyArg(), "webhook", nullString("target-1"), []byte(`{"entry":[]}`), StatusPending, 0, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	ctx := context.Background()
	job, err := repo.Enqueue(ctx, "webhook", "target-1", []byte(`{"entry":[]}`))
	assert.NoError(t, err)
	assert.NotEmpty(t, job.ID)
	assert.Equal(t, "webhook", job.Queue)
	assert.Equal(t, "target-1", job.TargetID)
	assert.Equal(t, StatusPending, job.Status)
	assert.Equal(t, 0, job.AttemptCount)
	assert.NotNil(t, job.NextAttemptAt)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFetchDue(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	repo := &PostgresJobStore{Db: db}

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "queue", "target_id", "payload", "status", "attempt_count", "next_attempt_at", "last_attempt_at", "error_message", "created_at"}).
		AddRow("job-1", "webhook", "target-1", []byte("payload1"), StatusPending, 0, now, nil, nil, now).
		AddRow("job-2", "webhook", "target-2", []byte("payload2"), StatusProcessing, 3, now, now, "connection refused", now)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT id, queue, target_id, payload, status, attempt_count, next_attempt_at, last_attempt_at, error_message, created_at FROM relay_jobs`).
		WithArgs("webhook", sqlmock.AnyArg(), 10).
		WillReturnRows(rows)
	mock.ExpectExec(`UPDATE relay_jobs SET status=\$1 WHERE id=\$2`).
		WithArgs(StatusProcessing, "job-1").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(`UPDATE relay_jobs SET status=\$1 WHERE id=\$2`).
		WithArgs(StatusProcessing, "job-2").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	ctx := context.Background()
	jobs, err := repo.FetchDue(ctx, "webhook", 10)
	assert.NoError(t, err)
	assert.Len(t, jobs, 2)
	assert.Equal(t, "job-1", jobs[0].ID)
	assert.Equal(t, "target-1", jobs[0].TargetID)
	assert.Equal(t, []byte("payload1"), jobs[0].Payload)
	assert.Equal(t, StatusProcessing, jobs[0].Status)
	assert.Equal(t, 0, jobs[0].AttemptCount)
	assert.Nil(t, jobs[0].LastAttemptAt)
	assert.Empty(t, jobs[0].ErrorMessage)
	assert.Equal(t, "job-2", jobs[1].ID)
	assert.Equal(t, 3, jobs[1].AttemptCount)
	assert.Equal(t, "connection refused", jobs[1].ErrorMessage)
	assert.NotNil(t, jobs[1].LastAttemptAt)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFetchDue_Empty(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	repo := &PostgresJobStore{Db: db}

	rows := sqlmock.NewRows([]string{"id", "queue", "target_id", "payload", "status", "attempt_count", "next_attempt_at", "last_attempt_at", "error_message", "created_at"})

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT id, queue, target_id, payload, status, attempt_count, next_attempt_at, last_attempt_at, error_message, created_at FROM relay_jobs`).
		WithArgs("chatwoot", sqlmock.AnyArg(), 10).
		WillReturnRows(rows)
	mock.ExpectCommit()

	ctx := context.Background()
	jobs, err := repo.FetchDue(ctx, "chatwoot", 10)
	assert.NoError(t, err)
	assert.Empty(t, jobs)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateStatus_Retry(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	repo := &PostgresJobStore{Db: db}

	next := time.Now().Add(10 * time.Minute)
	mock.ExpectExec(`UPDATE relay_jobs`).
		WithArgs(StatusPending, 5, &next, sqlmock.AnyArg(), nullString("timeout"), "job-1").
		WillReturnResult(sqlmock.NewResult(1, 1))

	ctx := context.Background()
	err = repo.UpdateStatus(ctx, "job-1", StatusPending, 5, &next, "timeout")
	assert.NoError(t, err)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateStatus_Success(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	repo := &PostgresJobStore{Db: db}

	mock.ExpectExec(`UPDATE relay_jobs`).
		WithArgs(StatusSuccess, 1, nil, sqlmock.AnyArg(), nullString(""), "job-1").
		WillReturnResult(sqlmock.NewResult(1, 1))

	ctx := context.Background()
	err = repo.UpdateStatus(ctx, "job-1", StatusSuccess, 1, nil, "")
	assert.NoError(t, err)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateStatus_MissingJob(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	repo := &PostgresJobStore{Db: db}

	mock.ExpectExec(`UPDATE relay_jobs`).
		WithArgs(StatusSuccess, 1, nil, sqlmock.AnyArg(), nullString(""), "long-gone").
		WillReturnResult(sqlmock.NewResult(0, 0))

	ctx := context.Background()
	err = repo.UpdateStatus(ctx, "long-gone", StatusSuccess, 1, nil, "")
	assert.NoError(t, err)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCountsByStatus(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	repo := &PostgresJobStore{Db: db}

	rows := sqlmock.NewRows([]string{"status", "count"}).
		AddRow("pending", 4).
		AddRow("success", 17).
		AddRow("failed", 2)

	mock.ExpectQuery(`SELECT status, COUNT\(\*\) FROM relay_jobs WHERE queue = \$1 GROUP BY status`).
		WithArgs("webhook").
		WillReturnRows(rows)

	ctx := context.Background()
	counts, err := repo.CountsByStatus(ctx, "webhook")
	assert.NoError(t, err)
	assert.Equal(t, int64(4), counts[StatusPending])
	assert.Equal(t, int64(17), counts[StatusSuccess])
	assert.Equal(t, int64(2), counts[StatusFailed])

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecent(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	repo := &PostgresJobStore{Db: db}

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "queue", "target_id", "payload", "status", "attempt_count", "next_attempt_at", "last_attempt_at", "error_message", "created_at"}).
		AddRow("job-9", "chatwoot", nil, []byte("{}"), StatusSuccess, 1, nil, now, nil, now)

	mock.ExpectQuery(`SELECT id, queue, target_id, payload, status, attempt_count, next_attempt_at, last_attempt_at, error_message, created_at FROM relay_jobs WHERE queue = \$1 ORDER BY created_at DESC LIMIT \$2`).
		WithArgs("chatwoot", 20).
		WillReturnRows(rows)

	ctx := context.Background()
	jobs, err := repo.Recent(ctx, "chatwoot", 20, "")
	assert.NoError(t, err)
	assert.Len(t, jobs, 1)
	assert.Equal(t, "job-9", jobs[0].ID)
	assert.Empty(t, jobs[0].TargetID)
	assert.Nil(t, jobs[0].NextAttemptAt)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecent_FilteredByStatus(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	repo := &PostgresJobStore{Db: db}

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "queue", "target_id", "payload", "status", "attempt_count", "next_attempt_at", "last_attempt_at", "error_message", "created_at"}).
		AddRow("job-3", "webhook", "target-1", []byte("{}"), StatusFailed, 8, now, now, "non-success status code: 500", now)

	mock.ExpectQuery(`SELECT id, queue, target_id, payload, status, attempt_count, next_attempt_at, last_attempt_at, error_message, created_at FROM relay_jobs WHERE queue = \$1 AND status = \$2 ORDER BY created_at DESC LIMIT \$3`).
		WithArgs("webhook", StatusFailed, 10).
		WillReturnRows(rows)

	ctx := context.Background()
	jobs, err := repo.Recent(ctx, "webhook", 10, StatusFailed)
	assert.NoError(t, err)
	assert.Len(t, jobs, 1)
	assert.Equal(t, StatusFailed, jobs[0].Status)
	assert.Equal(t, 8, jobs[0].AttemptCount)

	assert.NoError(t, mock.ExpectationsWereMet())
}
