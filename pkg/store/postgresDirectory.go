package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
)

// PostgresTargetStore persists configured webhook targets and the raw
// inbound-event log.
type PostgresTargetStore struct {
	Db *sql.DB
}

const targetColumns = `id, name, url, is_active, verification_token, created_at`

func (p *PostgresTargetStore) List(ctx context.Context) ([]Target, error) {
	return p.list(ctx, `SELECT `+targetColumns+` FROM configured_webhooks ORDER BY created_at ASC`)
}

func (p *PostgresTargetStore) ListActive(ctx context.Context) ([]Target, error) {
	return p.list(ctx, `SELECT `+targetColumns+` FROM configured_webhooks WHERE is_active = TRUE ORDER BY created_at ASC`)
}

func (p *PostgresTargetStore) list(ctx context.Context, query string) ([]Target, error) {
	tracer := otel.Tracer(tracerName)
	ctx, span := tracer.Start(ctx, "ListTargets")
	defer span.End()

	rows, err := p.Db.QueryContext(ctx, query)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	defer rows.Close()

	var targets []Target
	for rows.Next() {
		var target Target
		var token sql.NullString
		if err := rows.Scan(&target.ID, &target.Name, &target.URL, &target.Active, &token, &target.CreatedAt); err != nil {
			span.RecordError(err)
			return nil, err
		}
		target.VerificationToken = token.String
		targets = append(targets, target)
	}
	return targets, rows.Err()
}

func (p *PostgresTargetStore) Create(ctx context.Context, name, url, verificationToken string) (*Target, error) {
	tracer := otel.Tracer(tracerName)
	ctx, span := tracer.Start(ctx, "CreateTarget")
	defer span.End()

	target := &Target{
		ID:                uuid.NewString(),
		Name:              name,
		URL:               url,
		Active:            true,
		VerificationToken: verificationToken,
		CreatedAt:         time.Now(),
	}
	_, err := p.Db.ExecContext(ctx,
		`INSERT INTO configured_webhooks (id, name, url, is_active, verification_token, created_at)
         VALUES ($1, $2, $3, $4, $5, $6)`,
		target.ID, target.Name, target.URL, target.Active, nullString(verificationToken), target.CreatedAt)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	return target, nil
}

func (p *PostgresTargetStore) Update(ctx context.Context, id, name, url string, active bool, verificationToken string) (*Target, error) {
	tracer := otel.Tracer(tracerName)
	ctx, span := tracer.Start(ctx, "UpdateTarget")
	defer span.End()

	row := p.Db.QueryRowContext(ctx,
		`UPDATE configured_webhooks SET name=$1, url=$2, is_active=$3, verification_token=$4
         WHERE id=$5
         RETURNING `+targetColumns,
		name, url, active, nullString(verificationToken), id)

	var target Target
	var token sql.NullString
	if err := row.Scan(&target.ID, &target.Name, &target.URL, &target.Active, &token, &target.CreatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		span.RecordError(err)
		return nil, err
	}
	target.VerificationToken = token.String
	return &target, nil
}

func (p *PostgresTargetStore) Delete(ctx context.Context, id string) (bool, error) {
	tracer := otel.Tracer(tracerName)
	ctx, span := tracer.Start(ctx, "DeleteTarget")
	defer span.End()

	res, err := p.Db.ExecContext(ctx, `DELETE FROM configured_webhooks WHERE id=$1`, id)
	if err != nil {
		span.RecordError(err)
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		span.RecordError(err)
		return false, err
	}
	return affected > 0, nil
}

func (p *PostgresTargetStore) SaveReceived(ctx context.Context, payload []byte) (*ReceivedWebhook, error) {
	tracer := otel.Tracer(tracerName)
	ctx, span := tracer.Start(ctx, "SaveReceived")
	defer span.End()

	received := &ReceivedWebhook{
		ID:         uuid.NewString(),
		ReceivedAt: time.Now(),
		Payload:    payload,
	}
	_, err := p.Db.ExecContext(ctx,
		`INSERT INTO received_webhooks (id, received_at, payload) VALUES ($1, $2, $3)`,
		received.ID, received.ReceivedAt, received.Payload)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	return received, nil
}

func (p *PostgresTargetStore) RecentReceived(ctx context.Context, limit int) ([]ReceivedWebhook, error) {
	tracer := otel.Tracer(tracerName)
	ctx, span := tracer.Start(ctx, "RecentReceived")
	defer span.End()

	rows, err := p.Db.QueryContext(ctx,
		`SELECT id, received_at, payload FROM received_webhooks ORDER BY received_at DESC LIMIT $1`, limit)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	defer rows.Close()

	var received []ReceivedWebhook
	for rows.Next() {
		var r ReceivedWebhook
		if err := rows.Scan(&r.ID, &r.ReceivedAt, &r.Payload); err != nil {
			span.RecordError(err)
			return nil, err
		}
		received = append(received, r)
	}
	return received, rows.Err()
}
