package store

import (
	"context"
	"time"

	"cloud.google.com/go/spanner"
	"github.com/google/uuid"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
)

// SpannerTargetStore persists configured webhook targets in Spanner.
type SpannerTargetStore struct {
	client *spanner.Client
}

func (s *SpannerTargetStore) List(ctx context.Context) ([]Target, error) {
	return s.list(ctx, `SELECT id, name, url, is_active, verification_token, created_at
                        FROM configured_webhooks ORDER BY created_at ASC`)
}

func (s *SpannerTargetStore) ListActive(ctx context.Context) ([]Target, error) {
	return s.list(ctx, `SELECT id, name, url, is_active, verification_token, created_at
                        FROM configured_webhooks WHERE is_active ORDER BY created_at ASC`)
}

func (s *SpannerTargetStore) list(ctx context.Context, sql string) ([]Target, error) {
	var targets []Target
	iter := s.client.Single().Query(ctx, spanner.Statement{SQL: sql})
	defer iter.Stop()
	for {
		row, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, err
		}
		var target Target
		var token spanner.NullString
		if err := row.Columns(&target.ID, &target.Name, &target.URL, &target.Active, &token, &target.CreatedAt); err != nil {
			return nil, err
		}
		target.VerificationToken = token.StringVal
		targets = append(targets, target)
	}
	return targets, nil
}

func (s *SpannerTargetStore) Create(ctx context.Context, name, url, verificationToken string) (*Target, error) {
	target := &Target{
		ID:                uuid.NewString(),
		Name:              name,
		URL:               url,
		Active:            true,
		VerificationToken: verificationToken,
		CreatedAt:         time.Now(),
	}
	mutation := spanner.Insert(targetsTable,
		[]string{"id", "name", "url", "is_active", "verification_token", "created_at"},
		[]interface{}{target.ID, name, url, true, spannerNullString(verificationToken), target.CreatedAt})
	if _, err := s.client.Apply(ctx, []*spanner.Mutation{mutation}); err != nil {
		return nil, err
	}
	return target, nil
}

func (s *SpannerTargetStore) Update(ctx context.Context, id, name, url string, active bool, verificationToken string) (*Target, error) {
	var target *Target
	_, err := s.client.ReadWriteTransaction(ctx, func(ctx context.Context, txn *spanner.ReadWriteTransaction) error {
		row, err := txn.ReadRow(ctx, targetsTable, spanner.Key{id}, []string{"created_at"})
		if err != nil {
			if spanner.ErrCode(err) == codes.NotFound {
				target = nil
				return nil
			}
			return err
		}
		var createdAt time.Time
		if err := row.Columns(&createdAt); err != nil {
			return err
		}
		if err := txn.BufferWrite([]*spanner.Mutation{
			spanner.Update(targetsTable,
				[]string{"id", "name", "url", "is_active", "verification_token"},
				[]interface{}{id, name, url, active, spannerNullString(verificationToken)}),
		}); err != nil {
			return err
		}
		target = &Target{ID: id, Name: name, URL: url, Active: active, VerificationToken: verificationToken, CreatedAt: createdAt}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return target, nil
}

func (s *SpannerTargetStore) Delete(ctx context.Context, id string) (bool, error) {
	deleted := false
	_, err := s.client.ReadWriteTransaction(ctx, func(ctx context.Context, txn *spanner.ReadWriteTransaction) error {
		_, err := txn.ReadRow(ctx, targetsTable, spanner.Key{id}, []string{"id"})
		if err != nil {
			if spanner.ErrCode(err) == codes.NotFound {
				return nil
			}
			return err
		}
		deleted = true
		return txn.BufferWrite([]*spanner.Mutation{spanner.Delete(targetsTable, spanner.Key{id})})
	})
	if err != nil {
		return false, err
	}
	return deleted, nil
}

func (s *SpannerTargetStore) SaveReceived(ctx context.Context, payload []byte) (*ReceivedWebhook, error) {
	received := &ReceivedWebhook{
		ID:         uuid.NewString(),
		ReceivedAt: time.Now(),
		Payload:    payload,
	}
	mutation := spanner.Insert(receivedTable,
		[]string{"id", "received_at", "payload"},
		[]interface{}{received.ID, received.ReceivedAt, payload})
	if _, err := s.client.Apply(ctx, []*spanner.Mutation{mutation}); err != nil {
		return nil, err
	}
	return received, nil
}

func (s *SpannerTargetStore) RecentReceived(ctx context.Context, limit int) ([]ReceivedWebhook, error) {
	stmt := spanner.Statement{
		SQL: `SELECT id, received_at, payload FROM received_webhooks
              ORDER BY received_at DESC LIMIT @limit`,
		Params: map[string]interface{}{"limit": int64(limit)},
	}

	var received []ReceivedWebhook
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
		var r ReceivedWebhook
		if err := row.Columns(&r.ID, &r.ReceivedAt, &r.Payload); err != nil {
			return nil, err
		}
		received = append(received, r)
	}
	return received, nil
}
