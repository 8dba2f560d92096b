package store

import (
	"context"
	"database/sql"
	"fmt"

	"cloud.google.com/go/spanner"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/zoff-tech/webhook-relay/pkg/config"

	_ "github.com/lib/pq" // PostgreSQL driver
)

var NewSpannerStoresFactory = func(client *spanner.Client) (JobStore, TargetStore) {
	return &SpannerJobStore{client: client}, &SpannerTargetStore{client: client}
}

// NewStores opens the configured backend and returns the job store and the
// target directory store backed by it.
func NewStores(ctx context.Context, cfg config.DbSettings) (JobStore, TargetStore, error) {
	switch cfg.Type {
	case "postgres":
		db, err := sql.Open("postgres", cfg.DSN)
		if err != nil {
			return nil, nil, err
		}
		if err := EnsureSchema(ctx, db); err != nil {
			return nil, nil, fmt.Errorf("failed to initialize schema: %w", err)
		}
		return &PostgresJobStore{Db: db}, &PostgresTargetStore{Db: db}, nil
	case "spanner":
		client, err := spanner.NewClient(ctx, cfg.URI)
		if err != nil {
			return nil, nil, err
		}
		jobs, targets := NewSpannerStoresFactory(client)
		return jobs, targets, nil
	case "mongo":
		client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
		if err != nil {
			return nil, nil, err
		}
		return NewMongoJobStore(client, cfg.Database), NewMongoTargetStore(client, cfg.Database), nil
	default:
		return nil, nil, fmt.Errorf("unsupported DB type: %s", cfg.Type)
	}
}
