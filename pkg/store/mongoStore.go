package store

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.opentelemetry.io/otel"
)

// MongoJobStore persists jobs in a Mongo collection.
type MongoJobStore struct {
	client   *mongo.Client
	database string
}

func NewMongoJobStore(client *mongo.Client, database string) *MongoJobStore {
	return &MongoJobStore{client: client, database: database}
}

func (m *MongoJobStore) jobs() *mongo.Collection {
	return m.client.Database(m.database).Collection(jobsTable)
}

func (m *MongoJobStore) Enqueue(ctx context.Context, queue, targetID string, payload []byte) (*Job, error) {
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
	if _, err := m.jobs().InsertOne(ctx, job); err != nil {
		return nil, err
	}
	return job, nil
}

func (m *MongoJobStore) FetchDue(ctx context.Context, queue string, batchSize int) ([]Job, error) {
	tracer := otel.Tracer(tracerName)
	ctx, span := tracer.Start(ctx, "FetchDue")
	defer span.End()

	start := time.Now()

	filter := bson.M{
		"queue":           queue,
		"status":          bson.M{"$in": []Status{StatusPending, StatusProcessing}},
		"next_attempt_at": bson.M{"$lte": time.Now()},
	}
	opts := options.Find().
		SetLimit(int64(batchSize)).
		SetSort(bson.D{{Key: "next_attempt_at", Value: 1}})

	cursor, err := m.jobs().Find(ctx, filter, opts)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	defer cursor.Close(ctx)

	var jobs []Job
	for cursor.Next(ctx) {
		var job Job
		if err := cursor.Decode(&job); err != nil {
			span.RecordError(err)
			return nil, err
		}
		jobs = append(jobs, job)
	}
	if err := cursor.Err(); err != nil {
		span.RecordError(err)
		return nil, err
	}

	// Mark the batch processing without touching next_attempt_at.
	for i := range jobs {
		if _, err := m.jobs().UpdateOne(ctx,
			bson.M{"_id": jobs[i].ID},
			bson.M{"$set": bson.M{"status": StatusProcessing}}); err != nil {
			span.RecordError(err)
			return nil, err
		}
		jobs[i].Status = StatusProcessing
	}

	addDBStatsToSpan(span, "mongodb", "FetchDue", len(jobs), time.Since(start))
	return jobs, nil
}

func (m *MongoJobStore) UpdateStatus(ctx context.Context, jobID string, status Status, attemptCount int, nextAttemptAt *time.Time, errorMessage string) error {
	tracer := otel.Tracer(tracerName)
	ctx, span := tracer.Start(ctx, "UpdateStatus")
	defer span.End()

	update := bson.M{"$set": bson.M{
		"status":          status,
		"attempt_count":   attemptCount,
		"next_attempt_at": nextAttemptAt,
		"last_attempt_at": time.Now(),
		"error_message":   errorMessage,
	}}
	res, err := m.jobs().UpdateOne(ctx, bson.M{"_id": jobID}, update)
	if err != nil {
		span.RecordError(err)
		return err
	}
	if res.MatchedCount == 0 {
		// A deleted job is treated as already resolved.
		log.Printf("Job %s no longer exists, skipping status update", jobID)
	}
	return nil
}

func (m *MongoJobStore) CountsByStatus(ctx context.Context, queue string) (map[Status]int64, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"queue": queue}}},
		{{Key: "$group", Value: bson.M{"_id": "$status", "count": bson.M{"$sum": 1}}}},
	}
	cursor, err := m.jobs().Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	counts := make(map[Status]int64)
	for cursor.Next(ctx) {
		var group struct {
			Status Status `bson:"_id"`
			Count  int64  `bson:"count"`
		}
		if err := cursor.Decode(&group); err != nil {
			return nil, err
		}
		counts[group.Status] = group.Count
	}
	return counts, cursor.Err()
}

func (m *MongoJobStore) Recent(ctx context.Context, queue string, limit int, status Status) ([]Job, error) {
	filter := bson.M{"queue": queue}
	if status != "" {
		filter["status"] = status
	}
	opts := options.Find().
		SetLimit(int64(limit)).
		SetSort(bson.D{{Key: "created_at", Value: -1}})

	cursor, err := m.jobs().Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var jobs []Job
	for cursor.Next(ctx) {
		var job Job
		if err := cursor.Decode(&job); err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, cursor.Err()
}
