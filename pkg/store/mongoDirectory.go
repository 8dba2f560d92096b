package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoTargetStore persists configured webhook targets in Mongo.
type MongoTargetStore struct {
	client   *mongo.Client
	database string
}

func NewMongoTargetStore(client *mongo.Client, database string) *MongoTargetStore {
	return &MongoTargetStore{client: client, database: database}
}

func (m *MongoTargetStore) targets() *mongo.Collection {
	return m.client.Database(m.database).Collection(targetsTable)
}

func (m *MongoTargetStore) received() *mongo.Collection {
	return m.client.Database(m.database).Collection(receivedTable)
}

func (m *MongoTargetStore) List(ctx context.Context) ([]Target, error) {
	return m.list(ctx, bson.M{})
}

func (m *MongoTargetStore) ListActive(ctx context.Context) ([]Target, error) {
	return m.list(ctx, bson.M{"is_active": true})
}

func (m *MongoTargetStore) list(ctx context.Context, filter bson.M) ([]Target, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}})
	cursor, err := m.targets().Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var targets []Target
	for cursor.Next(ctx) {
		var target Target
		if err := cursor.Decode(&target); err != nil {
			return nil, err
		}
		targets = append(targets, target)
	}
	return targets, cursor.Err()
}

func (m *MongoTargetStore) Create(ctx context.Context, name, url, verificationToken string) (*Target, error) {
	target := &Target{
		ID:                uuid.NewString(),
		Name:              name,
		URL:               url,
		Active:            true,
		VerificationToken: verificationToken,
		CreatedAt:         time.Now(),
	}
	if _, err := m.targets().InsertOne(ctx, target); err != nil {
		return nil, err
	}
	return target, nil
}

func (m *MongoTargetStore) Update(ctx context.Context, id, name, url string, active bool, verificationToken string) (*Target, error) {
	update := bson.M{"$set": bson.M{
		"name":               name,
		"url":                url,
		"is_active":          active,
		"verification_token": verificationToken,
	}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var target Target
	err := m.targets().FindOneAndUpdate(ctx, bson.M{"_id": id}, update, opts).Decode(&target)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &target, nil
}

func (m *MongoTargetStore) Delete(ctx context.Context, id string) (bool, error) {
	res, err := m.targets().DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return false, err
	}
	return res.DeletedCount > 0, nil
}

func (m *MongoTargetStore) SaveReceived(ctx context.Context, payload []byte) (*ReceivedWebhook, error) {
	received := &ReceivedWebhook{
		ID:         uuid.NewString(),
		ReceivedAt: time.Now(),
		Payload:    payload,
	}
	if _, err := m.received().InsertOne(ctx, received); err != nil {
		return nil, err
	}
	return received, nil
}

func (m *MongoTargetStore) RecentReceived(ctx context.Context, limit int) ([]ReceivedWebhook, error) {
	opts := options.Find().
		SetLimit(int64(limit)).
		SetSort(bson.D{{Key: "received_at", Value: -1}})

	cursor, err := m.received().Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var received []ReceivedWebhook
	for cursor.Next(ctx) {
		var r ReceivedWebhook
		if err := cursor.Decode(&r); err != nil {
			return nil, err
		}
		received = append(received, r)
	}
	return received, cursor.Err()
}
