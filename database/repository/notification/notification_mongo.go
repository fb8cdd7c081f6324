package notificationRepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"fixify/database"
	"fixify/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ErrNotFound is returned when a ledger update matched no record.
var ErrNotFound = errors.New("notification record not found")

// MongoNotificationRepo implements NotificationRepository using MongoDB.
type MongoNotificationRepo struct {
	coll *mongo.Collection
}

// NewMongoNotificationRepo creates a new instance of NotificationRepository using MongoDB.
func NewMongoNotificationRepo() NotificationRepository {
	coll := database.MongoClient.Database("fixify").Collection("notifications")
	repo := &MongoNotificationRepo{coll: coll}

	if err := repo.ensureIndexes(); err != nil {
		fmt.Printf("failed to create indexes: %v\n", err)
	}
	return repo
}

// ensureIndexes creates indexes for fields frequently used in queries.
func (r *MongoNotificationRepo) ensureIndexes() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	indexModels := []mongo.IndexModel{
		{Keys: bson.D{{Key: "id", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "status", Value: 1}, {Key: "createdAt", Value: 1}}},
		{Keys: bson.D{{Key: "recipient.id", Value: 1}, {Key: "createdAt", Value: -1}}},
	}
	if _, err := r.coll.Indexes().CreateMany(ctx, indexModels); err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}
	return nil
}

func (r *MongoNotificationRepo) Create(rec *models.NotificationRecord) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := r.coll.InsertOne(ctx, rec); err != nil {
		return fmt.Errorf("failed to create notification record: %w", err)
	}
	return nil
}

func (r *MongoNotificationRepo) GetByID(id string) (*models.NotificationRecord, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	var rec models.NotificationRecord
	if err := r.coll.FindOne(ctx, bson.M{"id": id}).Decode(&rec); err != nil {
		return nil, fmt.Errorf("failed to fetch notification %s: %w", id, err)
	}
	return &rec, nil
}

func (r *MongoNotificationRepo) ListByStatus(status string, limit int64) ([]models.NotificationRecord, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if limit <= 0 {
		limit = 100
	}
	filter := bson.M{}
	if status != "" {
		filter["status"] = status
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetLimit(limit)
	return r.findRecords(ctx, filter, opts)
}

// RecordSuccess appends the winning attempt and closes out the record.
func (r *MongoNotificationRepo) RecordSuccess(id string, attempt models.DeliveryAttempt) error {
	now := time.Now().UTC()
	update := bson.M{
		"$push": bson.M{"attempts": attempt},
		"$set": bson.M{
			"status":    models.NotificationStatusSent,
			"sentAt":    now,
			"lastError": "",
			"updatedAt": now,
		},
	}
	return r.applyLedgerUpdate(id, update)
}

// RecordRetry appends a failed attempt and schedules-side bookkeeping: the
// retry counter increments exactly when a retry is owed.
func (r *MongoNotificationRepo) RecordRetry(id string, attempt models.DeliveryAttempt) error {
	update := bson.M{
		"$push": bson.M{"attempts": attempt},
		"$inc":  bson.M{"retryCount": 1},
		"$set": bson.M{
			"status":    models.NotificationStatusRetrying,
			"lastError": attempt.Error,
			"updatedAt": time.Now().UTC(),
		},
	}
	return r.applyLedgerUpdate(id, update)
}

// RecordFailure appends the final attempt after the retry budget ran out.
func (r *MongoNotificationRepo) RecordFailure(id string, attempt models.DeliveryAttempt) error {
	update := bson.M{
		"$push": bson.M{"attempts": attempt},
		"$set": bson.M{
			"status":    models.NotificationStatusFailed,
			"lastError": attempt.Error,
			"updatedAt": time.Now().UTC(),
		},
	}
	return r.applyLedgerUpdate(id, update)
}

func (r *MongoNotificationRepo) applyLedgerUpdate(id string, update bson.M) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	res, err := r.coll.UpdateOne(ctx, bson.M{"id": id}, update)
	if err != nil {
		return fmt.Errorf("failed to update notification %s: %w", id, err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *MongoNotificationRepo) ListStalePending(olderThan time.Time, limit int64) ([]models.NotificationRecord, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if limit <= 0 {
		limit = 100
	}
	filter := bson.M{
		"status":    models.NotificationStatusPending,
		"createdAt": bson.M{"$lt": olderThan},
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: 1}}).
		SetLimit(limit)
	return r.findRecords(ctx, filter, opts)
}

func (r *MongoNotificationRepo) findRecords(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]models.NotificationRecord, error) {
	cursor, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find notifications: %w", err)
	}
	defer cursor.Close(ctx)

	var recs []models.NotificationRecord
	for cursor.Next(ctx) {
		var rec models.NotificationRecord
		if err := cursor.Decode(&rec); err != nil {
			return nil, fmt.Errorf("failed to decode notification: %w", err)
		}
		recs = append(recs, rec)
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("cursor error: %w", err)
	}
	return recs, nil
}
