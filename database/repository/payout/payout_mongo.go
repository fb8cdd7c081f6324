package payoutRepo

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

// ErrDuplicatePayout is returned when the unique leadId index rejects a
// second payout for the same lead.
var ErrDuplicatePayout = errors.New("payout already exists for lead")

// ErrStatusConflict is returned when a conditional status update matched no
// document.
var ErrStatusConflict = errors.New("payout status conflict")

// MongoPayoutRepo implements PayoutRepository using MongoDB. It holds the
// lead collection as well because approval and settlement span both
// aggregates transactionally.
type MongoPayoutRepo struct {
	coll     *mongo.Collection
	leadColl *mongo.Collection
}

// NewMongoPayoutRepo creates a new instance of PayoutRepository using MongoDB.
func NewMongoPayoutRepo() PayoutRepository {
	db := database.MongoClient.Database("fixify")
	repo := &MongoPayoutRepo{
		coll:     db.Collection("payouts"),
		leadColl: db.Collection("leads"),
	}

	if err := repo.ensureIndexes(); err != nil {
		fmt.Printf("failed to create indexes: %v\n", err)
	}
	return repo
}

// ensureIndexes creates indexes for frequently used fields in queries. The
// unique leadId index is the "at most one payout per lead" guarantee.
func (repo *MongoPayoutRepo) ensureIndexes() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	indexModels := []mongo.IndexModel{
		{Keys: bson.D{{Key: "id", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "leadId", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "status", Value: 1}, {Key: "updatedAt", Value: 1}}},
		{Keys: bson.D{{Key: "providerId", Value: 1}, {Key: "createdAt", Value: -1}}},
	}
	if _, err := repo.coll.Indexes().CreateMany(ctx, indexModels); err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}
	return nil
}

func (repo *MongoPayoutRepo) GetByID(id string) (*models.PayoutRecord, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	var payout models.PayoutRecord
	if err := repo.coll.FindOne(ctx, bson.M{"id": id}).Decode(&payout); err != nil {
		return nil, fmt.Errorf("failed to fetch payout with id %s: %w", id, err)
	}
	return &payout, nil
}

func (repo *MongoPayoutRepo) GetByLeadID(leadID string) (*models.PayoutRecord, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	var payout models.PayoutRecord
	if err := repo.coll.FindOne(ctx, bson.M{"leadId": leadID}).Decode(&payout); err != nil {
		return nil, fmt.Errorf("failed to fetch payout for lead %s: %w", leadID, err)
	}
	return &payout, nil
}

func (repo *MongoPayoutRepo) ListByStatus(status string, limit int64) ([]models.PayoutRecord, error) {
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
	return repo.findPayouts(ctx, filter, opts)
}

// MarkProcessing claims the payout for one transfer attempt. The filter
// admits pending and retryable failed records whose attempt counter is
// still below the bound, so the counter can never pass MaxAttempts.
func (repo *MongoPayoutRepo) MarkProcessing(id string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	filter := bson.M{
		"id":     id,
		"status": bson.M{"$in": []string{models.PayoutStatusPending, models.PayoutStatusFailed}},
		"$expr":  bson.M{"$lt": bson.A{"$attempts", "$maxAttempts"}},
	}
	update := bson.M{
		"$set": bson.M{"status": models.PayoutStatusProcessing, "updatedAt": time.Now().UTC()},
		"$inc": bson.M{"attempts": 1},
	}
	res, err := repo.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to mark payout %s processing: %w", id, err)
	}
	if res.MatchedCount == 0 {
		return ErrStatusConflict
	}
	return nil
}

func (repo *MongoPayoutRepo) MarkFailed(id, reason string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	filter := bson.M{"id": id, "status": models.PayoutStatusProcessing}
	update := bson.M{"$set": bson.M{
		"status":    models.PayoutStatusFailed,
		"lastError": reason,
		"updatedAt": time.Now().UTC(),
	}}
	res, err := repo.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to mark payout %s failed: %w", id, err)
	}
	if res.MatchedCount == 0 {
		return ErrStatusConflict
	}
	return nil
}

// ResetForRetry re-arms a failed payout: attempts go back to zero and the
// record becomes pending again. Used by the manual re-drive endpoint after
// the retry budget was exhausted.
func (repo *MongoPayoutRepo) ResetForRetry(id string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	filter := bson.M{"id": id, "status": models.PayoutStatusFailed}
	update := bson.M{"$set": bson.M{
		"status":    models.PayoutStatusPending,
		"attempts":  0,
		"lastError": "",
		"updatedAt": time.Now().UTC(),
	}}
	res, err := repo.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to reset payout %s: %w", id, err)
	}
	if res.MatchedCount == 0 {
		return ErrStatusConflict
	}
	return nil
}

func (repo *MongoPayoutRepo) ListStuckProcessing(olderThan time.Time, limit int64) ([]models.PayoutRecord, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if limit <= 0 {
		limit = 100
	}
	filter := bson.M{
		"status":    models.PayoutStatusProcessing,
		"updatedAt": bson.M{"$lt": olderThan},
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "updatedAt", Value: 1}}).
		SetLimit(limit)
	return repo.findPayouts(ctx, filter, opts)
}

func (repo *MongoPayoutRepo) findPayouts(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]models.PayoutRecord, error) {
	cursor, err := repo.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find payouts: %w", err)
	}
	defer cursor.Close(ctx)

	var payouts []models.PayoutRecord
	for cursor.Next(ctx) {
		var p models.PayoutRecord
		if err := cursor.Decode(&p); err != nil {
			return nil, fmt.Errorf("failed to decode payout: %w", err)
		}
		payouts = append(payouts, p)
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("cursor error: %w", err)
	}
	return payouts, nil
}
