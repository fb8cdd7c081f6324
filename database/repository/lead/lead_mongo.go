package leadRepo

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

// ErrStatusConflict is returned when a conditional status update matched no
// document: the lead does not exist or is no longer in an expected status.
var ErrStatusConflict = errors.New("lead status conflict")

// ErrRequestTaken is returned when the acceptance transaction loses the
// winner gate: another provider already claimed the service request.
var ErrRequestTaken = errors.New("service request already assigned")

// MongoLeadRepo implements LeadRepository using MongoDB. It holds the
// request collection as well because acceptance and cascade cancellation
// span both aggregates transactionally.
type MongoLeadRepo struct {
	coll        *mongo.Collection
	requestColl *mongo.Collection
}

// NewMongoLeadRepo creates a new instance of LeadRepository using MongoDB.
func NewMongoLeadRepo() LeadRepository {
	db := database.MongoClient.Database("fixify")
	repo := &MongoLeadRepo{
		coll:        db.Collection("leads"),
		requestColl: db.Collection("service_requests"),
	}

	if err := repo.ensureIndexes(); err != nil {
		fmt.Printf("failed to create indexes: %v\n", err)
	}
	return repo
}

func (repo *MongoLeadRepo) CreateMany(leads []*models.Lead) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	docs := make([]interface{}, 0, len(leads))
	for _, l := range leads {
		docs = append(docs, l)
	}
	// Ordered insert keeps rank order and stops on the first duplicate
	// (serviceRequestId, providerId) violation.
	if _, err := repo.coll.InsertMany(ctx, docs, options.InsertMany().SetOrdered(true)); err != nil {
		return fmt.Errorf("failed to create leads: %w", err)
	}
	return nil
}

func (repo *MongoLeadRepo) GetByID(id string) (*models.Lead, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	var lead models.Lead
	filter := bson.M{"id": id}
	if err := repo.coll.FindOne(ctx, filter).Decode(&lead); err != nil {
		return nil, fmt.Errorf("failed to fetch lead with id %s: %w", id, err)
	}
	return &lead, nil
}

func (repo *MongoLeadRepo) ListByRequest(requestID string) ([]models.Lead, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	filter := bson.M{"serviceRequestId": requestID}
	opts := options.Find().SetSort(bson.D{{Key: "rank", Value: 1}})
	return repo.findLeads(ctx, filter, opts)
}

func (repo *MongoLeadRepo) ListByProvider(providerID string, limit int64) ([]models.Lead, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if limit <= 0 {
		limit = 50
	}
	filter := bson.M{"providerId": providerID}
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetLimit(limit)
	return repo.findLeads(ctx, filter, opts)
}

// UpdateStatus moves a lead from one of the expected statuses to the new
// one. Extra sets (transition timestamps, decline reason, quoted price) ride
// in the same update so the document never shows a half-applied transition.
func (repo *MongoLeadRepo) UpdateStatus(id string, from []string, to string, set bson.M) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	fields := bson.M{"status": to, "updatedAt": time.Now().UTC()}
	for k, v := range set {
		fields[k] = v
	}
	filter := bson.M{"id": id, "status": bson.M{"$in": from}}
	res, err := repo.coll.UpdateOne(ctx, filter, bson.M{"$set": fields})
	if err != nil {
		return fmt.Errorf("failed to update status for lead %s: %w", id, err)
	}
	if res.MatchedCount == 0 {
		return ErrStatusConflict
	}
	return nil
}

// CountRecentByProviders aggregates lead counts per provider within the
// fairness window.
func (repo *MongoLeadRepo) CountRecentByProviders(providerIDs []string, since time.Time) (map[string]int, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{
			"providerId": bson.M{"$in": providerIDs},
			"createdAt":  bson.M{"$gte": since},
		}}},
		{{Key: "$group", Value: bson.M{
			"_id":   "$providerId",
			"count": bson.M{"$sum": 1},
		}}},
	}
	cursor, err := repo.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to count recent leads: %w", err)
	}
	defer cursor.Close(ctx)

	counts := make(map[string]int, len(providerIDs))
	for cursor.Next(ctx) {
		var row struct {
			ProviderID string `bson:"_id"`
			Count      int    `bson:"count"`
		}
		if err := cursor.Decode(&row); err != nil {
			return nil, fmt.Errorf("failed to decode recent lead count: %w", err)
		}
		counts[row.ProviderID] = row.Count
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("cursor error: %w", err)
	}
	return counts, nil
}

func (repo *MongoLeadRepo) ListStaleCreated(olderThan time.Time, limit int64) ([]models.Lead, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if limit <= 0 {
		limit = 100
	}
	filter := bson.M{
		"status":    models.LeadStatusCreated,
		"createdAt": bson.M{"$lt": olderThan},
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: 1}}).
		SetLimit(limit)
	return repo.findLeads(ctx, filter, opts)
}

func (repo *MongoLeadRepo) findLeads(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]models.Lead, error) {
	cursor, err := repo.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find leads: %w", err)
	}
	defer cursor.Close(ctx)

	var leads []models.Lead
	for cursor.Next(ctx) {
		var l models.Lead
		if err := cursor.Decode(&l); err != nil {
			return nil, fmt.Errorf("failed to decode lead: %w", err)
		}
		leads = append(leads, l)
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("cursor error: %w", err)
	}
	return leads, nil
}
