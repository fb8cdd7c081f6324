package payoutRepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"fixify/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// ApproveLeadAndCreate performs the approval transaction: the lead moves
// completed -> approved and the payout record is inserted. The conditional
// lead update and the unique leadId index together make approval
// idempotent under concurrency: a second approval either fails the lead
// condition (ErrStatusConflict) or trips the index (ErrDuplicatePayout),
// and in both cases nothing is double-paid.
func (repo *MongoPayoutRepo) ApproveLeadAndCreate(ctx context.Context, payout *models.PayoutRecord) error {
	txnFn := func(sc mongo.SessionContext) error {
		now := time.Now().UTC()

		leadFilter := bson.M{"id": payout.LeadID, "status": models.LeadStatusCompleted}
		leadUpdate := bson.M{"$set": bson.M{
			"status":     models.LeadStatusApproved,
			"approvedAt": now,
			"updatedAt":  now,
		}}
		res, err := repo.leadColl.UpdateOne(sc, leadFilter, leadUpdate)
		if err != nil {
			return fmt.Errorf("lead approval update failed: %w", err)
		}
		if res.MatchedCount == 0 {
			return ErrStatusConflict
		}

		if _, err := repo.coll.InsertOne(sc, payout); err != nil {
			if mongo.IsDuplicateKeyError(err) {
				return ErrDuplicatePayout
			}
			return fmt.Errorf("payout insert failed: %w", err)
		}
		return nil
	}

	return repo.runTxn(ctx, txnFn)
}

// CompleteAndCloseLead finishes a settled payout: processing -> completed
// with the processor's transfer id, and the lead approved -> closed. A lead
// that left approved in the meantime (request-level cancellation while the
// transfer was in flight) is left alone; the money has moved either way.
func (repo *MongoPayoutRepo) CompleteAndCloseLead(ctx context.Context, payoutID, transferID string) error {
	txnFn := func(sc mongo.SessionContext) error {
		now := time.Now().UTC()

		var payout models.PayoutRecord
		if err := repo.coll.FindOne(sc, bson.M{"id": payoutID}).Decode(&payout); err != nil {
			return fmt.Errorf("fetch payout %s failed: %w", payoutID, err)
		}

		filter := bson.M{"id": payoutID, "status": models.PayoutStatusProcessing}
		update := bson.M{"$set": bson.M{
			"status":        models.PayoutStatusCompleted,
			"transferId":    transferID,
			"transferredAt": now,
			"updatedAt":     now,
		}}
		res, err := repo.coll.UpdateOne(sc, filter, update)
		if err != nil {
			return fmt.Errorf("payout completion update failed: %w", err)
		}
		if res.MatchedCount == 0 {
			return ErrStatusConflict
		}

		if _, err := repo.leadColl.UpdateOne(sc,
			bson.M{"id": payout.LeadID, "status": models.LeadStatusApproved},
			bson.M{"$set": bson.M{"status": models.LeadStatusClosed, "closedAt": now, "updatedAt": now}},
		); err != nil {
			return fmt.Errorf("lead close update failed: %w", err)
		}
		return nil
	}

	return repo.runTxn(ctx, txnFn)
}

// runTxn executes fn inside a mongo transaction, retrying a bounded number
// of times when the server labels the failure transient.
func (repo *MongoPayoutRepo) runTxn(ctx context.Context, fn func(mongo.SessionContext) error) error {
	client := repo.coll.Database().Client()
	sess, err := client.StartSession()
	if err != nil {
		return fmt.Errorf("could not start mongo session: %w", err)
	}
	defer sess.EndSession(ctx)

	for attempt := 0; attempt < 3; attempt++ {
		err = mongo.WithSession(ctx, sess, func(sc mongo.SessionContext) error {
			if err := sc.StartTransaction(); err != nil {
				return err
			}
			if err := fn(sc); err != nil {
				_ = sc.AbortTransaction(sc)
				return err
			}
			return sc.CommitTransaction(sc)
		})
		if err == nil || !isTransientTxnError(err) {
			return err
		}
	}
	return fmt.Errorf("transaction failed after retries: %w", err)
}

func isTransientTxnError(err error) bool {
	var ce mongo.CommandError
	if errors.As(err, &ce) && ce.HasErrorLabel("TransientTransactionError") {
		return true
	}
	var we mongo.WriteException
	if errors.As(err, &we) && we.HasErrorLabel("TransientTransactionError") {
		return true
	}
	return false
}
