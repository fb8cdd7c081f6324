package leadRepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"fixify/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// preResponseStatuses are the lead states a sibling can be cancelled from
// when another provider wins the request.
var preResponseStatuses = []string{
	models.LeadStatusCreated,
	models.LeadStatusNotified,
	models.LeadStatusViewed,
}

// AcceptExclusively claims the service request for one provider. The
// conditional update on the request document is the winner gate: of any
// number of concurrent acceptances, exactly one matches `status: matched`
// and flips it to `assigned`; every other transaction reports
// ErrRequestTaken. The winning lead then moves viewed -> accepted and all
// pre-response siblings are cancelled, all inside one transaction.
func (repo *MongoLeadRepo) AcceptExclusively(ctx context.Context, requestID string, params AcceptParams) ([]models.Lead, error) {
	var cancelled []models.Lead

	txnFn := func(sc mongo.SessionContext) error {
		cancelled = cancelled[:0]
		now := time.Now().UTC()

		var lead models.Lead
		if err := repo.coll.FindOne(sc, bson.M{"id": params.LeadID}).Decode(&lead); err != nil {
			return fmt.Errorf("fetch lead %s failed: %w", params.LeadID, err)
		}
		if lead.ServiceRequestID != requestID {
			return fmt.Errorf("lead %s does not belong to request %s", params.LeadID, requestID)
		}

		if params.Exclusive {
			gate := bson.M{"id": requestID, "status": models.RequestStatusMatched}
			res, err := repo.requestColl.UpdateOne(sc, gate, bson.M{"$set": bson.M{
				"status":             models.RequestStatusAssigned,
				"assignedProviderId": lead.ProviderID,
				"assignedLeadId":     lead.ID,
				"updatedAt":          now,
			}})
			if err != nil {
				return fmt.Errorf("winner gate update failed: %w", err)
			}
			if res.MatchedCount == 0 {
				return ErrRequestTaken
			}
		} else {
			// Multi-acceptance policy: no gate, last acceptance simply
			// refreshes the assignment fields.
			_, err := repo.requestColl.UpdateOne(sc,
				bson.M{"id": requestID, "status": bson.M{"$in": []string{models.RequestStatusMatched, models.RequestStatusAssigned}}},
				bson.M{"$set": bson.M{
					"status":             models.RequestStatusAssigned,
					"assignedProviderId": lead.ProviderID,
					"assignedLeadId":     lead.ID,
					"updatedAt":          now,
				}})
			if err != nil {
				return fmt.Errorf("request assignment update failed: %w", err)
			}
		}

		ownFilter := bson.M{"id": lead.ID, "status": models.LeadStatusViewed}
		ownUpdate := bson.M{"$set": bson.M{
			"status":           models.LeadStatusAccepted,
			"quotedPriceCents": params.QuotedPriceCents,
			"paymentIntentRef": params.PaymentIntentRef,
			"respondedAt":      now,
			"updatedAt":        now,
		}}
		res, err := repo.coll.UpdateOne(sc, ownFilter, ownUpdate)
		if err != nil {
			return fmt.Errorf("accept update failed: %w", err)
		}
		if res.MatchedCount == 0 {
			return ErrStatusConflict
		}

		if params.Exclusive {
			sibFilter := bson.M{
				"serviceRequestId": requestID,
				"id":               bson.M{"$ne": lead.ID},
				"status":           bson.M{"$in": preResponseStatuses},
			}
			cursor, err := repo.coll.Find(sc, sibFilter)
			if err != nil {
				return fmt.Errorf("sibling lookup failed: %w", err)
			}
			if err := cursor.All(sc, &cancelled); err != nil {
				return fmt.Errorf("sibling decode failed: %w", err)
			}
			if len(cancelled) > 0 {
				if _, err := repo.coll.UpdateMany(sc, sibFilter, bson.M{"$set": bson.M{
					"status":      models.LeadStatusCancelled,
					"cancelledAt": now,
					"updatedAt":   now,
				}}); err != nil {
					return fmt.Errorf("sibling cancellation failed: %w", err)
				}
			}
		}
		return nil
	}

	if err := repo.runTxn(ctx, txnFn); err != nil {
		return nil, err
	}
	return cancelled, nil
}

// CancelRequestCascade cancels a service request and every lead of it that
// has not reached a terminal state, atomically.
func (repo *MongoLeadRepo) CancelRequestCascade(ctx context.Context, requestID string) ([]models.Lead, error) {
	var cancelled []models.Lead

	cancellable := []string{
		models.LeadStatusCreated,
		models.LeadStatusNotified,
		models.LeadStatusViewed,
		models.LeadStatusAccepted,
		models.LeadStatusInProgress,
		models.LeadStatusCompleted,
		models.LeadStatusApproved,
	}
	requestFrom := []string{
		models.RequestStatusOpen,
		models.RequestStatusMatched,
		models.RequestStatusUnassigned,
		models.RequestStatusAssigned,
	}

	txnFn := func(sc mongo.SessionContext) error {
		cancelled = cancelled[:0]
		now := time.Now().UTC()

		res, err := repo.requestColl.UpdateOne(sc,
			bson.M{"id": requestID, "status": bson.M{"$in": requestFrom}},
			bson.M{"$set": bson.M{"status": models.RequestStatusCancelled, "updatedAt": now}})
		if err != nil {
			return fmt.Errorf("request cancellation failed: %w", err)
		}
		if res.MatchedCount == 0 {
			return ErrStatusConflict
		}

		filter := bson.M{
			"serviceRequestId": requestID,
			"status":           bson.M{"$in": cancellable},
		}
		cursor, err := repo.coll.Find(sc, filter)
		if err != nil {
			return fmt.Errorf("lead lookup failed: %w", err)
		}
		if err := cursor.All(sc, &cancelled); err != nil {
			return fmt.Errorf("lead decode failed: %w", err)
		}
		if len(cancelled) > 0 {
			if _, err := repo.coll.UpdateMany(sc, filter, bson.M{"$set": bson.M{
				"status":      models.LeadStatusCancelled,
				"cancelledAt": now,
				"updatedAt":   now,
			}}); err != nil {
				return fmt.Errorf("lead cancellation failed: %w", err)
			}
		}
		return nil
	}

	if err := repo.runTxn(ctx, txnFn); err != nil {
		return nil, err
	}
	return cancelled, nil
}

// runTxn executes fn inside a mongo transaction, retrying a bounded number
// of times when the server labels the failure transient (two concurrent
// acceptances touching the same request document produce a write conflict;
// the retry lets the loser re-run and hit the winner gate cleanly).
func (repo *MongoLeadRepo) runTxn(ctx context.Context, fn func(mongo.SessionContext) error) error {
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
