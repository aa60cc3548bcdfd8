package persistence

import (
	"context"

	"slack-connect/domain/model"
	"slack-connect/infrastructure/logger"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// DeliveryAuditRepository appends delivery events to a MongoDB collection.
// A nil client turns every call into a no-op.
type DeliveryAuditRepository struct {
	collection *mongo.Collection
}

func NewDeliveryAuditRepository(client *mongo.Client, database, collection string) *DeliveryAuditRepository {
	if client == nil {
		return &DeliveryAuditRepository{}
	}
	return &DeliveryAuditRepository{collection: client.Database(database).Collection(collection)}
}

// EnsureIndexes creates the lookup index on message_id.
func (r *DeliveryAuditRepository) EnsureIndexes(ctx context.Context) error {
	if r.collection == nil {
		return nil
	}
	_, err := r.collection.Indexes().CreateOne(ctx, mongo.IndexModel{Keys: auditIndexKeys()})
	return err
}

func auditIndexKeys() bson.D {
	return bson.D{{Key: "message_id", Value: 1}, {Key: "occurred_at", Value: -1}}
}

func messageFilter(messageID int64) bson.D {
	return bson.D{{Key: "message_id", Value: messageID}}
}

func newestFirst() bson.D {
	return bson.D{{Key: "occurred_at", Value: -1}}
}

// Notify records evt.
func (r *DeliveryAuditRepository) Notify(ctx context.Context, evt model.DeliveryEvent) error {
	if r.collection == nil {
		return nil
	}
	_, err := r.collection.InsertOne(ctx, evt)
	return err
}

// ListByMessage returns the recorded events for one message, newest first.
func (r *DeliveryAuditRepository) ListByMessage(ctx context.Context, messageID int64) ([]model.DeliveryEvent, error) {
	if r.collection == nil {
		return []model.DeliveryEvent{}, nil
	}
	opts := options.Find().SetSort(newestFirst())
	cursor, err := r.collection.Find(ctx, messageFilter(messageID), opts)
	if err != nil {
		return nil, err
	}
	defer func(cursor *mongo.Cursor, ctx context.Context) {
		if err := cursor.Close(ctx); err != nil {
			logger.GetLogger().WithField("error", err).Error("Error while closing cursor")
		}
	}(cursor, ctx)

	events := []model.DeliveryEvent{}
	for cursor.Next(ctx) {
		var evt model.DeliveryEvent
		if err := cursor.Decode(&evt); err != nil {
			logger.GetLogger().WithField("error", err).Error("Error while decoding delivery event")
			continue
		}
		events = append(events, evt)
	}
	return events, cursor.Err()
}
