package audit

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/mongo"

	"bifrost/internal/logger"
)

const trailCollection = "evidence_audit"

// MongoTrail appends entries to a capped-growth audit collection. Writes are
// best-effort: an insert failure is logged, never propagated.
type MongoTrail struct {
	collection *mongo.Collection
	logger     logger.Logger
}

func NewMongoTrail(db *mongo.Database, log logger.Logger) *MongoTrail {
	return &MongoTrail{
		collection: db.Collection(trailCollection),
		logger:     log,
	}
}

func (t *MongoTrail) Record(ctx context.Context, entry Entry) {
	if entry.RecordedAt.IsZero() {
		entry.RecordedAt = time.Now().UTC()
	}

	insertCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if _, err := t.collection.InsertOne(insertCtx, entry); err != nil {
		t.logger.ErrorwCtx(ctx, "Failed to write audit entry",
			"connector_message_id", string(entry.MessageID),
			"outcome", entry.Outcome,
			"error", err,
		)
	}
}
