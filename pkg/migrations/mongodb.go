package migrations

import (
	"context"
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// EnsureAuditCollection creates the indexes the evidence audit trail is
// queried by. The collection itself is created lazily on first insert.
func EnsureAuditCollection(ctx context.Context, db *mongo.Database) error {
	collection := db.Collection("evidence_audit")

	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "connector_message_id", Value: 1}, {Key: "recorded_at", Value: -1}},
			Options: options.Index().SetName("idx_evidence_audit_message_recorded"),
		},
		{
			Keys:    bson.D{{Key: "business_domain_id", Value: 1}, {Key: "recorded_at", Value: -1}},
			Options: options.Index().SetName("idx_evidence_audit_domain_recorded"),
		},
		{
			Keys:    bson.D{{Key: "outcome", Value: 1}},
			Options: options.Index().SetName("idx_evidence_audit_outcome"),
		},
	}

	if _, err := collection.Indexes().CreateMany(ctx, indexes); err != nil {
		if !strings.Contains(err.Error(), "already exists") {
			return fmt.Errorf("failed to create audit indexes: %w", err)
		}
	}

	return nil
}
