package integration

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"

	"bifrost/internal/audit"
	"bifrost/pkg/migrations"
)

func TestMongoTrailRecordsEntries(t *testing.T) {
	infra := SetupTestInfraWithOptions(t, false, true, false)
	ctx := context.Background()

	require.NoError(t, migrations.EnsureAuditCollection(ctx, infra.MongoDB))
	trail := audit.NewMongoTrail(infra.MongoDB, createTestLogger())

	trail.Record(ctx, audit.Entry{
		MessageID:        "msg-audit-1",
		BusinessDomainID: "default",
		EvidenceType:     "DELIVERY",
		Outcome:          "RECORDED",
	})

	var entry audit.Entry
	err := infra.MongoDB.Collection("evidence_audit").
		FindOne(ctx, bson.M{"connector_message_id": "msg-audit-1"}).
		Decode(&entry)
	require.NoError(t, err)
	assert.Equal(t, "RECORDED", entry.Outcome)
	assert.False(t, entry.RecordedAt.IsZero(), "a missing timestamp is filled on write")
}
