package evidence

import (
	"context"
	"encoding/xml"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bifrost/internal/domain"
)

func TestActionCanonicalNames(t *testing.T) {
	factory := NewFactory()

	tests := []struct {
		evidenceType domain.EvidenceType
		action       string
	}{
		{domain.EvidenceSubmissionAcceptance, "SubmissionAcceptanceRejection"},
		{domain.EvidenceSubmissionRejection, "SubmissionAcceptanceRejection"},
		{domain.EvidenceRelayREMMDAcceptance, "RelayREMMDAcceptanceRejection"},
		{domain.EvidenceRelayREMMDFailure, "RelayREMMDFailure"},
		{domain.EvidenceDelivery, "DeliveryNonDeliveryToRecipient"},
		{domain.EvidenceNonDelivery, "DeliveryNonDeliveryToRecipient"},
		{domain.EvidenceRetrieval, "RetrievalNonRetrievalToRecipient"},
		{domain.EvidenceNonRetrieval, "RetrievalNonRetrievalToRecipient"},
	}

	for _, tt := range tests {
		t.Run(string(tt.evidenceType), func(t *testing.T) {
			action, err := factory.Action(tt.evidenceType)
			require.NoError(t, err)
			assert.Equal(t, tt.action, action)
		})
	}
}

func TestActionUnknownType(t *testing.T) {
	_, err := NewFactory().Action("BOGUS")
	require.Error(t, err)
}

func TestBuildPayload(t *testing.T) {
	factory := NewFactory()
	factory.now = func() time.Time {
		return time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	}

	msg := &domain.Message{
		ID: "msg-1",
		Details: &domain.MessageDetails{
			EbmsMessageID:    "ebms-1@gw.eu",
			BackendMessageID: "backend-1",
			ConversationID:   "conv-1",
			OriginalSender:   "sender@example.de",
			FinalRecipient:   "recipient@example.at",
		},
	}

	payload, err := factory.BuildPayload(context.Background(), domain.EvidenceDelivery, msg)
	require.NoError(t, err)

	var parsed remEvidence
	require.NoError(t, xml.Unmarshal(payload, &parsed))

	assert.Equal(t, "DELIVERY", parsed.EvidenceType)
	assert.Equal(t, "2026-03-14T09:30:00Z", parsed.IssueTime)
	assert.Equal(t, "sender@example.de", parsed.SenderDetails.Address)
	assert.Equal(t, "recipient@example.at", parsed.RecipientDetails.Address)
	assert.Equal(t, "ebms-1@gw.eu", parsed.MessageDetails.MessageIdentifier)
	assert.NotEmpty(t, parsed.EvidenceIdentifier)
}

func TestBuildPayloadRequiresDetails(t *testing.T) {
	factory := NewFactory()

	_, err := factory.BuildPayload(context.Background(), domain.EvidenceDelivery, &domain.Message{ID: "msg-1"})
	require.Error(t, err)

	_, err = factory.BuildPayload(context.Background(), "BOGUS", &domain.Message{
		ID:      "msg-1",
		Details: &domain.MessageDetails{},
	})
	require.Error(t, err)
}
