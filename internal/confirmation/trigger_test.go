package confirmation

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bifrost/internal/domain"
	"bifrost/internal/evidence"
	"bifrost/internal/logger"
	"bifrost/pkg/errors"
)

func originalBusinessMessage() *domain.Message {
	return &domain.Message{
		ID:               "orig-1",
		BusinessDomainID: "default",
		Details: &domain.MessageDetails{
			Direction:      domain.GatewayToBackend,
			Service:        domain.Service{Name: "EPO", Type: "urn:e-codex:services"},
			FromParty:      domain.Party{ID: "DE"},
			ToParty:        domain.Party{ID: "AT"},
			OriginalSender: "sender@example.de",
			FinalRecipient: "recipient@example.at",
			EbmsMessageID:  "ebms-orig@gw.eu",
		},
		Content: &domain.Content{XML: []byte("<doc/>")},
	}
}

func triggerFor(evidenceType domain.EvidenceType, refID string) *domain.Message {
	return &domain.Message{
		ID: "trigger-1",
		Details: &domain.MessageDetails{
			Direction:      domain.BackendToGateway,
			RefToMessageID: refID,
		},
		TransportedConfirmations: []*domain.MessageConfirmation{
			{EvidenceType: evidenceType},
		},
	}
}

func TestProcessTriggerRoundTrip(t *testing.T) {
	original := originalBusinessMessage()
	processor := NewTriggerProcessor(newFakeMessageStore(original), evidence.NewFactory(), logger.NopLogger())

	trigger := triggerFor(domain.EvidenceDelivery, "ebms-orig@gw.eu")
	require.NoError(t, processor.Process(context.Background(), trigger))

	d := trigger.Details
	assert.Equal(t, "DeliveryNonDeliveryToRecipient", d.Action)
	assert.Equal(t, original.Details.Service, d.Service)
	assert.Equal(t, "AT", d.FromParty.ID)
	assert.Equal(t, "DE", d.ToParty.ID)
	assert.Equal(t, "recipient@example.at", d.OriginalSender)
	assert.Equal(t, "sender@example.de", d.FinalRecipient)
	assert.Equal(t, domain.MessageID("orig-1"), d.CausedBy)
	assert.Equal(t, domain.BusinessDomainID("default"), trigger.BusinessDomainID)
	assert.NotEmpty(t, trigger.TransportedConfirmations[0].Evidence,
		"the requested evidence payload is materialized onto the trigger")
}

func TestProcessTriggerResolvesByBackendID(t *testing.T) {
	original := originalBusinessMessage()
	original.Details.BackendMessageID = "backend-orig"
	processor := NewTriggerProcessor(newFakeMessageStore(original), evidence.NewFactory(), logger.NopLogger())

	trigger := triggerFor(domain.EvidenceRetrieval, "")
	trigger.Details.RefToBackendMessageID = "backend-orig"

	require.NoError(t, processor.Process(context.Background(), trigger))
	assert.Equal(t, "RetrievalNonRetrievalToRecipient", trigger.Details.Action)
}

func TestProcessTriggerPreconditions(t *testing.T) {
	processor := NewTriggerProcessor(newFakeMessageStore(), evidence.NewFactory(), logger.NopLogger())

	tests := []struct {
		name    string
		trigger *domain.Message
	}{
		{
			name: "business message is not a trigger",
			trigger: &domain.Message{
				ID:      "msg-1",
				Details: &domain.MessageDetails{Direction: domain.BackendToGateway},
				Content: &domain.Content{XML: []byte("<doc/>")},
				TransportedConfirmations: []*domain.MessageConfirmation{
					{EvidenceType: domain.EvidenceDelivery},
				},
			},
		},
		{
			name: "no transported confirmation",
			trigger: &domain.Message{
				ID:      "msg-1",
				Details: &domain.MessageDetails{Direction: domain.BackendToGateway},
			},
		},
		{
			name:    "trigger from gateway",
			trigger: func() *domain.Message {
				trigger := triggerFor(domain.EvidenceDelivery, "ebms-orig@gw.eu")
				trigger.Details.Direction = domain.GatewayToBackend
				return trigger
			}(),
		},
		{
			name:    "no referenced message id",
			trigger: triggerFor(domain.EvidenceDelivery, ""),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := processor.Process(context.Background(), tt.trigger)
			require.Error(t, err)
			assert.True(t, errors.IsValidation(err))
		})
	}
}

func TestProcessTriggerOriginalNotFound(t *testing.T) {
	processor := NewTriggerProcessor(newFakeMessageStore(), evidence.NewFactory(), logger.NopLogger())

	trigger := triggerFor(domain.EvidenceDelivery, "unknown@gw.eu")
	err := processor.Process(context.Background(), trigger)
	require.Error(t, err)
	assert.True(t, errors.IsValidation(err))
}
