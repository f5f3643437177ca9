package confirmation

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bifrost/internal/config"
	"bifrost/internal/domain"
	"bifrost/internal/evidence"
	"bifrost/internal/logger"
	"bifrost/pkg/errors"
)

type fakeQueue struct {
	enqueued []*domain.Message
	err      error
}

func (q *fakeQueue) Enqueue(_ context.Context, msg *domain.Message) error {
	if q.err != nil {
		return q.err
	}
	q.enqueued = append(q.enqueued, msg)
	return nil
}

func newTestSubmitter(t *testing.T, queue *fakeQueue, lane config.DomainConfig) *Submitter {
	t.Helper()
	registry, err := config.NewDomainRegistry(&config.Config{
		DefaultDomain: "default",
		Domains:       map[string]config.DomainConfig{"default": lane},
	})
	require.NoError(t, err)
	return NewSubmitter(queue, evidence.NewFactory(), registry, logger.NopLogger())
}

func submittableBusinessMessage() *domain.Message {
	return &domain.Message{
		ID:               "msg-1",
		BusinessDomainID: "default",
		Details: &domain.MessageDetails{
			Direction:      domain.BackendToGateway,
			Service:        domain.Service{Name: "EPO"},
			FromParty:      domain.Party{ID: "DE"},
			ToParty:        domain.Party{ID: "AT"},
			OriginalSender: "sender@example.de",
			FinalRecipient: "recipient@example.at",
			EbmsMessageID:  "ebms-1@gw.eu",
			BackendMessageID: "backend-1",
		},
		Content: &domain.Content{XML: []byte("<doc/>")},
	}
}

func TestSubmitSameDirection(t *testing.T) {
	queue := &fakeQueue{}
	submitter := newTestSubmitter(t, queue, config.DomainConfig{})

	business := submittableBusinessMessage()
	c := &domain.MessageConfirmation{EvidenceType: domain.EvidenceDelivery, Evidence: []byte("<rem/>")}

	require.NoError(t, submitter.SubmitSameDirection(context.Background(), "ev-1", business, c))

	require.Len(t, queue.enqueued, 1)
	sent := queue.enqueued[0]

	assert.Equal(t, domain.MessageID("ev-1"), sent.ID)
	assert.Equal(t, domain.BackendToGateway, sent.Details.Direction)
	assert.Equal(t, "DE", sent.Details.FromParty.ID)
	assert.Equal(t, "AT", sent.Details.ToParty.ID)
	assert.Equal(t, "sender@example.de", sent.Details.OriginalSender)
	assert.Equal(t, "recipient@example.at", sent.Details.FinalRecipient)
	assert.Equal(t, "DeliveryNonDeliveryToRecipient", sent.Details.Action)
	assert.Equal(t, "ebms-1@gw.eu", sent.Details.RefToMessageID)
	assert.Equal(t, "backend-1", sent.Details.RefToBackendMessageID)
	assert.Equal(t, domain.MessageID("msg-1"), sent.Details.CausedBy)
	assert.Empty(t, sent.Details.EbmsMessageID, "the evidence message travels under its own ids")
	require.Len(t, sent.TransportedConfirmations, 1)
	assert.Same(t, c, sent.TransportedConfirmations[0])
	assert.Nil(t, sent.Content, "evidence messages carry no business content")
}

func TestSubmitOppositeDirectionSwaps(t *testing.T) {
	queue := &fakeQueue{}
	submitter := newTestSubmitter(t, queue, config.DomainConfig{})

	business := submittableBusinessMessage()
	c := &domain.MessageConfirmation{EvidenceType: domain.EvidenceDelivery}

	require.NoError(t, submitter.SubmitOppositeDirection(context.Background(), "ev-1", business, c))

	require.Len(t, queue.enqueued, 1)
	sent := queue.enqueued[0]

	assert.Equal(t, domain.GatewayToBackend, sent.Details.Direction)
	assert.Equal(t, "AT", sent.Details.FromParty.ID)
	assert.Equal(t, "DE", sent.Details.ToParty.ID)
	assert.Equal(t, "recipient@example.at", sent.Details.OriginalSender)
	assert.Equal(t, "sender@example.de", sent.Details.FinalRecipient)

	// The source message is left untouched.
	assert.Equal(t, domain.BackendToGateway, business.Details.Direction)
	assert.Equal(t, "DE", business.Details.FromParty.ID)
}

func TestSubmitGeneratesMessageID(t *testing.T) {
	queue := &fakeQueue{}
	submitter := newTestSubmitter(t, queue, config.DomainConfig{})

	c := &domain.MessageConfirmation{EvidenceType: domain.EvidenceSubmissionAcceptance}
	require.NoError(t, submitter.SubmitSameDirection(context.Background(), "", submittableBusinessMessage(), c))

	require.Len(t, queue.enqueued, 1)
	assert.NotEmpty(t, queue.enqueued[0].ID)
}

func TestSubmitFallsBackToDefaultLane(t *testing.T) {
	queue := &fakeQueue{}
	submitter := newTestSubmitter(t, queue, config.DomainConfig{})

	business := submittableBusinessMessage()
	business.BusinessDomainID = ""
	c := &domain.MessageConfirmation{EvidenceType: domain.EvidenceDelivery}

	require.NoError(t, submitter.SubmitSameDirection(context.Background(), "ev-1", business, c))
	assert.Equal(t, domain.BusinessDomainID("default"), queue.enqueued[0].BusinessDomainID)
}

func TestSubmitPreconditions(t *testing.T) {
	submitter := newTestSubmitter(t, &fakeQueue{}, config.DomainConfig{})
	c := &domain.MessageConfirmation{EvidenceType: domain.EvidenceDelivery}

	tests := []struct {
		name     string
		business *domain.Message
	}{
		{name: "nil message", business: nil},
		{name: "nil details", business: &domain.Message{ID: "msg-1"}},
		{
			name: "missing direction",
			business: &domain.Message{
				ID:      "msg-1",
				Details: &domain.MessageDetails{},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := submitter.SubmitSameDirection(context.Background(), "ev-1", tt.business, c)
			require.Error(t, err)
			assert.True(t, errors.IsValidation(err))
		})
	}
}

func TestShouldReturnTriggerEvidenceToBackend(t *testing.T) {
	submitter := newTestSubmitter(t, &fakeQueue{}, config.DomainConfig{
		SendGeneratedEvidencesToBackend: true,
	})

	enabled, err := submitter.ShouldReturnTriggerEvidenceToBackend("default")
	require.NoError(t, err)
	assert.True(t, enabled)

	enabled, err = submitter.ShouldReturnTriggerEvidenceToBackend("")
	require.NoError(t, err)
	assert.True(t, enabled, "empty lane falls back to the default lane")
}
