package confirmation

import (
	"context"

	"github.com/google/uuid"

	"bifrost/internal/config"
	"bifrost/internal/domain"
	"bifrost/internal/evidence"
	"bifrost/internal/logger"
	"bifrost/pkg/errors"
	"bifrost/pkg/metrics"
)

// Queue is the outbound link hand-off. Enqueue is fire-and-forget from the
// submitter's perspective; delivery retries live behind it.
type Queue interface {
	Enqueue(ctx context.Context, msg *domain.Message) error
}

// Submitter builds transient evidence messages and dispatches them onto the
// outbound link queue. Evidence messages are never persisted.
type Submitter struct {
	queue    Queue
	factory  evidence.Factory
	registry *config.DomainRegistry
	logger   logger.Logger
}

func NewSubmitter(queue Queue, factory evidence.Factory, registry *config.DomainRegistry, log logger.Logger) *Submitter {
	return &Submitter{
		queue:    queue,
		factory:  factory,
		registry: registry,
		logger:   log,
	}
}

// SubmitSameDirection dispatches the confirmation along the business
// message's own transport direction.
func (s *Submitter) SubmitSameDirection(ctx context.Context, id domain.MessageID, business *domain.Message, c *domain.MessageConfirmation) error {
	msg, err := s.buildEvidenceMessage(id, business, c)
	if err != nil {
		return err
	}
	return s.submit(ctx, msg, c)
}

// SubmitOppositeDirection mirrors the business message's transport direction
// before dispatch: direction, parties and sender/recipient are swapped.
func (s *Submitter) SubmitOppositeDirection(ctx context.Context, id domain.MessageID, business *domain.Message, c *domain.MessageConfirmation) error {
	msg, err := s.buildEvidenceMessage(id, business, c)
	if err != nil {
		return err
	}

	d := msg.Details
	d.Direction = d.Direction.Reversed()
	d.FromParty, d.ToParty = d.ToParty, d.FromParty
	d.OriginalSender, d.FinalRecipient = d.FinalRecipient, d.OriginalSender

	return s.submit(ctx, msg, c)
}

// ShouldReturnTriggerEvidenceToBackend reads the lane toggle deciding
// whether trigger-generated evidences are echoed back to the backend.
func (s *Submitter) ShouldReturnTriggerEvidenceToBackend(domainID domain.BusinessDomainID) (bool, error) {
	_, lane, err := s.registry.Resolve(domainID)
	if err != nil {
		return false, err
	}
	return lane.SendGeneratedEvidencesToBackend, nil
}

func (s *Submitter) buildEvidenceMessage(id domain.MessageID, business *domain.Message, c *domain.MessageConfirmation) (*domain.Message, error) {
	if business == nil || business.Details == nil {
		return nil, errors.ErrValidation.WithDetail("message",
			"business message with details is required for evidence submission")
	}
	if !business.Details.Direction.Valid() {
		return nil, errors.ErrValidation.WithDetail("message",
			"business message direction is required for evidence submission")
	}
	if c == nil {
		return nil, errors.ErrValidation.WithDetail("message", "confirmation is required")
	}

	action, err := s.factory.Action(c.EvidenceType)
	if err != nil {
		return nil, err
	}

	if id == "" {
		id = domain.MessageID(uuid.New().String())
	}

	domainID, _, err := s.registry.Resolve(business.BusinessDomainID)
	if err != nil {
		return nil, errors.ErrValidation.WithCause(err)
	}

	details := business.Details.Clone()
	details.Action = action
	details.RefToMessageID = business.Details.EbmsMessageID
	details.RefToBackendMessageID = business.Details.BackendMessageID
	details.CausedBy = business.ID

	// The evidence message travels under its own transport ids and carries
	// no confirm/reject state of its own.
	details.EbmsMessageID = ""
	details.BackendMessageID = ""
	details.ConfirmedAt = nil
	details.RejectedAt = nil

	return &domain.Message{
		ID:                       id,
		BusinessDomainID:         domainID,
		Details:                  details,
		TransportedConfirmations: []*domain.MessageConfirmation{c},
	}, nil
}

func (s *Submitter) submit(ctx context.Context, msg *domain.Message, c *domain.MessageConfirmation) error {
	if err := s.queue.Enqueue(ctx, msg); err != nil {
		return err
	}

	s.logger.InfowCtx(ctx, "Submitted evidence message",
		"connector_message_id", string(msg.ID),
		"caused_by", string(msg.Details.CausedBy),
		"evidence_type", string(c.EvidenceType),
		"direction", msg.Details.Direction.String(),
	)
	metrics.IncEvidenceMessageSubmitted(msg.Details.Direction.String(), string(c.EvidenceType))
	return nil
}
