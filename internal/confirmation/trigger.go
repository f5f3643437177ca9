package confirmation

import (
	"context"

	"bifrost/internal/domain"
	"bifrost/internal/evidence"
	"bifrost/internal/logger"
	"bifrost/internal/store"
	"bifrost/pkg/errors"
)

// TriggerProcessor turns a backend-issued evidence trigger into a fully
// addressed evidence message, in place.
type TriggerProcessor struct {
	messages store.MessageStore
	factory  evidence.Factory
	logger   logger.Logger
}

func NewTriggerProcessor(messages store.MessageStore, factory evidence.Factory, log logger.Logger) *TriggerProcessor {
	return &TriggerProcessor{
		messages: messages,
		factory:  factory,
		logger:   log,
	}
}

// Process materializes the requested evidence against the original business
// message and rewrites the trigger's addressing so it can be submitted as the
// evidence message. Only the backend may issue triggers.
func (p *TriggerProcessor) Process(ctx context.Context, trigger *domain.Message) error {
	if !trigger.IsEvidenceTrigger() {
		return errors.ErrValidation.WithDetail("message",
			"message is not an evidence trigger")
	}
	if trigger.Details == nil {
		return errors.ErrValidation.WithDetail("message", "message details are required")
	}
	if trigger.Details.Direction.Source != domain.RoleBackend {
		return errors.ErrValidation.WithDetail("message",
			"evidence triggers may only originate from the backend")
	}

	original, err := p.findOriginal(ctx, trigger)
	if err != nil {
		return err
	}

	c := trigger.TransportedConfirmations[0]
	payload, err := p.factory.BuildPayload(ctx, c.EvidenceType, original)
	if err != nil {
		return err
	}
	c.Evidence = payload

	action, err := p.factory.Action(c.EvidenceType)
	if err != nil {
		return err
	}

	// The evidence answers the original message, so its addressing mirrors
	// the original's: parties and sender/recipient swap sides.
	d := trigger.Details
	o := original.Details
	d.Action = action
	d.Service = o.Service
	d.OriginalSender = o.FinalRecipient
	d.FinalRecipient = o.OriginalSender
	d.FromParty = o.ToParty
	d.ToParty = o.FromParty
	d.CausedBy = original.ID
	trigger.BusinessDomainID = original.BusinessDomainID

	p.logger.InfowCtx(ctx, "Processed evidence trigger",
		"connector_message_id", string(trigger.ID),
		"original_message_id", string(original.ID),
		"evidence_type", string(c.EvidenceType),
	)
	return nil
}

// findOriginal resolves the business message the trigger references. The
// original traveled gateway-to-backend; the trigger references it by its
// ebMS or backend message id.
func (p *TriggerProcessor) findOriginal(ctx context.Context, trigger *domain.Message) (*domain.Message, error) {
	transportID := trigger.Details.RefToMessageID
	if transportID == "" {
		transportID = trigger.Details.RefToBackendMessageID
	}
	if transportID == "" {
		return nil, errors.ErrValidation.WithDetail("message",
			"evidence trigger references no message id")
	}

	original, err := p.messages.FindByTransportIDAndDirection(ctx, transportID, domain.GatewayToBackend)
	if errors.IsNotFound(err) {
		return nil, errors.ErrValidation.
			WithCause(err).
			WithDetail("message", "referenced business message not found")
	}
	if err != nil {
		return nil, err
	}
	if original.Details == nil {
		return nil, errors.ErrValidation.WithDetail("message",
			"referenced business message carries no details")
	}
	return original, nil
}
