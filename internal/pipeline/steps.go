package pipeline

import (
	"context"

	"github.com/google/uuid"

	"bifrost/internal/confirmation"
	"bifrost/internal/domain"
	"bifrost/internal/ebms"
	"bifrost/internal/pmode"
	"bifrost/internal/routing"
	"bifrost/internal/store"
)

// EbmsIDStep assigns a transport id when the lane enables generation.
func EbmsIDStep(generator *ebms.Generator) Step {
	return StepFunc("generate_ebms_id", func(ctx context.Context, msg *domain.Message) (bool, error) {
		if err := generator.Generate(ctx, msg); err != nil {
			return false, err
		}
		return true, nil
	})
}

// BackendRoutingStep resolves which backend link receives the message.
// Evidence messages are addressed by the confirmation flow, not routed.
func BackendRoutingStep(resolver *routing.Resolver) Step {
	return StepFunc("resolve_backend", func(ctx context.Context, msg *domain.Message) (bool, error) {
		if !msg.IsBusinessMessage() {
			return true, nil
		}
		if err := resolver.ResolveBackendName(ctx, msg); err != nil {
			return false, err
		}
		return true, nil
	})
}

// GatewayRoutingStep resolves which gateway link receives the message.
func GatewayRoutingStep(resolver *routing.Resolver) Step {
	return StepFunc("resolve_gateway", func(ctx context.Context, msg *domain.Message) (bool, error) {
		if !msg.IsBusinessMessage() {
			return true, nil
		}
		if err := resolver.ResolveGatewayName(ctx, msg); err != nil {
			return false, err
		}
		return true, nil
	})
}

// OutgoingVerificationStep normalizes the message against the lane's
// processing modes before it leaves towards the gateway.
func OutgoingVerificationStep(verifier *pmode.Verifier) Step {
	return StepFunc("verify_outgoing_pmodes", func(ctx context.Context, msg *domain.Message) (bool, error) {
		if !msg.IsBusinessMessage() {
			return true, nil
		}
		if err := verifier.VerifyOutgoing(ctx, msg); err != nil {
			return false, err
		}
		return true, nil
	})
}

// IncomingVerificationStep normalizes a message arriving from the gateway.
func IncomingVerificationStep(verifier *pmode.Verifier) Step {
	return StepFunc("verify_incoming_pmodes", func(ctx context.Context, msg *domain.Message) (bool, error) {
		if !msg.IsBusinessMessage() {
			return true, nil
		}
		if err := verifier.VerifyIncoming(ctx, msg); err != nil {
			return false, err
		}
		return true, nil
	})
}

// PersistStep stores a business message. Evidence messages pass through
// unpersisted.
func PersistStep(messages store.MessageStore) Step {
	return StepFunc("persist_message", func(ctx context.Context, msg *domain.Message) (bool, error) {
		if !msg.IsBusinessMessage() {
			return true, nil
		}
		if err := messages.Create(ctx, msg); err != nil {
			return false, err
		}
		return true, nil
	})
}

// ConfirmationsStep applies transported confirmations to the business
// message the carrying message references. A pure evidence message refers to
// another business message; a business message may carry piggy-backed
// confirmations about itself.
func ConfirmationsStep(engine *confirmation.Engine, messages store.MessageStore) Step {
	return StepFunc("process_confirmations", func(ctx context.Context, msg *domain.Message) (bool, error) {
		if len(msg.TransportedConfirmations) == 0 {
			return true, nil
		}

		target := msg
		if !msg.IsBusinessMessage() {
			refID := msg.Details.RefToMessageID
			if refID == "" {
				refID = msg.Details.RefToBackendMessageID
			}
			original, err := messages.FindByTransportIDAndDirection(ctx, refID, msg.Details.Direction.Reversed())
			if err != nil {
				return false, err
			}
			original.TransportedConfirmations = msg.TransportedConfirmations
			target = original
		}

		if _, err := engine.ProcessTransportedConfirmations(ctx, target); err != nil {
			return false, err
		}

		// A pure evidence message is done once its confirmations are
		// reconciled.
		return target == msg, nil
	})
}

// TriggerStep turns a backend evidence trigger into an addressed evidence
// message. Non-trigger messages pass through.
func TriggerStep(processor *confirmation.TriggerProcessor) Step {
	return StepFunc("process_evidence_trigger", func(ctx context.Context, msg *domain.Message) (bool, error) {
		if !msg.IsEvidenceTrigger() || msg.Details == nil || msg.Details.Direction.Source != domain.RoleBackend {
			return true, nil
		}
		if err := processor.Process(ctx, msg); err != nil {
			return false, err
		}
		return true, nil
	})
}

// TriggerDispatchStep enqueues a processed trigger as the evidence message
// towards the gateway and, when the lane asks for it, echoes a mirrored copy
// back to the backend. The trigger is fully handled afterwards.
func TriggerDispatchStep(queue confirmation.Queue, submitter *confirmation.Submitter) Step {
	return StepFunc("dispatch_trigger_evidence", func(ctx context.Context, msg *domain.Message) (bool, error) {
		if !msg.IsEvidenceTrigger() {
			return true, nil
		}

		if err := queue.Enqueue(ctx, msg); err != nil {
			return false, err
		}

		echo, err := submitter.ShouldReturnTriggerEvidenceToBackend(msg.BusinessDomainID)
		if err != nil {
			return false, err
		}
		if echo {
			if err := queue.Enqueue(ctx, mirroredCopy(msg)); err != nil {
				return false, err
			}
		}
		return false, nil
	})
}

// DispatchStep hands the message to the outbound link queue.
func DispatchStep(queue confirmation.Queue) Step {
	return StepFunc("dispatch", func(ctx context.Context, msg *domain.Message) (bool, error) {
		if err := queue.Enqueue(ctx, msg); err != nil {
			return false, err
		}
		return true, nil
	})
}

// mirroredCopy clones an evidence message with its transport direction,
// parties and sender/recipient reversed, under a fresh connector id.
func mirroredCopy(msg *domain.Message) *domain.Message {
	details := msg.Details.Clone()
	details.Direction = details.Direction.Reversed()
	details.FromParty, details.ToParty = details.ToParty, details.FromParty
	details.OriginalSender, details.FinalRecipient = details.FinalRecipient, details.OriginalSender

	return &domain.Message{
		ID:                       domain.MessageID(uuid.New().String()),
		BusinessDomainID:         msg.BusinessDomainID,
		Details:                  details,
		TransportedConfirmations: msg.TransportedConfirmations,
	}
}
