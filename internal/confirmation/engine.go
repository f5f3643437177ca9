package confirmation

import (
	"context"
	"fmt"
	"time"

	"bifrost/internal/audit"
	"bifrost/internal/config"
	"bifrost/internal/domain"
	"bifrost/internal/logger"
	"bifrost/internal/store"
	"bifrost/pkg/errors"
	"bifrost/pkg/metrics"
)

// Locker serializes evidence processing per business message across workers.
type Locker interface {
	Acquire(ctx context.Context, id domain.MessageID) (func(), error)
}

// Engine applies transported confirmations to a business message: persist,
// record into history, and move the confirm/reject state under the evidence
// priority rules.
type Engine struct {
	messages  store.MessageStore
	evidences store.EvidenceStore
	lock      Locker
	registry  *config.DomainRegistry
	trail     audit.Trail
	logger    logger.Logger
}

func NewEngine(
	messages store.MessageStore,
	evidences store.EvidenceStore,
	lock Locker,
	registry *config.DomainRegistry,
	trail audit.Trail,
	log logger.Logger,
) *Engine {
	if trail == nil {
		trail = audit.NopTrail()
	}
	return &Engine{
		messages:  messages,
		evidences: evidences,
		lock:      lock,
		registry:  registry,
		trail:     trail,
		logger:    log,
	}
}

// ProcessTransportedConfirmations applies every transported confirmation of
// the message in order. A fatal error aborts the remaining confirmations;
// ignored confirmations are reported in the results and processing
// continues.
func (e *Engine) ProcessTransportedConfirmations(ctx context.Context, msg *domain.Message) ([]Result, error) {
	if !msg.IsBusinessMessage() {
		return nil, errors.ErrValidation.WithDetail("message",
			"confirmations can only be processed against a business message")
	}
	if msg.Details == nil {
		return nil, errors.ErrValidation.WithDetail("message", "message details are required")
	}

	domainID, _, err := e.registry.Resolve(msg.BusinessDomainID)
	if err != nil {
		return nil, errors.ErrValidation.WithCause(err)
	}
	msg.BusinessDomainID = domainID

	if e.lock != nil {
		release, err := e.lock.Acquire(ctx, msg.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to serialize evidence processing for %s: %w", msg.ID, err)
		}
		defer release()
	}

	// A message looked up by transport id carries only its row. The priority
	// rules compare against everything already on file, so the history is
	// read back before any confirmation of this delivery is applied.
	history, err := e.evidences.ListByMessage(ctx, msg.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load evidence history for %s: %w", msg.ID, err)
	}
	msg.RelatedConfirmations = history

	results := make([]Result, 0, len(msg.TransportedConfirmations))
	for _, c := range msg.TransportedConfirmations {
		started := time.Now()
		result, err := e.processConfirmation(ctx, msg, c)
		if err != nil {
			return results, err
		}

		metrics.IncEvidenceProcessed(string(result.EvidenceType), string(result.Outcome))
		metrics.ObserveEvidenceProcessingDuration(time.Since(started), string(result.Outcome))
		if result.Transition != TransitionNone {
			metrics.IncMessageStateTransition(result.Transition)
		}
		e.record(ctx, msg, result)
		results = append(results, result)
	}

	msg.TransportedConfirmations = nil
	return results, nil
}

func (e *Engine) processConfirmation(ctx context.Context, msg *domain.Message, c *domain.MessageConfirmation) (Result, error) {
	if c == nil {
		return Result{}, errors.ErrValidation.WithDetail("message", "confirmation is required")
	}

	storeID, err := e.evidences.Persist(ctx, msg, c)
	if errors.IsDuplicateEvidence(err) {
		return Result{
			EvidenceType: c.EvidenceType,
			Outcome:      OutcomeIgnoredDuplicate,
			Reason:       "max occurrence for this evidence type already reached",
		}, nil
	}
	if err != nil {
		return Result{}, err
	}
	c.EvidenceStoreID = storeID

	highest := domain.HighestPriority(msg.RelatedConfirmations)
	msg.RelatedConfirmations = append(msg.RelatedConfirmations, c)

	priority := c.EvidenceType.Priority()
	if priority < highest {
		return Result{
			EvidenceType: c.EvidenceType,
			Outcome:      OutcomeIgnoredSuperseded,
			Reason:       "a higher-priority evidence is already on file",
		}, nil
	}

	switch {
	case c.EvidenceType.IsNegative():
		// An equal-priority negative never undoes a confirmation; only a
		// later lifecycle stage can.
		if msg.IsConfirmed() && priority <= highest {
			return Result{
				EvidenceType: c.EvidenceType,
				Outcome:      OutcomeIgnoredSuperseded,
				Reason:       "message already confirmed by an evidence of equal priority",
			}, nil
		}
		if err := e.messages.Reject(ctx, msg); err != nil {
			return Result{}, err
		}
		return Result{
			EvidenceType: c.EvidenceType,
			Outcome:      OutcomeRecorded,
			Transition:   TransitionRejected,
		}, nil

	case c.EvidenceType.IsPositive():
		rejected, err := e.messages.IsRejected(ctx, msg.ID)
		if err != nil {
			return Result{}, err
		}
		if rejected {
			return Result{
				EvidenceType: c.EvidenceType,
				Outcome:      OutcomeIgnoredAlreadyRejected,
				Reason:       "positive evidence arrived after rejection",
			}, nil
		}
		if err := e.messages.Confirm(ctx, msg); err != nil {
			return Result{}, err
		}
		return Result{
			EvidenceType: c.EvidenceType,
			Outcome:      OutcomeRecorded,
			Transition:   TransitionConfirmed,
		}, nil

	default:
		// Acceptance evidences update history only.
		return Result{
			EvidenceType: c.EvidenceType,
			Outcome:      OutcomeRecorded,
		}, nil
	}
}

func (e *Engine) record(ctx context.Context, msg *domain.Message, result Result) {
	if result.Outcome.Ignored() {
		e.logger.InfowCtx(ctx, "Evidence ignored",
			"connector_message_id", string(msg.ID),
			"evidence_type", string(result.EvidenceType),
			"outcome", string(result.Outcome),
			"reason", result.Reason,
		)
	} else {
		e.logger.InfowCtx(ctx, "Evidence recorded",
			"connector_message_id", string(msg.ID),
			"evidence_type", string(result.EvidenceType),
			"transition", result.Transition,
		)
	}

	e.trail.Record(ctx, audit.Entry{
		MessageID:        msg.ID,
		BusinessDomainID: msg.BusinessDomainID,
		EvidenceType:     result.EvidenceType,
		Outcome:          string(result.Outcome),
		Reason:           result.Reason,
	})
}
