package routing

import (
	"context"

	"bifrost/internal/config"
	"bifrost/internal/domain"
	"bifrost/internal/logger"
	"bifrost/pkg/errors"
	"bifrost/pkg/metrics"
)

// ConversationLookup finds earlier business messages of a conversation so
// routing can pin later messages to the link the conversation started on.
type ConversationLookup interface {
	FindByConversationID(ctx context.Context, domainID domain.BusinessDomainID, conversationID string) ([]*domain.Message, error)
}

// Resolver assigns backend and gateway link names to messages. Resolution
// order for the backend name: already set, conversation pinning, routing
// rules, lane default.
type Resolver struct {
	messages ConversationLookup
	rules    *RuleStore
	registry *config.DomainRegistry
	logger   logger.Logger
}

func NewResolver(messages ConversationLookup, rules *RuleStore, registry *config.DomainRegistry, log logger.Logger) *Resolver {
	return &Resolver{
		messages: messages,
		rules:    rules,
		registry: registry,
		logger:   log,
	}
}

// ResolveBackendName decides which backend link receives the message and
// writes it to the message details. A name that is already present is never
// overwritten.
func (r *Resolver) ResolveBackendName(ctx context.Context, msg *domain.Message) error {
	if msg == nil || msg.Details == nil {
		return errors.ErrValidation.WithDetail("message", "message details are required for routing")
	}

	domainID, lane, err := r.registry.Resolve(msg.BusinessDomainID)
	if err != nil {
		return errors.ErrValidation.WithCause(err)
	}
	msg.BusinessDomainID = domainID

	if msg.Details.BackendName != "" {
		r.logger.DebugwCtx(ctx, "Backend name already set, skipping routing",
			"backend_name", msg.Details.BackendName,
		)
		metrics.IncMessagesRouted(string(domainID), "preset", msg.Details.BackendName)
		return nil
	}

	if name, ok, err := r.conversationBackend(ctx, domainID, msg.Details.ConversationID); err != nil {
		return err
	} else if ok {
		msg.Details.BackendName = name
		r.logger.InfowCtx(ctx, "Routed message to backend of existing conversation",
			"backend_name", name,
			"conversation_id", msg.Details.ConversationID,
		)
		metrics.IncMessagesRouted(string(domainID), "conversation", name)
		return nil
	}

	if lane.BackendRoutingEnabled {
		for _, rule := range r.rules.RulesFor(domainID) {
			matched, err := r.rules.Evaluator().Matches(ctx, rule.program, msg.Details)
			if err != nil {
				r.logger.ErrorwCtx(ctx, "Routing rule evaluation failed",
					"rule_id", rule.ID,
					"error", err,
				)
				continue
			}
			if matched {
				msg.Details.BackendName = rule.LinkName
				r.logger.InfowCtx(ctx, "Routed message by routing rule",
					"rule_id", rule.ID,
					"backend_name", rule.LinkName,
				)
				metrics.IncMessagesRouted(string(domainID), "rule", rule.LinkName)
				return nil
			}
		}
	}

	if lane.DefaultBackendName == "" {
		return errors.ErrValidation.WithDetail("message",
			"no routing rule matched and the business domain has no default backend")
	}

	msg.Details.BackendName = lane.DefaultBackendName
	r.logger.DebugwCtx(ctx, "Routed message to default backend",
		"backend_name", lane.DefaultBackendName,
	)
	metrics.IncMessagesRouted(string(domainID), "default", lane.DefaultBackendName)
	return nil
}

// ResolveGatewayName assigns the lane's gateway link unless one is already
// set.
func (r *Resolver) ResolveGatewayName(ctx context.Context, msg *domain.Message) error {
	if msg == nil || msg.Details == nil {
		return errors.ErrValidation.WithDetail("message", "message details are required for routing")
	}

	domainID, lane, err := r.registry.Resolve(msg.BusinessDomainID)
	if err != nil {
		return errors.ErrValidation.WithCause(err)
	}
	msg.BusinessDomainID = domainID

	if msg.Details.GatewayName != "" {
		return nil
	}
	if lane.DefaultGatewayName == "" {
		return errors.ErrValidation.WithDetail("message",
			"business domain has no default gateway")
	}

	msg.Details.GatewayName = lane.DefaultGatewayName
	r.logger.DebugwCtx(ctx, "Routed message to default gateway",
		"gateway_name", lane.DefaultGatewayName,
	)
	return nil
}

// conversationBackend returns the backend link earlier messages of the
// conversation were routed to, if any.
func (r *Resolver) conversationBackend(ctx context.Context, domainID domain.BusinessDomainID, conversationID string) (string, bool, error) {
	if conversationID == "" || r.messages == nil {
		return "", false, nil
	}

	previous, err := r.messages.FindByConversationID(ctx, domainID, conversationID)
	if err != nil {
		return "", false, err
	}
	for _, m := range previous {
		if m.Details != nil && m.Details.BackendName != "" {
			return m.Details.BackendName, true, nil
		}
	}
	return "", false, nil
}
