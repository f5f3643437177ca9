package management

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"bifrost/internal/config"
	"bifrost/internal/domain"
	"bifrost/internal/logger"
	"bifrost/internal/routing"
	"bifrost/internal/store"
	"bifrost/pkg/errors"
)

// Service is the operator-facing management surface: routing rule lifecycle
// and read access to stored messages.
type Service interface {
	ListRoutingRules(ctx context.Context, domainID string) ([]RoutingRuleView, error)
	GetRoutingRule(ctx context.Context, id string) (*RoutingRuleView, error)
	CreateRoutingRule(ctx context.Context, req CreateRoutingRuleRequest) (*RoutingRuleView, error)
	UpdateRoutingRule(ctx context.Context, id string, req UpdateRoutingRuleRequest) (*RoutingRuleView, error)
	DeleteRoutingRule(ctx context.Context, id string) error
	ValidateExpression(ctx context.Context, req ValidateExpressionRequest) ValidateExpressionResponse

	GetMessage(ctx context.Context, id string) (*MessageView, error)
	ListConversation(ctx context.Context, domainID, conversationID string) ([]MessageView, error)
}

type service struct {
	rules     routing.Repository
	ruleStore *routing.RuleStore
	messages  store.MessageStore
	evidences store.EvidenceStore
	registry  *config.DomainRegistry
	logger    logger.Logger
}

func NewService(
	rules routing.Repository,
	ruleStore *routing.RuleStore,
	messages store.MessageStore,
	evidences store.EvidenceStore,
	registry *config.DomainRegistry,
	log logger.Logger,
) Service {
	return &service{
		rules:     rules,
		ruleStore: ruleStore,
		messages:  messages,
		evidences: evidences,
		registry:  registry,
		logger:    log,
	}
}

func (s *service) ListRoutingRules(ctx context.Context, domainID string) ([]RoutingRuleView, error) {
	if domainID == "" {
		domainID = string(s.registry.DefaultDomainID())
	}

	rules, err := s.rules.ListRules(ctx, domainID)
	if err != nil {
		return nil, err
	}

	views := make([]RoutingRuleView, 0, len(rules))
	for _, rule := range rules {
		views = append(views, viewOf(rule))
	}
	return views, nil
}

func (s *service) GetRoutingRule(ctx context.Context, id string) (*RoutingRuleView, error) {
	rule, err := s.rules.GetRule(ctx, id)
	if err != nil {
		return nil, err
	}
	view := viewOf(*rule)
	return &view, nil
}

func (s *service) CreateRoutingRule(ctx context.Context, req CreateRoutingRuleRequest) (*RoutingRuleView, error) {
	if _, err := s.registry.Get(domain.BusinessDomainID(req.DomainID)); err != nil {
		return nil, errors.ErrValidation.WithCause(err)
	}
	if err := s.ruleStore.Evaluator().ValidateMatchClause(req.Expression); err != nil {
		return nil, errors.ErrValidation.
			WithCause(err).
			WithDetail("message", fmt.Sprintf("invalid expression: %v", err))
	}

	rule := routing.Rule{
		ID:         req.RuleID,
		DomainID:   req.DomainID,
		LinkName:   req.LinkName,
		Expression: req.Expression,
		Priority:   req.Priority,
		Enabled:    true,
	}
	if rule.ID == "" {
		rule.ID = uuid.New().String()
	}
	if req.Enabled != nil {
		rule.Enabled = *req.Enabled
	}

	if err := s.rules.CreateRule(ctx, &rule); err != nil {
		return nil, err
	}
	s.reload(ctx)

	s.logger.InfowCtx(ctx, "Created routing rule",
		"rule_id", rule.ID,
		"business_domain_id", rule.DomainID,
		"link_name", rule.LinkName,
	)
	view := viewOf(rule)
	return &view, nil
}

func (s *service) UpdateRoutingRule(ctx context.Context, id string, req UpdateRoutingRuleRequest) (*RoutingRuleView, error) {
	if err := s.ruleStore.Evaluator().ValidateMatchClause(req.Expression); err != nil {
		return nil, errors.ErrValidation.
			WithCause(err).
			WithDetail("message", fmt.Sprintf("invalid expression: %v", err))
	}

	existing, err := s.rules.GetRule(ctx, id)
	if err != nil {
		return nil, err
	}

	existing.LinkName = req.LinkName
	existing.Expression = req.Expression
	existing.Priority = req.Priority
	if req.Enabled != nil {
		existing.Enabled = *req.Enabled
	}

	if err := s.rules.UpdateRule(ctx, existing); err != nil {
		return nil, err
	}
	s.reload(ctx)

	s.logger.InfowCtx(ctx, "Updated routing rule",
		"rule_id", id,
	)
	view := viewOf(*existing)
	return &view, nil
}

func (s *service) DeleteRoutingRule(ctx context.Context, id string) error {
	if err := s.rules.DeleteRule(ctx, id); err != nil {
		return err
	}
	s.reload(ctx)

	s.logger.InfowCtx(ctx, "Deleted routing rule",
		"rule_id", id,
	)
	return nil
}

func (s *service) ValidateExpression(_ context.Context, req ValidateExpressionRequest) ValidateExpressionResponse {
	if err := s.ruleStore.Evaluator().ValidateMatchClause(req.Expression); err != nil {
		return ValidateExpressionResponse{Valid: false, Error: err.Error()}
	}
	return ValidateExpressionResponse{Valid: true}
}

func (s *service) GetMessage(ctx context.Context, id string) (*MessageView, error) {
	msg, err := s.messages.FindByConnectorID(ctx, domain.MessageID(id))
	if err != nil {
		return nil, err
	}

	confirmations, err := s.evidences.ListByMessage(ctx, msg.ID)
	if err != nil {
		return nil, err
	}

	view := s.viewOfMessage(msg, confirmations)
	return &view, nil
}

func (s *service) ListConversation(ctx context.Context, domainID, conversationID string) ([]MessageView, error) {
	if conversationID == "" {
		return nil, errors.ErrValidation.WithDetail("message", "conversation id is required")
	}
	if domainID == "" {
		domainID = string(s.registry.DefaultDomainID())
	}

	messages, err := s.messages.FindByConversationID(ctx, domain.BusinessDomainID(domainID), conversationID)
	if err != nil {
		return nil, err
	}

	views := make([]MessageView, 0, len(messages))
	for _, msg := range messages {
		views = append(views, s.viewOfMessage(msg, nil))
	}
	return views, nil
}

func (s *service) viewOfMessage(msg *domain.Message, confirmations []*domain.MessageConfirmation) MessageView {
	view := MessageView{
		ConnectorMessageID: string(msg.ID),
		BusinessDomainID:   string(msg.BusinessDomainID),
		Details:            msg.Details,
		Confirmed:          msg.IsConfirmed(),
		Rejected:           msg.IsRejected(),
		Confirmations:      make([]ConfirmationView, 0, len(confirmations)),
	}
	for _, c := range confirmations {
		view.Confirmations = append(view.Confirmations, ConfirmationView{
			EvidenceStoreID: c.EvidenceStoreID,
			EvidenceType:    string(c.EvidenceType),
			Priority:        c.EvidenceType.Priority(),
		})
	}
	return view
}

// reload refreshes the in-memory rule snapshot so a change takes effect
// without waiting for the periodic reload.
func (s *service) reload(ctx context.Context) {
	if err := s.ruleStore.Reload(ctx, true); err != nil {
		s.logger.ErrorwCtx(ctx, "Failed to reload routing rules after change",
			"error", err,
		)
	}
}
