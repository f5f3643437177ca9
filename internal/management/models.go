package management

import (
	"time"

	"bifrost/internal/domain"
	"bifrost/internal/routing"
)

// RoutingRuleView is the API representation of a runtime-managed routing
// rule.
type RoutingRuleView struct {
	RuleID     string    `json:"rule_id"`
	DomainID   string    `json:"business_domain_id"`
	LinkName   string    `json:"link_name"`
	Expression string    `json:"expression"`
	Priority   int       `json:"priority"`
	Enabled    bool      `json:"enabled"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func viewOf(rule routing.Rule) RoutingRuleView {
	return RoutingRuleView{
		RuleID:     rule.ID,
		DomainID:   rule.DomainID,
		LinkName:   rule.LinkName,
		Expression: rule.Expression,
		Priority:   rule.Priority,
		Enabled:    rule.Enabled,
		CreatedAt:  rule.CreatedAt,
		UpdatedAt:  rule.UpdatedAt,
	}
}

type CreateRoutingRuleRequest struct {
	RuleID     string `json:"rule_id"`
	DomainID   string `json:"business_domain_id" binding:"required"`
	LinkName   string `json:"link_name" binding:"required"`
	Expression string `json:"expression" binding:"required"`
	Priority   int    `json:"priority"`
	Enabled    *bool  `json:"enabled"`
}

type UpdateRoutingRuleRequest struct {
	LinkName   string `json:"link_name" binding:"required"`
	Expression string `json:"expression" binding:"required"`
	Priority   int    `json:"priority"`
	Enabled    *bool  `json:"enabled"`
}

type ValidateExpressionRequest struct {
	Expression string `json:"expression" binding:"required"`
}

type ValidateExpressionResponse struct {
	Valid bool   `json:"valid"`
	Error string `json:"error,omitempty"`
}

// MessageView is the operator's read model of a stored business message.
type MessageView struct {
	ConnectorMessageID string                 `json:"connector_message_id"`
	BusinessDomainID   string                 `json:"business_domain_id"`
	Details            *domain.MessageDetails `json:"details"`
	Confirmed          bool                   `json:"confirmed"`
	Rejected           bool                   `json:"rejected"`
	Confirmations      []ConfirmationView     `json:"confirmations"`
}

type ConfirmationView struct {
	EvidenceStoreID string `json:"evidence_store_id"`
	EvidenceType    string `json:"evidence_type"`
	Priority        int    `json:"priority"`
}
