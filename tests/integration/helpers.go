package integration

import (
	"fmt"

	"bifrost/internal/domain"
	"bifrost/internal/logger"
)

func createTestLogger() logger.Logger {
	return logger.NopLogger()
}

func newBusinessMessage(id string) *domain.Message {
	return &domain.Message{
		ID:               domain.MessageID(id),
		BusinessDomainID: "default",
		Details: &domain.MessageDetails{
			Direction:        domain.BackendToGateway,
			Action:           "SubmitOrder",
			Service:          domain.Service{Name: "EPO", Type: "urn:e-codex:services"},
			FromParty:        domain.Party{ID: "DE", IDType: "urn:iso:3166-1", Role: "GW", RoleType: domain.PartyRoleInitiator},
			ToParty:          domain.Party{ID: "AT", IDType: "urn:iso:3166-1", Role: "GW", RoleType: domain.PartyRoleResponder},
			OriginalSender:   "sender@court.example",
			FinalRecipient:   "recipient@court.example",
			ConversationID:   "conv-" + id,
			EbmsMessageID:    fmt.Sprintf("%s@gateway.example", id),
			BackendMessageID: "backend-" + id,
		},
		Content: &domain.Content{XML: []byte("<doc/>")},
	}
}

func confirmationOf(evidenceType domain.EvidenceType) *domain.MessageConfirmation {
	return &domain.MessageConfirmation{
		EvidenceType: evidenceType,
		Evidence:     []byte("<rem:evidence/>"),
	}
}
