// Package queue moves messages over the Kafka link topics: two inbound
// topics (backend submissions, gateway deliveries) and two outbound link
// topics, plus a DLQ for messages that exhaust their retries.
package queue

import (
	"time"

	"bifrost/internal/domain"
)

// DLQInfo is attached to an envelope when it is parked on the dead-letter
// topic.
type DLQInfo struct {
	Reason      string    `json:"reason"`
	SourceTopic string    `json:"source_topic"`
	FailedAt    time.Time `json:"failed_at"`
}

// Envelope is the wire representation of a message on the link topics.
// Related confirmations never travel; they are reconstructed from the
// evidence store.
type Envelope struct {
	ID               string                        `json:"id"`
	BusinessDomainID string                        `json:"business_domain_id,omitempty"`
	TraceID          string                        `json:"trace_id,omitempty"`
	Details          *domain.MessageDetails        `json:"details"`
	Content          *domain.Content               `json:"content,omitempty"`
	Attachments      []domain.Attachment           `json:"attachments,omitempty"`
	Confirmations    []*domain.MessageConfirmation `json:"confirmations,omitempty"`

	DLQ *DLQInfo `json:"dlq,omitempty"`
}

func FromMessage(msg *domain.Message) Envelope {
	return Envelope{
		ID:               string(msg.ID),
		BusinessDomainID: string(msg.BusinessDomainID),
		Details:          msg.Details,
		Content:          msg.Content,
		Attachments:      msg.Attachments,
		Confirmations:    msg.TransportedConfirmations,
	}
}

func (e Envelope) ToMessage() *domain.Message {
	return &domain.Message{
		ID:                       domain.MessageID(e.ID),
		BusinessDomainID:         domain.BusinessDomainID(e.BusinessDomainID),
		Details:                  e.Details,
		Content:                  e.Content,
		Attachments:              e.Attachments,
		TransportedConfirmations: e.Confirmations,
	}
}
