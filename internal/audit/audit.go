// Package audit records the business log of evidence processing. Every
// evidence outcome leaves an entry; nothing is ever silently dropped.
package audit

import (
	"context"
	"time"

	"bifrost/internal/domain"
)

// Entry is one business-log record.
type Entry struct {
	MessageID        domain.MessageID        `bson:"connector_message_id"`
	BusinessDomainID domain.BusinessDomainID `bson:"business_domain_id"`
	EvidenceType     domain.EvidenceType     `bson:"evidence_type,omitempty"`
	Outcome          string                  `bson:"outcome"`
	Reason           string                  `bson:"reason,omitempty"`
	RecordedAt       time.Time               `bson:"recorded_at"`
}

// Trail appends business-log entries. Implementations must not fail message
// processing; a failed append is logged and dropped.
type Trail interface {
	Record(ctx context.Context, entry Entry)
}

type nopTrail struct{}

func (nopTrail) Record(context.Context, Entry) {}

// NopTrail records nothing. Used in tests and when no audit store is
// configured.
func NopTrail() Trail {
	return nopTrail{}
}
