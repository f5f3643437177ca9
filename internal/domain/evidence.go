package domain

// EvidenceType enumerates the REM evidence kinds the connector handles.
type EvidenceType string

const (
	EvidenceSubmissionAcceptance EvidenceType = "SUBMISSION_ACCEPTANCE"
	EvidenceSubmissionRejection  EvidenceType = "SUBMISSION_REJECTION"
	EvidenceRelayREMMDAcceptance EvidenceType = "RELAY_REMMD_ACCEPTANCE"
	EvidenceRelayREMMDRejection  EvidenceType = "RELAY_REMMD_REJECTION"
	EvidenceRelayREMMDFailure    EvidenceType = "RELAY_REMMD_FAILURE"
	EvidenceDelivery             EvidenceType = "DELIVERY"
	EvidenceNonDelivery          EvidenceType = "NON_DELIVERY"
	EvidenceRetrieval            EvidenceType = "RETRIEVAL"
	EvidenceNonRetrieval         EvidenceType = "NON_RETRIEVAL"
)

const maxOccurrenceUnbounded = 0

// evidenceAttributes orders evidence types by how late in the delivery
// lifecycle they occur. A later (higher priority) evidence supersedes an
// earlier one when deciding the confirm/reject state of a message.
type evidenceAttributes struct {
	priority      int
	maxOccurrence int
}

var evidenceTable = map[EvidenceType]evidenceAttributes{
	EvidenceSubmissionAcceptance: {priority: 10, maxOccurrence: 1},
	EvidenceSubmissionRejection:  {priority: 10, maxOccurrence: 1},
	EvidenceRelayREMMDAcceptance: {priority: 20, maxOccurrence: 1},
	EvidenceRelayREMMDRejection:  {priority: 20, maxOccurrence: 1},
	EvidenceRelayREMMDFailure:    {priority: 20, maxOccurrence: 1},
	EvidenceDelivery:             {priority: 30, maxOccurrence: 1},
	EvidenceNonDelivery:          {priority: 30, maxOccurrence: 1},
	EvidenceRetrieval:            {priority: 40, maxOccurrence: maxOccurrenceUnbounded},
	EvidenceNonRetrieval:         {priority: 40, maxOccurrence: maxOccurrenceUnbounded},
}

// Known reports whether the type is part of the evidence table.
func (t EvidenceType) Known() bool {
	_, ok := evidenceTable[t]
	return ok
}

// Priority returns the lifecycle priority of the evidence type, 0 for an
// unknown type.
func (t EvidenceType) Priority() int {
	return evidenceTable[t].priority
}

// MaxOccurrence returns how often this evidence type may be persisted per
// business message; 0 means unbounded.
func (t EvidenceType) MaxOccurrence() int {
	return evidenceTable[t].maxOccurrence
}

// IsNegative reports whether the evidence rejects the message.
func (t EvidenceType) IsNegative() bool {
	switch t {
	case EvidenceSubmissionRejection, EvidenceNonDelivery, EvidenceNonRetrieval,
		EvidenceRelayREMMDRejection, EvidenceRelayREMMDFailure:
		return true
	}
	return false
}

// IsPositive reports whether the evidence confirms successful delivery or
// retrieval.
func (t EvidenceType) IsPositive() bool {
	return t == EvidenceDelivery || t == EvidenceRetrieval
}

// EvidenceTypes lists all known types in lifecycle order.
func EvidenceTypes() []EvidenceType {
	return []EvidenceType{
		EvidenceSubmissionAcceptance,
		EvidenceSubmissionRejection,
		EvidenceRelayREMMDAcceptance,
		EvidenceRelayREMMDRejection,
		EvidenceRelayREMMDFailure,
		EvidenceDelivery,
		EvidenceNonDelivery,
		EvidenceRetrieval,
		EvidenceNonRetrieval,
	}
}
