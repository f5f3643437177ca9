package confirmation

import "bifrost/internal/domain"

// Outcome classifies what processing one confirmation did to the message.
// Ignored outcomes are non-fatal: the message keeps processing, the specific
// confirmation produces no state change.
type Outcome string

const (
	OutcomeRecorded               Outcome = "RECORDED"
	OutcomeIgnoredDuplicate       Outcome = "IGNORED_DUPLICATE"
	OutcomeIgnoredSuperseded      Outcome = "IGNORED_SUPERSEDED"
	OutcomeIgnoredAlreadyRejected Outcome = "IGNORED_ALREADY_REJECTED"
)

// Ignored reports whether the confirmation was accepted without effect.
func (o Outcome) Ignored() bool {
	return o != OutcomeRecorded
}

// State transitions a recorded confirmation may cause.
const (
	TransitionNone      = ""
	TransitionConfirmed = "CONFIRMED"
	TransitionRejected  = "REJECTED"
)

// Result is the typed outcome of processing one confirmation.
type Result struct {
	EvidenceType domain.EvidenceType
	Outcome      Outcome
	Transition   string
	Reason       string
}
