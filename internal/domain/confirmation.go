package domain

// MessageConfirmation is one REM evidence carried by or associated with a
// message. The payload bytes are opaque to the connector core.
type MessageConfirmation struct {
	EvidenceType EvidenceType
	Evidence     []byte

	// EvidenceStoreID is assigned once the confirmation has been
	// persisted against its business message.
	EvidenceStoreID string
}

// HighestPriority returns the maximum evidence priority among the given
// confirmations, 0 for an empty slice.
func HighestPriority(confirmations []*MessageConfirmation) int {
	highest := 0
	for _, c := range confirmations {
		if c == nil {
			continue
		}
		if p := c.EvidenceType.Priority(); p > highest {
			highest = p
		}
	}
	return highest
}
