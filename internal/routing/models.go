package routing

import "time"

// Rule routes matching business messages to a named backend link.
// Expression is a CEL predicate over the message details; higher Priority
// wins, declaration order breaks ties.
type Rule struct {
	ID         string
	DomainID   string
	LinkName   string
	Expression string
	Priority   int
	Enabled    bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
