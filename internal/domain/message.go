package domain

import "time"

// MessageID is the connector-internal identity of a message. It is assigned
// once when the message enters the connector and never changes.
type MessageID string

// BusinessDomainID identifies the business domain (lane) a message belongs
// to. Every lane carries its own configuration and default routing.
type BusinessDomainID string

// ParticipantRole is the role of one end of a transport direction.
type ParticipantRole string

const (
	RoleBackend ParticipantRole = "BACKEND"
	RoleGateway ParticipantRole = "GATEWAY"
)

// Direction describes which link a message travels over.
type Direction struct {
	Source ParticipantRole
	Target ParticipantRole
}

var (
	BackendToGateway = Direction{Source: RoleBackend, Target: RoleGateway}
	GatewayToBackend = Direction{Source: RoleGateway, Target: RoleBackend}
)

// Reversed returns the mirrored direction.
func (d Direction) Reversed() Direction {
	return Direction{Source: d.Target, Target: d.Source}
}

// Valid reports whether both ends of the direction are set.
func (d Direction) Valid() bool {
	return d.Source != "" && d.Target != ""
}

func (d Direction) String() string {
	return string(d.Source) + "_TO_" + string(d.Target)
}

// PartyRoleType is the ebMS role type of a party within an exchange.
type PartyRoleType string

const (
	PartyRoleInitiator PartyRoleType = "INITIATOR"
	PartyRoleResponder PartyRoleType = "RESPONDER"
)

// Party identifies one participant of the exchange.
type Party struct {
	ID       string
	IDType   string
	Role     string
	RoleType PartyRoleType
}

// Service is a P-Mode service catalog value.
type Service struct {
	Name string
	Type string
}

// MessageDetails carries the routable metadata of a message.
type MessageDetails struct {
	Direction Direction

	Action  string
	Service Service

	FromParty Party
	ToParty   Party

	OriginalSender string
	FinalRecipient string

	ConversationID        string
	EbmsMessageID         string
	BackendMessageID      string
	RefToMessageID        string
	RefToBackendMessageID string

	// CausedBy is set on evidence messages only and names the business
	// message the evidence answers.
	CausedBy MessageID

	BackendName string
	GatewayName string

	// Once set, neither timestamp is ever cleared. A rejection may follow a
	// confirmation when a later lifecycle stage fails; the reverse never
	// happens.
	ConfirmedAt *time.Time
	RejectedAt  *time.Time
}

// Clone returns a deep copy of the details.
func (d *MessageDetails) Clone() *MessageDetails {
	if d == nil {
		return nil
	}
	c := *d
	if d.ConfirmedAt != nil {
		t := *d.ConfirmedAt
		c.ConfirmedAt = &t
	}
	if d.RejectedAt != nil {
		t := *d.RejectedAt
		c.RejectedAt = &t
	}
	return &c
}

// Content is the opaque business payload of a message. Its construction and
// validation happen outside the connector core.
type Content struct {
	XML              []byte
	MainDocument     []byte
	MainDocumentName string
}

// Attachment is an additional document transported with the message.
type Attachment struct {
	Identifier  string
	Name        string
	MimeType    string
	Data        []byte
	Description string
}

// MessageError records a processing failure attached to a message.
type MessageError struct {
	Text       string
	Source     string
	OccurredAt time.Time
}

// Message is the unit of exchange between a backend and a gateway. Business
// messages are persisted; evidence messages exist only for the duration of
// dispatch.
type Message struct {
	ID               MessageID
	BusinessDomainID BusinessDomainID
	Details          *MessageDetails
	Content          *Content
	Attachments      []Attachment

	// TransportedConfirmations arrived embedded in this message and are
	// still to be processed. RelatedConfirmations are already persisted
	// against this business message; the slice only grows.
	TransportedConfirmations []*MessageConfirmation
	RelatedConfirmations     []*MessageConfirmation

	Errors []MessageError
}

// IsBusinessMessage reports whether the message carries substantive content
// of its own, as opposed to an evidence message that merely transports
// confirmations.
func (m *Message) IsBusinessMessage() bool {
	return m != nil && m.Content != nil
}

// IsEvidenceTrigger reports whether the message is a backend request for
// evidence generation: exactly one transported confirmation and no business
// content of its own.
func (m *Message) IsEvidenceTrigger() bool {
	return m != nil && m.Content == nil && len(m.TransportedConfirmations) == 1
}

// IsRejected reports whether a rejection has been recorded on the details.
func (m *Message) IsRejected() bool {
	return m != nil && m.Details != nil && m.Details.RejectedAt != nil
}

// IsConfirmed reports whether a confirmation has been recorded on the details.
func (m *Message) IsConfirmed() bool {
	return m != nil && m.Details != nil && m.Details.ConfirmedAt != nil
}
