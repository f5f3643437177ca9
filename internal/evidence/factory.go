// Package evidence builds REM evidence payloads and the canonical evidence
// actions carried by evidence messages.
package evidence

import (
	"context"
	"encoding/xml"
	"fmt"
	"time"

	"github.com/google/uuid"

	"bifrost/internal/domain"
	"bifrost/pkg/errors"
)

// Factory produces the opaque evidence payload for a business message and
// the canonical action identifier an evidence message is dispatched under.
type Factory interface {
	Action(evidenceType domain.EvidenceType) (string, error)
	BuildPayload(ctx context.Context, evidenceType domain.EvidenceType, msg *domain.Message) ([]byte, error)
}

// Acceptance and rejection of one lifecycle stage share an action; the
// payload's event code carries the distinction.
var evidenceActions = map[domain.EvidenceType]string{
	domain.EvidenceSubmissionAcceptance: "SubmissionAcceptanceRejection",
	domain.EvidenceSubmissionRejection:  "SubmissionAcceptanceRejection",
	domain.EvidenceRelayREMMDAcceptance: "RelayREMMDAcceptanceRejection",
	domain.EvidenceRelayREMMDRejection:  "RelayREMMDAcceptanceRejection",
	domain.EvidenceRelayREMMDFailure:    "RelayREMMDFailure",
	domain.EvidenceDelivery:             "DeliveryNonDeliveryToRecipient",
	domain.EvidenceNonDelivery:          "DeliveryNonDeliveryToRecipient",
	domain.EvidenceRetrieval:            "RetrievalNonRetrievalToRecipient",
	domain.EvidenceNonRetrieval:         "RetrievalNonRetrievalToRecipient",
}

type remEvidence struct {
	XMLName            xml.Name `xml:"REMEvidence"`
	EvidenceIdentifier string   `xml:"EvidenceIdentifier"`
	EvidenceType       string   `xml:"EvidenceType"`
	IssueTime          string   `xml:"IssueTime"`

	SenderDetails    remParticipant `xml:"SenderDetails"`
	RecipientDetails remParticipant `xml:"RecipientDetails"`

	MessageDetails remMessageDetails `xml:"SubmissionInformation>MessageDetails"`
}

type remParticipant struct {
	Address string `xml:"AttributedElectronicAddress"`
}

type remMessageDetails struct {
	MessageIdentifier        string `xml:"MessageIdentifiers>MessageIdentifier"`
	BackendMessageIdentifier string `xml:"MessageIdentifiers>BackendMessageIdentifier,omitempty"`
	ConversationIdentifier   string `xml:"ConversationIdentifier,omitempty"`
}

// XMLFactory builds ETSI-REM-shaped evidence payloads. Cryptographic signing
// of evidences happens in the security module, not here.
type XMLFactory struct {
	now func() time.Time
}

func NewFactory() *XMLFactory {
	return &XMLFactory{now: time.Now}
}

func (f *XMLFactory) Action(evidenceType domain.EvidenceType) (string, error) {
	action, ok := evidenceActions[evidenceType]
	if !ok {
		return "", errors.ErrValidation.WithDetail("message",
			fmt.Sprintf("no evidence action for type %q", evidenceType))
	}
	return action, nil
}

func (f *XMLFactory) BuildPayload(ctx context.Context, evidenceType domain.EvidenceType, msg *domain.Message) ([]byte, error) {
	if !evidenceType.Known() {
		return nil, errors.ErrValidation.WithDetail("message",
			fmt.Sprintf("unknown evidence type %q", evidenceType))
	}
	if msg == nil || msg.Details == nil {
		return nil, errors.ErrValidation.WithDetail("message",
			"business message with details is required to build evidence")
	}

	payload := remEvidence{
		EvidenceIdentifier: uuid.New().String(),
		EvidenceType:       string(evidenceType),
		IssueTime:          f.now().UTC().Format(time.RFC3339),
		SenderDetails:      remParticipant{Address: msg.Details.OriginalSender},
		RecipientDetails:   remParticipant{Address: msg.Details.FinalRecipient},
		MessageDetails: remMessageDetails{
			MessageIdentifier:        msg.Details.EbmsMessageID,
			BackendMessageIdentifier: msg.Details.BackendMessageID,
			ConversationIdentifier:   msg.Details.ConversationID,
		},
	}

	data, err := xml.MarshalIndent(payload, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal evidence payload: %w", err)
	}
	return append([]byte(xml.Header), data...), nil
}
