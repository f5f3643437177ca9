package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"bifrost/internal/domain"
	"bifrost/pkg/errors"
)

// MessageStore persists business messages. Evidence messages never pass
// through here.
type MessageStore interface {
	Create(ctx context.Context, msg *domain.Message) error
	FindByConnectorID(ctx context.Context, id domain.MessageID) (*domain.Message, error)
	FindByConversationID(ctx context.Context, domainID domain.BusinessDomainID, conversationID string) ([]*domain.Message, error)
	// FindByTransportIDAndDirection resolves a message by its ebMS or
	// backend message id together with its transport direction.
	FindByTransportIDAndDirection(ctx context.Context, transportID string, direction domain.Direction) (*domain.Message, error)
	Confirm(ctx context.Context, msg *domain.Message) error
	Reject(ctx context.Context, msg *domain.Message) error
	IsRejected(ctx context.Context, id domain.MessageID) (bool, error)
}

type PostgresMessageStore struct {
	db *sql.DB
}

func NewMessageStore(db *sql.DB) *PostgresMessageStore {
	return &PostgresMessageStore{db: db}
}

const messageColumns = `
	connector_message_id, business_domain_id,
	direction_source, direction_target,
	action, service_name, service_type,
	from_party_id, from_party_id_type, from_party_role, from_party_role_type,
	to_party_id, to_party_id_type, to_party_role, to_party_role_type,
	original_sender, final_recipient,
	conversation_id, ebms_message_id, backend_message_id,
	ref_to_message_id, ref_to_backend_message_id,
	backend_name, gateway_name,
	confirmed_at, rejected_at, content_xml
`

func (s *PostgresMessageStore) Create(ctx context.Context, msg *domain.Message) error {
	if msg == nil || msg.Details == nil {
		return errors.ErrValidation.WithDetail("message", "message and message details are required")
	}

	d := msg.Details

	// A business message stored under the same transport id and direction
	// signals a redelivery; the unique index surfaces it as a conflict.
	query := `
		INSERT INTO messages (` + messageColumns + `, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15,
			$16, $17, $18, $19, $20, $21, $22, $23, $24, $25, $26, $27, NOW(), NOW())
	`

	var contentXML []byte
	if msg.Content != nil {
		contentXML = msg.Content.XML
	}

	_, err := s.db.ExecContext(ctx, query,
		string(msg.ID), string(msg.BusinessDomainID),
		string(d.Direction.Source), string(d.Direction.Target),
		d.Action, d.Service.Name, d.Service.Type,
		d.FromParty.ID, d.FromParty.IDType, d.FromParty.Role, string(d.FromParty.RoleType),
		d.ToParty.ID, d.ToParty.IDType, d.ToParty.Role, string(d.ToParty.RoleType),
		d.OriginalSender, d.FinalRecipient,
		d.ConversationID, d.EbmsMessageID, d.BackendMessageID,
		d.RefToMessageID, d.RefToBackendMessageID,
		d.BackendName, d.GatewayName,
		d.ConfirmedAt, d.RejectedAt, contentXML,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return errors.ErrConflict.
				WithDetail("message", fmt.Sprintf("message %s already stored", msg.ID)).
				WithCause(err)
		}
		return fmt.Errorf("failed to insert message: %w", err)
	}

	return nil
}

func (s *PostgresMessageStore) FindByConnectorID(ctx context.Context, id domain.MessageID) (*domain.Message, error) {
	query := `SELECT ` + messageColumns + ` FROM messages WHERE connector_message_id = $1`
	return s.scanOne(s.db.QueryRowContext(ctx, query, string(id)))
}

func (s *PostgresMessageStore) FindByConversationID(ctx context.Context, domainID domain.BusinessDomainID, conversationID string) ([]*domain.Message, error) {
	query := `
		SELECT ` + messageColumns + `
		FROM messages
		WHERE business_domain_id = $1 AND conversation_id = $2
		ORDER BY created_at ASC
	`

	rows, err := s.db.QueryContext(ctx, query, string(domainID), conversationID)
	if err != nil {
		return nil, fmt.Errorf("failed to query messages by conversation: %w", err)
	}
	defer rows.Close()

	var messages []*domain.Message
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		messages = append(messages, msg)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return messages, nil
}

func (s *PostgresMessageStore) FindByTransportIDAndDirection(ctx context.Context, transportID string, direction domain.Direction) (*domain.Message, error) {
	query := `
		SELECT ` + messageColumns + `
		FROM messages
		WHERE (ebms_message_id = $1 OR backend_message_id = $1)
		  AND direction_source = $2 AND direction_target = $3
		ORDER BY created_at DESC
		LIMIT 1
	`
	return s.scanOne(s.db.QueryRowContext(ctx, query, transportID, string(direction.Source), string(direction.Target)))
}

// Confirm records the confirmation timestamp. The rejected_at guard keeps
// the transition monotonic even when two workers race on the same message.
func (s *PostgresMessageStore) Confirm(ctx context.Context, msg *domain.Message) error {
	if msg == nil || msg.Details == nil {
		return errors.ErrValidation.WithDetail("message", "message and message details are required")
	}

	query := `
		UPDATE messages
		SET confirmed_at = COALESCE(confirmed_at, NOW()), updated_at = NOW()
		WHERE connector_message_id = $1 AND rejected_at IS NULL
		RETURNING confirmed_at
	`

	var confirmedAt time.Time
	err := s.db.QueryRowContext(ctx, query, string(msg.ID)).Scan(&confirmedAt)
	if err == sql.ErrNoRows {
		return errors.ErrConflict.WithDetail("message", fmt.Sprintf("message %s is rejected or unknown", msg.ID))
	}
	if err != nil {
		return fmt.Errorf("failed to confirm message: %w", err)
	}

	msg.Details.ConfirmedAt = &confirmedAt
	return nil
}

// Reject records the rejection timestamp; a rejection is terminal.
func (s *PostgresMessageStore) Reject(ctx context.Context, msg *domain.Message) error {
	if msg == nil || msg.Details == nil {
		return errors.ErrValidation.WithDetail("message", "message and message details are required")
	}

	query := `
		UPDATE messages
		SET rejected_at = COALESCE(rejected_at, NOW()), updated_at = NOW()
		WHERE connector_message_id = $1
		RETURNING rejected_at
	`

	var rejectedAt time.Time
	err := s.db.QueryRowContext(ctx, query, string(msg.ID)).Scan(&rejectedAt)
	if err == sql.ErrNoRows {
		return errors.ErrNotFound.WithDetail("message", string(msg.ID))
	}
	if err != nil {
		return fmt.Errorf("failed to reject message: %w", err)
	}

	msg.Details.RejectedAt = &rejectedAt
	return nil
}

func (s *PostgresMessageStore) IsRejected(ctx context.Context, id domain.MessageID) (bool, error) {
	var rejected bool
	err := s.db.QueryRowContext(ctx,
		`SELECT rejected_at IS NOT NULL FROM messages WHERE connector_message_id = $1`,
		string(id),
	).Scan(&rejected)
	if err == sql.ErrNoRows {
		return false, errors.ErrNotFound.WithDetail("message", string(id))
	}
	if err != nil {
		return false, fmt.Errorf("failed to query rejection state: %w", err)
	}
	return rejected, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func (s *PostgresMessageStore) scanOne(row *sql.Row) (*domain.Message, error) {
	msg, err := scanMessage(row)
	if err == sql.ErrNoRows {
		return nil, errors.ErrNotFound.WithDetail("message", "no message matched")
	}
	return msg, err
}

func scanMessage(row rowScanner) (*domain.Message, error) {
	var (
		msg       domain.Message
		d         domain.MessageDetails
		id        string
		domainID  string
		dirSource string
		dirTarget string
		fromRole  string
		toRole    string
		confirmed  sql.NullTime
		rejected   sql.NullTime
		contentXML []byte
	)

	err := row.Scan(
		&id, &domainID,
		&dirSource, &dirTarget,
		&d.Action, &d.Service.Name, &d.Service.Type,
		&d.FromParty.ID, &d.FromParty.IDType, &d.FromParty.Role, &fromRole,
		&d.ToParty.ID, &d.ToParty.IDType, &d.ToParty.Role, &toRole,
		&d.OriginalSender, &d.FinalRecipient,
		&d.ConversationID, &d.EbmsMessageID, &d.BackendMessageID,
		&d.RefToMessageID, &d.RefToBackendMessageID,
		&d.BackendName, &d.GatewayName,
		&confirmed, &rejected, &contentXML,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan message: %w", err)
	}

	msg.ID = domain.MessageID(id)
	msg.BusinessDomainID = domain.BusinessDomainID(domainID)
	d.Direction = domain.Direction{
		Source: domain.ParticipantRole(dirSource),
		Target: domain.ParticipantRole(dirTarget),
	}
	d.FromParty.RoleType = domain.PartyRoleType(fromRole)
	d.ToParty.RoleType = domain.PartyRoleType(toRole)
	if confirmed.Valid {
		t := confirmed.Time
		d.ConfirmedAt = &t
	}
	if rejected.Valid {
		t := rejected.Time
		d.RejectedAt = &t
	}
	if len(contentXML) > 0 {
		msg.Content = &domain.Content{XML: contentXML}
	}
	msg.Details = &d

	return &msg, nil
}
