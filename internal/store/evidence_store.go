package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"bifrost/internal/domain"
	"bifrost/pkg/errors"
)

// EvidenceStore persists confirmations against business messages and
// enforces the per-type max-occurrence bound.
type EvidenceStore interface {
	// Persist stores the confirmation and returns its store id. When the
	// evidence type is bounded and the bound is already reached for the
	// message, Persist returns a duplicate-evidence error and writes
	// nothing.
	Persist(ctx context.Context, msg *domain.Message, confirmation *domain.MessageConfirmation) (string, error)
	ListByMessage(ctx context.Context, id domain.MessageID) ([]*domain.MessageConfirmation, error)
}

type PostgresEvidenceStore struct {
	db *sql.DB
}

func NewEvidenceStore(db *sql.DB) *PostgresEvidenceStore {
	return &PostgresEvidenceStore{db: db}
}

func (s *PostgresEvidenceStore) Persist(ctx context.Context, msg *domain.Message, confirmation *domain.MessageConfirmation) (string, error) {
	if msg == nil || confirmation == nil {
		return "", errors.ErrValidation.WithDetail("message", "message and confirmation are required")
	}
	if !confirmation.EvidenceType.Known() {
		return "", errors.ErrValidation.WithDetail("message", fmt.Sprintf("unknown evidence type %q", confirmation.EvidenceType))
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// Lock the message row so the occurrence count and the insert are
	// serializable with any concurrent evidence for the same message.
	var lockedID string
	err = tx.QueryRowContext(ctx,
		`SELECT connector_message_id FROM messages WHERE connector_message_id = $1 FOR UPDATE`,
		string(msg.ID),
	).Scan(&lockedID)
	if err == sql.ErrNoRows {
		return "", errors.ErrNotFound.WithDetail("message", string(msg.ID))
	}
	if err != nil {
		return "", fmt.Errorf("failed to lock message row: %w", err)
	}

	if maxOccurrence := confirmation.EvidenceType.MaxOccurrence(); maxOccurrence > 0 {
		var count int
		err = tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM evidences WHERE connector_message_id = $1 AND evidence_type = $2`,
			string(msg.ID), string(confirmation.EvidenceType),
		).Scan(&count)
		if err != nil {
			return "", fmt.Errorf("failed to count evidences: %w", err)
		}
		if count >= maxOccurrence {
			return "", errors.ErrDuplicateEvidence.WithDetail("message",
				fmt.Sprintf("evidence %s already stored %d time(s) for message %s",
					confirmation.EvidenceType, count, msg.ID))
		}
	}

	storeID := uuid.New().String()
	_, err = tx.ExecContext(ctx,
		`INSERT INTO evidences (evidence_id, connector_message_id, evidence_type, evidence, created_at)
		 VALUES ($1, $2, $3, $4, NOW())`,
		storeID, string(msg.ID), string(confirmation.EvidenceType), confirmation.Evidence,
	)
	if err != nil {
		return "", fmt.Errorf("failed to insert evidence: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("failed to commit evidence: %w", err)
	}

	return storeID, nil
}

func (s *PostgresEvidenceStore) ListByMessage(ctx context.Context, id domain.MessageID) ([]*domain.MessageConfirmation, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT evidence_id, evidence_type, evidence
		 FROM evidences
		 WHERE connector_message_id = $1
		 ORDER BY created_at ASC`,
		string(id),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query evidences: %w", err)
	}
	defer rows.Close()

	var confirmations []*domain.MessageConfirmation
	for rows.Next() {
		var (
			c            domain.MessageConfirmation
			evidenceType string
		)
		if err := rows.Scan(&c.EvidenceStoreID, &evidenceType, &c.Evidence); err != nil {
			return nil, fmt.Errorf("failed to scan evidence: %w", err)
		}
		c.EvidenceType = domain.EvidenceType(evidenceType)
		confirmations = append(confirmations, &c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return confirmations, nil
}

func isUniqueViolation(err error) bool {
	if pqErr, ok := err.(*pq.Error); ok {
		return pqErr.Code == "23505"
	}
	return false
}
