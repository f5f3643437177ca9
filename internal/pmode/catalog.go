package pmode

import (
	"context"
	"database/sql"
	"fmt"

	"bifrost/internal/domain"
	"bifrost/pkg/errors"
)

// Catalog looks up the processing-mode entries (actions, services, parties)
// a lane's messages must conform to. Lookups return a not-found error when
// the entry is not configured.
type Catalog interface {
	FindAction(ctx context.Context, domainID domain.BusinessDomainID, action string) (string, error)
	FindService(ctx context.Context, domainID domain.BusinessDomainID, name string) (*domain.Service, error)
	// FindParty matches on party id and, when non-empty, the id type. The
	// returned party is the canonical catalog entry.
	FindParty(ctx context.Context, domainID domain.BusinessDomainID, partyID, idType string) (*domain.Party, error)
}

type PostgresCatalog struct {
	db *sql.DB
}

func NewCatalog(db *sql.DB) *PostgresCatalog {
	return &PostgresCatalog{db: db}
}

func (c *PostgresCatalog) FindAction(ctx context.Context, domainID domain.BusinessDomainID, action string) (string, error) {
	var name string
	err := c.db.QueryRowContext(ctx,
		`SELECT action_name FROM pmode_actions WHERE business_domain_id = $1 AND action_name = $2`,
		string(domainID), action,
	).Scan(&name)
	if err == sql.ErrNoRows {
		return "", errors.ErrNotFound.WithDetail("message", fmt.Sprintf("action %q is not configured", action))
	}
	if err != nil {
		return "", fmt.Errorf("failed to query pmode action: %w", err)
	}
	return name, nil
}

func (c *PostgresCatalog) FindService(ctx context.Context, domainID domain.BusinessDomainID, name string) (*domain.Service, error) {
	var svc domain.Service
	err := c.db.QueryRowContext(ctx,
		`SELECT service_name, service_type FROM pmode_services WHERE business_domain_id = $1 AND service_name = $2`,
		string(domainID), name,
	).Scan(&svc.Name, &svc.Type)
	if err == sql.ErrNoRows {
		return nil, errors.ErrNotFound.WithDetail("message", fmt.Sprintf("service %q is not configured", name))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query pmode service: %w", err)
	}
	return &svc, nil
}

func (c *PostgresCatalog) FindParty(ctx context.Context, domainID domain.BusinessDomainID, partyID, idType string) (*domain.Party, error) {
	query := `
		SELECT party_id, party_id_type, role, role_type
		FROM pmode_parties
		WHERE business_domain_id = $1 AND party_id = $2
	`
	args := []interface{}{string(domainID), partyID}
	if idType != "" {
		query += ` AND party_id_type = $3`
		args = append(args, idType)
	}

	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query pmode parties: %w", err)
	}
	defer rows.Close()

	var parties []domain.Party
	for rows.Next() {
		var (
			p        domain.Party
			roleType string
		)
		if err := rows.Scan(&p.ID, &p.IDType, &p.Role, &roleType); err != nil {
			return nil, fmt.Errorf("failed to scan pmode party: %w", err)
		}
		p.RoleType = domain.PartyRoleType(roleType)
		parties = append(parties, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	switch len(parties) {
	case 0:
		return nil, errors.ErrNotFound.WithDetail("message", fmt.Sprintf("party %q is not configured", partyID))
	case 1:
		return &parties[0], nil
	default:
		return nil, errors.ErrValidation.WithDetail("message",
			fmt.Sprintf("party %q matches %d catalog entries, expected exactly one", partyID, len(parties)))
	}
}
