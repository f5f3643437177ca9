package routing

import (
	"context"
	"database/sql"
	"fmt"

	"bifrost/pkg/errors"
)

// Repository stores runtime-managed routing rules. Static rules from the
// lane configuration never pass through here.
type Repository interface {
	GetActiveRules(ctx context.Context) ([]Rule, error)
	ListRules(ctx context.Context, domainID string) ([]Rule, error)
	GetRule(ctx context.Context, id string) (*Rule, error)
	CreateRule(ctx context.Context, rule *Rule) error
	UpdateRule(ctx context.Context, rule *Rule) error
	DeleteRule(ctx context.Context, id string) error
}

type PostgresRepository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &PostgresRepository{db: db}
}

const ruleColumns = `rule_id, business_domain_id, link_name, expression, priority, enabled, created_at, updated_at`

func (r *PostgresRepository) GetActiveRules(ctx context.Context) ([]Rule, error) {
	query := `
		SELECT ` + ruleColumns + `
		FROM routing_rules
		WHERE enabled = true
		ORDER BY priority DESC, created_at ASC
	`
	return r.queryRules(ctx, query)
}

func (r *PostgresRepository) ListRules(ctx context.Context, domainID string) ([]Rule, error) {
	query := `
		SELECT ` + ruleColumns + `
		FROM routing_rules
		WHERE business_domain_id = $1
		ORDER BY priority DESC, created_at ASC
	`
	return r.queryRules(ctx, query, domainID)
}

func (r *PostgresRepository) GetRule(ctx context.Context, id string) (*Rule, error) {
	query := `SELECT ` + ruleColumns + ` FROM routing_rules WHERE rule_id = $1`

	var rule Rule
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&rule.ID, &rule.DomainID, &rule.LinkName, &rule.Expression,
		&rule.Priority, &rule.Enabled, &rule.CreatedAt, &rule.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, errors.ErrNotFound.WithDetail("message", fmt.Sprintf("routing rule %s not found", id))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query routing rule: %w", err)
	}

	return &rule, nil
}

func (r *PostgresRepository) CreateRule(ctx context.Context, rule *Rule) error {
	query := `
		INSERT INTO routing_rules (` + ruleColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
	`

	_, err := r.db.ExecContext(ctx, query,
		rule.ID, rule.DomainID, rule.LinkName, rule.Expression, rule.Priority, rule.Enabled,
	)
	if err != nil {
		return fmt.Errorf("failed to insert routing rule: %w", err)
	}
	return nil
}

func (r *PostgresRepository) UpdateRule(ctx context.Context, rule *Rule) error {
	query := `
		UPDATE routing_rules
		SET link_name = $2, expression = $3, priority = $4, enabled = $5, updated_at = NOW()
		WHERE rule_id = $1
	`

	result, err := r.db.ExecContext(ctx, query,
		rule.ID, rule.LinkName, rule.Expression, rule.Priority, rule.Enabled,
	)
	if err != nil {
		return fmt.Errorf("failed to update routing rule: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		return errors.ErrNotFound.WithDetail("message", fmt.Sprintf("routing rule %s not found", rule.ID))
	}
	return nil
}

func (r *PostgresRepository) DeleteRule(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM routing_rules WHERE rule_id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete routing rule: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		return errors.ErrNotFound.WithDetail("message", fmt.Sprintf("routing rule %s not found", id))
	}
	return nil
}

func (r *PostgresRepository) queryRules(ctx context.Context, query string, args ...interface{}) ([]Rule, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query routing rules: %w", err)
	}
	defer rows.Close()

	var rules []Rule
	for rows.Next() {
		var rule Rule
		if err := rows.Scan(
			&rule.ID, &rule.DomainID, &rule.LinkName, &rule.Expression,
			&rule.Priority, &rule.Enabled, &rule.CreatedAt, &rule.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan routing rule: %w", err)
		}
		rules = append(rules, rule)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return rules, nil
}
