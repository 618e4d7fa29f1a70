package repository

import (
	"context"
	"database/sql"
	"errors"

	"course-guard/internal/policy/domain"
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a policy repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// GetByID returns the policy for id, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.Policy, error) {
	var p domain.Policy
	err := r.db.QueryRowContext(ctx,
		`SELECT id, rules, enabled, created_at FROM access_policies WHERE id = $1`, id,
	).Scan(&p.ID, &p.Rules, &p.Enabled, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}

// ListEnabled returns all enabled policies, oldest first. Returns (nil, error) only on database errors.
func (r *PostgresRepository) ListEnabled(ctx context.Context) ([]*domain.Policy, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, rules, enabled, created_at FROM access_policies WHERE enabled ORDER BY created_at, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*domain.Policy
	for rows.Next() {
		var p domain.Policy
		if err := rows.Scan(&p.ID, &p.Rules, &p.Enabled, &p.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &p)
	}
	return out, rows.Err()
}

// Create persists the policy to the database. The policy must have ID set.
func (r *PostgresRepository) Create(ctx context.Context, p *domain.Policy) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO access_policies (id, rules, enabled, created_at) VALUES ($1, $2, $3, $4)`,
		p.ID, p.Rules, p.Enabled, p.CreatedAt.UTC())
	return err
}

// SetEnabled toggles a policy. Returns an error if the update fails.
func (r *PostgresRepository) SetEnabled(ctx context.Context, id string, enabled bool) error {
	_, err := r.db.ExecContext(ctx, `UPDATE access_policies SET enabled = $2 WHERE id = $1`, id, enabled)
	return err
}
