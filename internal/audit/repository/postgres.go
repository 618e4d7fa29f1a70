package repository

import (
	"context"
	"database/sql"

	"course-guard/internal/audit/domain"
)

// PostgresRepository stores audit logs in the audit_logs table.
type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns an audit log repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create persists the audit log. The audit log must have ID set.
func (r *PostgresRepository) Create(ctx context.Context, a *domain.AuditLog) error {
	meta := sql.NullString{String: a.Metadata, Valid: a.Metadata != ""}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO audit_logs (id, account_id, action, resource, ip, metadata, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		a.ID, a.AccountID, a.Action, a.Resource, a.IP, meta, a.CreatedAt.UTC())
	return err
}

// ListByAccount returns audit logs for the account, newest first, paginated by limit and offset.
// Returns (nil, error) only on database errors.
func (r *PostgresRepository) ListByAccount(ctx context.Context, accountID string, limit, offset int32) ([]*domain.AuditLog, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, account_id, action, resource, ip, metadata, created_at FROM audit_logs
		 WHERE account_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
		accountID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.AuditLog
	for rows.Next() {
		var a domain.AuditLog
		var meta sql.NullString
		if err := rows.Scan(&a.ID, &a.AccountID, &a.Action, &a.Resource, &a.IP, &meta, &a.CreatedAt); err != nil {
			return nil, err
		}
		a.Metadata = meta.String
		out = append(out, &a)
	}
	return out, rows.Err()
}
