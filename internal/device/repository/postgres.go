package repository

import (
	"context"
	"database/sql"
	"time"

	"course-guard/internal/db"
	"course-guard/internal/device/domain"
)

type PostgresRepository struct {
	conn  db.DBTX
	sqlDB *sql.DB // nil when bound to a transaction
}

// NewPostgresRepository returns a device repository that uses the given db for persistence.
func NewPostgresRepository(sqlDB *sql.DB) *PostgresRepository {
	return &PostgresRepository{conn: sqlDB, sqlDB: sqlDB}
}

const deviceColumns = `id, account_id, fingerprint, label, user_agent, last_used_at, created_at`

// ListByAccount returns all devices for the account, most recently used first. Returns (nil, error) only on database errors.
func (r *PostgresRepository) ListByAccount(ctx context.Context, accountID string) ([]*domain.Device, error) {
	rows, err := r.conn.QueryContext(ctx,
		`SELECT `+deviceColumns+` FROM registered_devices WHERE account_id = $1 ORDER BY last_used_at DESC, created_at DESC`,
		accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Device
	for rows.Next() {
		var d domain.Device
		if err := rows.Scan(&d.ID, &d.AccountID, &d.Fingerprint, &d.Label, &d.UserAgent, &d.LastUsedAt, &d.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &d)
	}
	return out, rows.Err()
}

// Create persists the device. The device must have ID set.
func (r *PostgresRepository) Create(ctx context.Context, d *domain.Device) error {
	_, err := r.conn.ExecContext(ctx,
		`INSERT INTO registered_devices (`+deviceColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		d.ID, d.AccountID, d.Fingerprint, d.Label, d.UserAgent, d.LastUsedAt.UTC(), d.CreatedAt.UTC())
	return err
}

// TouchLastUsed sets the device's last-used timestamp. Returns an error if the update fails.
func (r *PostgresRepository) TouchLastUsed(ctx context.Context, id string, at time.Time) error {
	_, err := r.conn.ExecContext(ctx, `UPDATE registered_devices SET last_used_at = $2 WHERE id = $1`, id, at.UTC())
	return err
}

// DeleteByIDAndAccount deletes the device scoped to the owning account. A device of another account is left untouched and reports false.
func (r *PostgresRepository) DeleteByIDAndAccount(ctx context.Context, id, accountID string) (bool, error) {
	res, err := r.conn.ExecContext(ctx, `DELETE FROM registered_devices WHERE id = $1 AND account_id = $2`, id, accountID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// WithAccountLock runs fn inside a transaction holding the account's advisory lock.
func (r *PostgresRepository) WithAccountLock(ctx context.Context, accountID string, fn func(Repository) error) error {
	if r.sqlDB == nil {
		return fn(r)
	}
	return db.WithAccountLock(ctx, r.sqlDB, accountID, func(tx db.DBTX) error {
		return fn(&PostgresRepository{conn: tx})
	})
}
