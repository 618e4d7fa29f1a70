package repository

import (
	"context"
	"database/sql"
	"errors"

	"course-guard/internal/db"
	"course-guard/internal/session/domain"
)

type PostgresRepository struct {
	conn  db.DBTX
	sqlDB *sql.DB // nil when bound to a transaction
}

// NewPostgresRepository returns a session repository that uses the given db for persistence.
func NewPostgresRepository(sqlDB *sql.DB) *PostgresRepository {
	return &PostgresRepository{conn: sqlDB, sqlDB: sqlDB}
}

const sessionColumns = `id, account_id, token_hash, device_fingerprint, ip_address, is_active, created_at, expires_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*domain.ActiveSession, error) {
	var s domain.ActiveSession
	if err := row.Scan(&s.ID, &s.AccountID, &s.TokenHash, &s.DeviceFingerprint, &s.IPAddress, &s.IsActive, &s.CreatedAt, &s.ExpiresAt); err != nil {
		return nil, err
	}
	return &s, nil
}

// ListActiveByAccount returns active sessions for the account, newest first. Returns (nil, error) only on database errors.
func (r *PostgresRepository) ListActiveByAccount(ctx context.Context, accountID string) ([]*domain.ActiveSession, error) {
	rows, err := r.conn.QueryContext(ctx,
		`SELECT `+sessionColumns+` FROM active_sessions WHERE account_id = $1 AND is_active ORDER BY created_at DESC`,
		accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.ActiveSession
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// GetByTokenHash returns the session for tokenHash, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByTokenHash(ctx context.Context, tokenHash string) (*domain.ActiveSession, error) {
	s, err := scanSession(r.conn.QueryRowContext(ctx,
		`SELECT `+sessionColumns+` FROM active_sessions WHERE token_hash = $1`, tokenHash))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return s, nil
}

// Create persists the session. The session must have ID and TokenHash set.
func (r *PostgresRepository) Create(ctx context.Context, s *domain.ActiveSession) error {
	_, err := r.conn.ExecContext(ctx,
		`INSERT INTO active_sessions (`+sessionColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		s.ID, s.AccountID, s.TokenHash, s.DeviceFingerprint, s.IPAddress, s.IsActive, s.CreatedAt.UTC(), s.ExpiresAt.UTC())
	return err
}

// DeactivateAllByAccount marks every active session of the account inactive.
func (r *PostgresRepository) DeactivateAllByAccount(ctx context.Context, accountID string) error {
	_, err := r.conn.ExecContext(ctx, `UPDATE active_sessions SET is_active = FALSE WHERE account_id = $1 AND is_active`, accountID)
	return err
}

// Deactivate flips one session inactive. The conditional update makes the flip happen at most once.
func (r *PostgresRepository) Deactivate(ctx context.Context, id string) (bool, error) {
	res, err := r.conn.ExecContext(ctx, `UPDATE active_sessions SET is_active = FALSE WHERE id = $1 AND is_active`, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// DeactivateByTokenHash marks the account's session for tokenHash inactive.
func (r *PostgresRepository) DeactivateByTokenHash(ctx context.Context, accountID, tokenHash string) error {
	_, err := r.conn.ExecContext(ctx,
		`UPDATE active_sessions SET is_active = FALSE WHERE account_id = $1 AND token_hash = $2 AND is_active`,
		accountID, tokenHash)
	return err
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
