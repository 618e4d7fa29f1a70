package repository

import (
	"context"

	"course-guard/internal/session/domain"
)

// Repository defines persistence for active sessions.
type Repository interface {
	// ListActiveByAccount returns the account's rows with is_active = true, newest first.
	ListActiveByAccount(ctx context.Context, accountID string) ([]*domain.ActiveSession, error)
	// GetByTokenHash returns the row for tokenHash regardless of its active flag, or nil if none.
	GetByTokenHash(ctx context.Context, tokenHash string) (*domain.ActiveSession, error)
	Create(ctx context.Context, s *domain.ActiveSession) error
	// DeactivateAllByAccount marks every row of the account inactive.
	DeactivateAllByAccount(ctx context.Context, accountID string) error
	// Deactivate marks one row inactive and reports whether it was active before the call.
	Deactivate(ctx context.Context, id string) (bool, error)
	// DeactivateByTokenHash marks the account's row for tokenHash inactive.
	DeactivateByTokenHash(ctx context.Context, accountID, tokenHash string) error
}

// Locker runs fn against a Repository whose invalidate-then-insert sequence is serialized per account.
type Locker interface {
	WithAccountLock(ctx context.Context, accountID string, fn func(Repository) error) error
}
