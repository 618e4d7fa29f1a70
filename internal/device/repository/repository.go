package repository

import (
	"context"
	"time"

	"course-guard/internal/device/domain"
)

// Repository defines persistence for registered devices.
type Repository interface {
	// ListByAccount returns the account's devices ordered by last use, most recent first.
	ListByAccount(ctx context.Context, accountID string) ([]*domain.Device, error)
	Create(ctx context.Context, d *domain.Device) error
	TouchLastUsed(ctx context.Context, id string, at time.Time) error
	// DeleteByIDAndAccount deletes the device only if it belongs to accountID and reports whether a row was removed.
	DeleteByIDAndAccount(ctx context.Context, id, accountID string) (bool, error)
}

// Locker runs fn against a Repository whose reads and writes are serialized with every other
// locked sequence for the same account.
type Locker interface {
	WithAccountLock(ctx context.Context, accountID string, fn func(Repository) error) error
}
