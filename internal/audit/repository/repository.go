package repository

import (
	"context"

	"course-guard/internal/audit/domain"
)

// Repository defines persistence for audit logs.
type Repository interface {
	Create(ctx context.Context, a *domain.AuditLog) error
	// ListByAccount returns the account's entries, newest first.
	ListByAccount(ctx context.Context, accountID string, limit, offset int32) ([]*domain.AuditLog, error)
}
