package audit

import (
	"context"
	"time"

	"github.com/google/uuid"

	"course-guard/internal/audit/domain"
	auditrepo "course-guard/internal/audit/repository"
	"course-guard/internal/logging"
)

// IPExtractor returns the client IP from the request context.
type IPExtractor func(context.Context) string

// AuditLogger writes a single audit event. LogEvent is best-effort: failures are logged and do not affect the caller.
type AuditLogger interface {
	LogEvent(ctx context.Context, accountID, action, metadata string)
}

// Logger implements AuditLogger using the audit repository and an optional IP extractor.
type Logger struct {
	repo        auditrepo.Repository
	ipExtractor IPExtractor
}

// NewLogger returns an AuditLogger that persists to repo and uses ipExtractor for client IP.
// ipExtractor may be nil; then IP is recorded as "unknown".
func NewLogger(repo auditrepo.Repository, ipExtractor IPExtractor) *Logger {
	return &Logger{repo: repo, ipExtractor: ipExtractor}
}

// LogEvent writes one audit log entry; the resource is derived from the action. Errors are logged and not returned.
func (l *Logger) LogEvent(ctx context.Context, accountID, action, metadata string) {
	if l == nil || l.repo == nil || accountID == "" {
		return
	}
	ip := "unknown"
	if l.ipExtractor != nil {
		if v := l.ipExtractor(ctx); v != "" {
			ip = v
		}
	}
	entry := &domain.AuditLog{
		ID:        uuid.New().String(),
		AccountID: accountID,
		Action:    action,
		Resource:  ResourceFor(action),
		IP:        ip,
		Metadata:  metadata,
		CreatedAt: time.Now().UTC(),
	}
	if err := l.repo.Create(ctx, entry); err != nil {
		logging.Ctx(ctx).Error().Err(err).Str("action", action).Msg("audit: failed to log event")
	}
}
