package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"course-guard/internal/audit"
	"course-guard/internal/clientenv"
	"course-guard/internal/clientip"
	"course-guard/internal/logging"
	"course-guard/internal/security"
	"course-guard/internal/session/domain"
	"course-guard/internal/session/repository"
	"course-guard/internal/telemetry"
)

// DefaultLifetime is the session lifetime when none is configured.
const DefaultLifetime = 24 * time.Hour

// ConcurrentMessage is the Arabic denial shown when another device holds the account's active session.
const ConcurrentMessage = "هذا الحساب مفتوح حالياً على جهاز آخر. يمكنك إنهاء الجلسة على الجهاز الآخر والمتابعة من هذا الجهاز."

// ErrAccountRequired is returned when a registry call carries no account id.
var ErrAccountRequired = errors.New("account id required")

// IdentityResolver returns the identity of the device behind ctx.
type IdentityResolver interface {
	Resolve(ctx context.Context) string
}

// Recorder counts registry outcomes. *otel.Metrics satisfies it.
type Recorder interface {
	SessionCreated(ctx context.Context)
}

// ConcurrentResult is the outcome of CheckConcurrentAccess. A denial is a normal result, not an error.
type ConcurrentResult struct {
	Allowed bool
	Message string
}

// Registry enforces one active session per account. The client side of a session is the token kept
// in the environment's storage under clientenv.SessionTokenKey.
type Registry struct {
	repo     repository.Repository
	locker   repository.Locker
	resolver IdentityResolver
	ips      clientip.Resolver
	audit    audit.AuditLogger
	events   telemetry.EventEmitter
	metrics  Recorder
	lifetime time.Duration
	now      func() time.Time
}

// NewRegistry returns a Registry. locker may be nil for best-effort invalidate-then-insert; ips defaults to
// the request resolver; lifetime <= 0 means DefaultLifetime.
func NewRegistry(
	repo repository.Repository,
	locker repository.Locker,
	resolver IdentityResolver,
	ips clientip.Resolver,
	auditLogger audit.AuditLogger,
	events telemetry.EventEmitter,
	metrics Recorder,
	lifetime time.Duration,
) *Registry {
	if ips == nil {
		ips = clientip.RequestResolver{}
	}
	if lifetime <= 0 {
		lifetime = DefaultLifetime
	}
	return &Registry{
		repo:     repo,
		locker:   locker,
		resolver: resolver,
		ips:      ips,
		audit:    auditLogger,
		events:   events,
		metrics:  metrics,
		lifetime: lifetime,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// CreateSingleSession invalidates every session of the account, inserts a fresh one for the current device
// and caches its token in client storage. Last writer wins.
func (r *Registry) CreateSingleSession(ctx context.Context, accountID string) (string, error) {
	return r.createSession(ctx, accountID, telemetry.EventSessionCreated)
}

// ForceNewSession is CreateSingleSession invoked from the remediation screen to sign the other device out.
func (r *Registry) ForceNewSession(ctx context.Context, accountID string) (string, error) {
	return r.createSession(ctx, accountID, telemetry.EventSessionForced)
}

func (r *Registry) createSession(ctx context.Context, accountID, action string) (string, error) {
	if accountID == "" {
		return "", ErrAccountRequired
	}
	token, err := security.NewSessionToken()
	if err != nil {
		return "", err
	}
	now := r.now()
	s := &domain.ActiveSession{
		ID:                uuid.New().String(),
		AccountID:         accountID,
		TokenHash:         security.HashSessionToken(token),
		DeviceFingerprint: r.resolver.Resolve(ctx),
		IPAddress:         r.clientIP(ctx),
		IsActive:          true,
		CreatedAt:         now,
		ExpiresAt:         now.Add(r.lifetime),
	}

	replace := func(repo repository.Repository) error {
		if err := repo.DeactivateAllByAccount(ctx, accountID); err != nil {
			return fmt.Errorf("deactivate sessions: %w", err)
		}
		if err := repo.Create(ctx, s); err != nil {
			return fmt.Errorf("create session: %w", err)
		}
		return nil
	}
	if r.locker != nil {
		err = r.locker.WithAccountLock(ctx, accountID, replace)
	} else {
		err = replace(r.repo)
	}
	if err != nil {
		return "", err
	}

	clientenv.FromContext(ctx).Storage().Set(clientenv.SessionTokenKey, token)
	if r.metrics != nil {
		r.metrics.SessionCreated(ctx)
	}
	r.emit(ctx, accountID, s, action, map[string]any{"session_id": s.ID, "ip": s.IPAddress})
	return token, nil
}

func (r *Registry) clientIP(ctx context.Context) string {
	if ip := r.ips.Resolve(ctx); ip != "" {
		return ip
	}
	return clientip.Unknown
}

// CheckConcurrentAccess allows when the account has no active session or the current device owns one.
// Any active session of another device denies; recency is not considered.
func (r *Registry) CheckConcurrentAccess(ctx context.Context, accountID string) (*ConcurrentResult, error) {
	if accountID == "" {
		return nil, ErrAccountRequired
	}
	active, err := r.repo.ListActiveByAccount(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	if len(active) == 0 {
		return &ConcurrentResult{Allowed: true}, nil
	}
	fingerprint := r.resolver.Resolve(ctx)
	for _, s := range active {
		if s.DeviceFingerprint == fingerprint {
			return &ConcurrentResult{Allowed: true}, nil
		}
	}
	r.emit(ctx, accountID, &domain.ActiveSession{DeviceFingerprint: fingerprint}, telemetry.EventConcurrentDenied,
		map[string]any{"active_sessions": len(active)})
	return &ConcurrentResult{Allowed: false, Message: ConcurrentMessage}, nil
}

// ValidateSession reports whether the cached token maps to a live session of the account.
// An expired session is flipped inactive the first time it is seen.
func (r *Registry) ValidateSession(ctx context.Context, accountID string) (bool, error) {
	if accountID == "" {
		return false, ErrAccountRequired
	}
	token, ok := clientenv.FromContext(ctx).Storage().Get(clientenv.SessionTokenKey)
	if !ok || token == "" {
		return false, nil
	}
	s, err := r.repo.GetByTokenHash(ctx, security.HashSessionToken(token))
	if err != nil {
		return false, fmt.Errorf("get session: %w", err)
	}
	if s == nil || !s.IsActive || s.AccountID != accountID {
		return false, nil
	}
	if s.Expired(r.now()) {
		flipped, err := r.repo.Deactivate(ctx, s.ID)
		if err != nil {
			return false, fmt.Errorf("expire session: %w", err)
		}
		if flipped {
			r.emit(ctx, accountID, s, telemetry.EventSessionExpired, map[string]any{"session_id": s.ID})
		}
		return false, nil
	}
	return true, nil
}

// EndSession deactivates the caller's own session (matched by cached token) and clears the cache.
// It is a no-op for the store when nothing is cached.
func (r *Registry) EndSession(ctx context.Context, accountID string) error {
	if accountID == "" {
		return ErrAccountRequired
	}
	storage := clientenv.FromContext(ctx).Storage()
	token, ok := storage.Get(clientenv.SessionTokenKey)
	if ok && token != "" {
		if err := r.repo.DeactivateByTokenHash(ctx, accountID, security.HashSessionToken(token)); err != nil {
			return fmt.Errorf("end session: %w", err)
		}
		r.emit(ctx, accountID, &domain.ActiveSession{DeviceFingerprint: r.resolver.Resolve(ctx)}, telemetry.EventSessionEnded, nil)
	} else {
		logging.Ctx(ctx).Debug().Msg("session: end requested without a cached token")
	}
	storage.Remove(clientenv.SessionTokenKey)
	return nil
}

func (r *Registry) emit(ctx context.Context, accountID string, s *domain.ActiveSession, action string, meta map[string]any) {
	if r.audit != nil {
		r.audit.LogEvent(ctx, accountID, action, audit.Metadata(meta))
	}
	ev := telemetry.NewEvent(accountID, action, meta)
	ev.DeviceFingerprint = s.DeviceFingerprint
	ev.SessionID = s.ID
	telemetry.EmitAsync(r.events, ctx, ev)
}
