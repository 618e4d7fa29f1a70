package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"course-guard/internal/audit"
	"course-guard/internal/clientenv"
	"course-guard/internal/device/domain"
	"course-guard/internal/device/repository"
	"course-guard/internal/logging"
	"course-guard/internal/telemetry"
)

// DefaultMaxDevices is the device cap applied when the caller passes a non-positive limit.
const DefaultMaxDevices = 2

// ErrAccountRequired is returned when a registry call carries no account id.
var ErrAccountRequired = errors.New("account id required")

// IdentityResolver returns the identity of the device behind ctx.
type IdentityResolver interface {
	Resolve(ctx context.Context) string
}

// Recorder counts registry outcomes. *otel.Metrics satisfies it.
type Recorder interface {
	DeviceRegistered(ctx context.Context)
}

// CheckResult is the outcome of CheckAndRegister. A denial is a normal result, not an error.
type CheckResult struct {
	Allowed        bool
	CurrentDevices int
	MaxDevices     int
	// Message is set on denial and names the limit.
	Message string
	// Device is the recognized or newly registered row; nil on denial.
	Device *domain.Device
	// Registered is true when this call inserted Device.
	Registered bool
}

// RemoveResult is the outcome of Remove.
type RemoveResult struct {
	Success bool
	Error   string
}

// Registry enforces the per-account device cap.
type Registry struct {
	repo     repository.Repository
	locker   repository.Locker
	resolver IdentityResolver
	audit    audit.AuditLogger
	events   telemetry.EventEmitter
	metrics  Recorder
	now      func() time.Time
}

// NewRegistry returns a Registry. locker may be nil for best-effort check-then-act; auditLogger,
// events and metrics may be nil.
func NewRegistry(
	repo repository.Repository,
	locker repository.Locker,
	resolver IdentityResolver,
	auditLogger audit.AuditLogger,
	events telemetry.EventEmitter,
	metrics Recorder,
) *Registry {
	return &Registry{
		repo:     repo,
		locker:   locker,
		resolver: resolver,
		audit:    auditLogger,
		events:   events,
		metrics:  metrics,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// LimitMessage is the Arabic denial shown when the account already has max devices.
func LimitMessage(max int) string {
	return fmt.Sprintf("لقد وصلت إلى الحد الأقصى لعدد الأجهزة المسموح بها (%d أجهزة). يرجى إزالة أحد أجهزتك المسجلة للمتابعة من هذا الجهاز.", max)
}

// CheckAndRegister recognizes the current device or registers it when the account is under maxDevices.
// Known devices get last_used_at refreshed. Errors are store failures only.
func (r *Registry) CheckAndRegister(ctx context.Context, accountID string, maxDevices int) (*CheckResult, error) {
	if accountID == "" {
		return nil, ErrAccountRequired
	}
	if maxDevices <= 0 {
		maxDevices = DefaultMaxDevices
	}
	fingerprint := r.resolver.Resolve(ctx)
	env := clientenv.FromContext(ctx)

	var res *CheckResult
	run := func(repo repository.Repository) error {
		var err error
		res, err = r.checkAndRegister(ctx, repo, accountID, fingerprint, env.UserAgent(), maxDevices)
		return err
	}
	var err error
	if r.locker != nil {
		err = r.locker.WithAccountLock(ctx, accountID, run)
	} else {
		err = run(r.repo)
	}
	if err != nil {
		return nil, err
	}

	r.record(ctx, accountID, fingerprint, res)
	return res, nil
}

func (r *Registry) checkAndRegister(ctx context.Context, repo repository.Repository, accountID, fingerprint, userAgent string, maxDevices int) (*CheckResult, error) {
	devices, err := repo.ListByAccount(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("list devices: %w", err)
	}
	now := r.now()
	for _, d := range devices {
		if d.Fingerprint != fingerprint {
			continue
		}
		if err := repo.TouchLastUsed(ctx, d.ID, now); err != nil {
			return nil, fmt.Errorf("touch device: %w", err)
		}
		d.LastUsedAt = now
		return &CheckResult{Allowed: true, CurrentDevices: len(devices), MaxDevices: maxDevices, Device: d}, nil
	}
	if len(devices) >= maxDevices {
		return &CheckResult{
			Allowed:        false,
			CurrentDevices: len(devices),
			MaxDevices:     maxDevices,
			Message:        LimitMessage(maxDevices),
		}, nil
	}
	d := &domain.Device{
		ID:          uuid.New().String(),
		AccountID:   accountID,
		Fingerprint: fingerprint,
		Label:       domain.LabelFor(userAgent),
		UserAgent:   userAgent,
		LastUsedAt:  now,
		CreatedAt:   now,
	}
	if err := repo.Create(ctx, d); err != nil {
		return nil, fmt.Errorf("create device: %w", err)
	}
	return &CheckResult{Allowed: true, CurrentDevices: len(devices) + 1, MaxDevices: maxDevices, Device: d, Registered: true}, nil
}

// record writes audit rows, events and counters for outcomes that change or block state.
func (r *Registry) record(ctx context.Context, accountID, fingerprint string, res *CheckResult) {
	switch {
	case !res.Allowed:
		meta := map[string]any{"current_devices": res.CurrentDevices, "max_devices": res.MaxDevices}
		r.emit(ctx, accountID, fingerprint, telemetry.EventDeviceLimitReached, meta)
	case res.Registered:
		meta := map[string]any{"device_id": res.Device.ID, "label": res.Device.Label}
		r.emit(ctx, accountID, fingerprint, telemetry.EventDeviceRegistered, meta)
		if r.metrics != nil {
			r.metrics.DeviceRegistered(ctx)
		}
	}
}

func (r *Registry) emit(ctx context.Context, accountID, fingerprint, action string, meta map[string]any) {
	if r.audit != nil {
		r.audit.LogEvent(ctx, accountID, action, audit.Metadata(meta))
	}
	ev := telemetry.NewEvent(accountID, action, meta)
	ev.DeviceFingerprint = fingerprint
	telemetry.EmitAsync(r.events, ctx, ev)
}

// Remove deletes deviceID when it belongs to accountID. Removing the device currently in use is allowed.
// A missing or foreign device yields Success=false; the error return is reserved for store failures.
func (r *Registry) Remove(ctx context.Context, accountID, deviceID string) (*RemoveResult, error) {
	if accountID == "" {
		return nil, ErrAccountRequired
	}
	if deviceID == "" {
		return &RemoveResult{Error: "device id required"}, nil
	}
	deleted, err := r.repo.DeleteByIDAndAccount(ctx, deviceID, accountID)
	if err != nil {
		return nil, fmt.Errorf("delete device: %w", err)
	}
	if !deleted {
		logging.Ctx(ctx).Debug().Str("device_id", deviceID).Msg("device: remove matched no row for account")
		return &RemoveResult{Error: "device not found"}, nil
	}
	r.emit(ctx, accountID, "", telemetry.EventDeviceRemoved, map[string]any{"device_id": deviceID})
	return &RemoveResult{Success: true}, nil
}

// List returns the account's devices, most recently used first.
func (r *Registry) List(ctx context.Context, accountID string) ([]*domain.Device, error) {
	if accountID == "" {
		return nil, ErrAccountRequired
	}
	devices, err := r.repo.ListByAccount(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("list devices: %w", err)
	}
	return devices, nil
}
