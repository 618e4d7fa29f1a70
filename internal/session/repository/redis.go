package repository

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"

	"course-guard/internal/session/domain"
)

// redisRetention keeps a session hash readable this long past its expiry so validation can observe
// and flip an expired row instead of finding nothing.
const redisRetention = 24 * time.Hour

// RedisRepository stores active sessions as Redis hashes with a per-account id set and a token-hash index.
// Sequences across keys are not atomic; use it only with best-effort check-then-act.
type RedisRepository struct {
	client redis.UniversalClient
	prefix string
}

// NewRedisRepository returns a session repository backed by client. prefix namespaces every key.
func NewRedisRepository(client redis.UniversalClient, prefix string) *RedisRepository {
	if prefix == "" {
		prefix = "course-guard"
	}
	return &RedisRepository{client: client, prefix: prefix}
}

func (r *RedisRepository) sessionKey(id string) string {
	return fmt.Sprintf("%s:session:%s", r.prefix, id)
}

func (r *RedisRepository) accountKey(accountID string) string {
	return fmt.Sprintf("%s:account:%s:sessions", r.prefix, accountID)
}

func (r *RedisRepository) tokenKey(tokenHash string) string {
	return fmt.Sprintf("%s:token:%s", r.prefix, tokenHash)
}

// Create writes the session hash and its indexes in one MULTI block.
func (r *RedisRepository) Create(ctx context.Context, s *domain.ActiveSession) error {
	key := r.sessionKey(s.ID)
	keepUntil := s.ExpiresAt.Add(redisRetention)
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key, map[string]any{
			"id":                 s.ID,
			"account_id":         s.AccountID,
			"token_hash":         s.TokenHash,
			"device_fingerprint": s.DeviceFingerprint,
			"ip_address":         s.IPAddress,
			"is_active":          boolField(s.IsActive),
			"created_at":         s.CreatedAt.UTC().Format(time.RFC3339Nano),
			"expires_at":         s.ExpiresAt.UTC().Format(time.RFC3339Nano),
		})
		pipe.ExpireAt(ctx, key, keepUntil)
		pipe.SAdd(ctx, r.accountKey(s.AccountID), s.ID)
		pipe.ExpireAt(ctx, r.accountKey(s.AccountID), keepUntil)
		pipe.Set(ctx, r.tokenKey(s.TokenHash), s.ID, time.Until(keepUntil))
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis create session: %w", err)
	}
	return nil
}

// ListActiveByAccount returns active sessions for the account, newest first. Ids whose hash has
// been evicted are pruned from the account set.
func (r *RedisRepository) ListActiveByAccount(ctx context.Context, accountID string) ([]*domain.ActiveSession, error) {
	all, err := r.listByAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	out := all[:0]
	for _, s := range all {
		if s.IsActive {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *RedisRepository) listByAccount(ctx context.Context, accountID string) ([]*domain.ActiveSession, error) {
	setKey := r.accountKey(accountID)
	ids, err := r.client.SMembers(ctx, setKey).Result()
	if err != nil {
		return nil, fmt.Errorf("redis list sessions: %w", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}
	cmds := make([]*redis.MapStringStringCmd, len(ids))
	_, err = r.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, id := range ids {
			cmds[i] = pipe.HGetAll(ctx, r.sessionKey(id))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("redis load sessions: %w", err)
	}
	var out []*domain.ActiveSession
	var stale []any
	for i, cmd := range cmds {
		fields := cmd.Val()
		if len(fields) == 0 {
			stale = append(stale, ids[i])
			continue
		}
		s, err := sessionFromHash(fields)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	if len(stale) > 0 {
		_ = r.client.SRem(ctx, setKey, stale...).Err()
	}
	return out, nil
}

// GetByTokenHash returns the session for tokenHash, or nil if not found.
func (r *RedisRepository) GetByTokenHash(ctx context.Context, tokenHash string) (*domain.ActiveSession, error) {
	id, err := r.client.Get(ctx, r.tokenKey(tokenHash)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("redis get token: %w", err)
	}
	return r.get(ctx, id)
}

func (r *RedisRepository) get(ctx context.Context, id string) (*domain.ActiveSession, error) {
	fields, err := r.client.HGetAll(ctx, r.sessionKey(id)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis get session: %w", err)
	}
	if len(fields) == 0 {
		return nil, nil
	}
	return sessionFromHash(fields)
}

// DeactivateAllByAccount marks every session of the account inactive.
func (r *RedisRepository) DeactivateAllByAccount(ctx context.Context, accountID string) error {
	all, err := r.listByAccount(ctx, accountID)
	if err != nil {
		return err
	}
	_, err = r.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, s := range all {
			if s.IsActive {
				pipe.HSet(ctx, r.sessionKey(s.ID), "is_active", boolField(false))
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis deactivate sessions: %w", err)
	}
	return nil
}

// Deactivate flips one session inactive under WATCH so concurrent callers see exactly one success.
func (r *RedisRepository) Deactivate(ctx context.Context, id string) (bool, error) {
	key := r.sessionKey(id)
	flipped := false
	err := r.client.Watch(ctx, func(tx *redis.Tx) error {
		active, err := tx.HGet(ctx, key, "is_active").Result()
		if errors.Is(err, redis.Nil) {
			return nil
		}
		if err != nil {
			return err
		}
		if active != boolField(true) {
			return nil
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, key, "is_active", boolField(false))
			return nil
		})
		if err == nil {
			flipped = true
		}
		return err
	}, key)
	if errors.Is(err, redis.TxFailedErr) {
		// Another caller changed the row between WATCH and EXEC.
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("redis deactivate session: %w", err)
	}
	return flipped, nil
}

// DeactivateByTokenHash marks the account's session for tokenHash inactive.
func (r *RedisRepository) DeactivateByTokenHash(ctx context.Context, accountID, tokenHash string) error {
	s, err := r.GetByTokenHash(ctx, tokenHash)
	if err != nil || s == nil || s.AccountID != accountID {
		return err
	}
	_, err = r.Deactivate(ctx, s.ID)
	return err
}

func boolField(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

func sessionFromHash(f map[string]string) (*domain.ActiveSession, error) {
	createdAt, err := time.Parse(time.RFC3339Nano, f["created_at"])
	if err != nil {
		return nil, fmt.Errorf("redis session %s created_at: %w", f["id"], err)
	}
	expiresAt, err := time.Parse(time.RFC3339Nano, f["expires_at"])
	if err != nil {
		return nil, fmt.Errorf("redis session %s expires_at: %w", f["id"], err)
	}
	return &domain.ActiveSession{
		ID:                f["id"],
		AccountID:         f["account_id"],
		TokenHash:         f["token_hash"],
		DeviceFingerprint: f["device_fingerprint"],
		IPAddress:         f["ip_address"],
		IsActive:          f["is_active"] == boolField(true),
		CreatedAt:         createdAt,
		ExpiresAt:         expiresAt,
	}, nil
}
