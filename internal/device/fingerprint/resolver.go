// Package fingerprint derives the pseudo-unique identity of the calling device.
package fingerprint

import (
	"context"
	"encoding/hex"
	"fmt"
	"time"

	"course-guard/internal/clientenv"
	"course-guard/internal/logging"

	"golang.org/x/crypto/blake2b"
)

// ServerSide is the identity reported when no real device backs the environment.
const ServerSide = "server-side"

// fallbackLength is the length of the digest-based identity.
const fallbackLength = 32

// defaultVisitorTimeout bounds the vendor fingerprinting call.
const defaultVisitorTimeout = 2 * time.Second

// Resolver resolves the device identity from the environment carried in the context.
type Resolver struct {
	visitorTimeout time.Duration
}

// NewResolver returns a Resolver with the default vendor timeout.
func NewResolver() *Resolver {
	return &Resolver{visitorTimeout: defaultVisitorTimeout}
}

// Resolve returns the device identity. It never returns an empty string: outside a browser it returns
// ServerSide, and when the vendor visitor id is unavailable it falls back to a digest of the user agent,
// screen resolution and language.
func (r *Resolver) Resolve(ctx context.Context) string {
	env := clientenv.FromContext(ctx)
	if !env.IsBrowser() {
		return ServerSide
	}

	timeout := r.visitorTimeout
	if timeout <= 0 {
		timeout = defaultVisitorTimeout
	}
	vctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	id, err := env.VisitorID(vctx)
	if err == nil && id != "" {
		return id
	}
	if err != nil {
		logging.Ctx(ctx).Debug().Err(err).Msg("fingerprint: vendor visitor id unavailable, using fallback")
	}
	return Fallback(env)
}

// Fallback is the deterministic identity built from {user agent, WxH, language}.
func Fallback(env clientenv.Environment) string {
	w, h := env.Screen()
	raw := fmt.Sprintf("%s|%dx%d|%s", env.UserAgent(), w, h, env.Language())
	sum := blake2b.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])[:fallbackLength]
}
