// Package httpx holds the request-edge helpers shared by the JSON handlers.
package httpx

import (
	"errors"
	"net/http"

	"course-guard/internal/identity"
	"course-guard/internal/identity/domain"
)

// ErrUnauthenticated is returned when a handler needs an identity and the request carries none.
var ErrUnauthenticated = errors.New("identity required")

// RequireAccount returns the caller's identity. It writes 401 and returns ErrUnauthenticated when absent.
func RequireAccount(w http.ResponseWriter, r *http.Request) (*domain.Identity, error) {
	id, ok := identity.FromContext(r.Context())
	if !ok || id.AccountID == "" {
		Error(w, http.StatusUnauthorized, "authentication required")
		return nil, ErrUnauthenticated
	}
	return id, nil
}
