package domain

import "time"

// ActiveSession is the single live login of an account, bound to the device that created it.
type ActiveSession struct {
	ID        string
	AccountID string
	// TokenHash is the SHA-256 hex of the client-held session token; the raw token is never stored.
	TokenHash         string
	DeviceFingerprint string
	IPAddress         string
	IsActive          bool
	CreatedAt         time.Time
	ExpiresAt         time.Time
}

// Expired reports whether the session's lifetime has ended at now.
func (s *ActiveSession) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}
