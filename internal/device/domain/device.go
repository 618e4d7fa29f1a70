package domain

import "time"

// Device is one registered (account, fingerprint) pairing.
type Device struct {
	ID          string
	AccountID   string
	Fingerprint string
	Label       string
	UserAgent   string
	LastUsedAt  time.Time
	CreatedAt   time.Time
}
