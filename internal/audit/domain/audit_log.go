package domain

import "time"

// AuditLog is one recorded device or session lifecycle action of an account.
type AuditLog struct {
	ID        string
	AccountID string
	Action    string
	Resource  string
	IP        string
	Metadata  string
	CreatedAt time.Time
}
