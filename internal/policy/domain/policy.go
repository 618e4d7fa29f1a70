package domain

import "time"

// Policy is a deployment-wide Rego module for the access gate. Enabled policies replace the built-in default.
type Policy struct {
	ID        string
	Rules     string
	Enabled   bool
	CreatedAt time.Time
}
