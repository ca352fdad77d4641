package domain

import "time"

// TokenAccount is a user's metered credit balance. Unlimited accounts are an
// administrative override that bypasses debits entirely.
type TokenAccount struct {
	ID        string
	Balance   int
	Unlimited bool
	CreatedAt time.Time
	UpdatedAt time.Time
}
