package domain

import "time"

// AllowedIP is a per-user source-address allow-list entry. A user with zero
// active entries has no IP restriction at all; restriction is opt-in.
type AllowedIP struct {
	ID          int64
	UserID      int64
	IPAddress   string // exact-match IPv4/IPv6 literal, no CIDR
	Description string
	Active      bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
