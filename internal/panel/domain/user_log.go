package domain

import "time"

// Audit action types recorded in users_logs.
const (
	ActionRegister       = "register"
	ActionLogin          = "login"
	ActionProfileUpdate  = "profile_update"
	ActionPasswordChange = "password_change"
	ActionRoleChange     = "role_change"
	ActionIPAdded        = "ip_added"
	ActionIPRemoved      = "ip_removed"
	ActionTwoFAEnabled   = "two_fa_enabled"
	ActionTwoFADisabled  = "two_fa_disabled"
)

// UserLog is an append-only audit record of an identity-affecting action.
// Rows are never updated; only the retention pruner ever deletes them.
type UserLog struct {
	ID          int64
	UserID      int64 // subject of the action
	ChangedBy   int64 // actor who performed it (may equal UserID)
	ActionType  string
	OldValue    string
	NewValue    string
	Description string
	CreatedAt   time.Time
}

// LogFilter narrows an audit query. Zero values mean "no constraint".
type LogFilter struct {
	UserID     int64
	ChangedBy  int64
	ActionType string
	From       time.Time
	To         time.Time
}
