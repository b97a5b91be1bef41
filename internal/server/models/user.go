// Package models defines server-side data models persisted in the database.
package models

import "time"

// Role is a user's authorization level. Admin is derived from the static
// allow-list on every login.
type Role string

const (
	RoleGuest Role = "guest"
	RoleAdmin Role = "admin"
)

// ApprovalStatus is the position of a user in the approval workflow.
// The zero value means the user never asked to join.
type ApprovalStatus string

const (
	ApprovalUnset    ApprovalStatus = ""
	ApprovalPending  ApprovalStatus = "pending"
	ApprovalApproved ApprovalStatus = "approved"
	ApprovalDenied   ApprovalStatus = "denied"
)

// User is a Telegram account known to the service.
type User struct {
	ID             string
	TelegramID     int64
	FirstName      string
	LastName       string
	Username       string
	Role           Role
	ApprovalStatus ApprovalStatus
	RequestedAt    *time.Time
	ResolvedAt     *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// DisplayName is "first last" with surrounding blanks removed.
func (u *User) DisplayName() string {
	return trimJoin(u.FirstName, u.LastName)
}

// IsAdmin reports whether the user holds the admin role.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}
