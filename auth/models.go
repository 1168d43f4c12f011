package auth

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// UserRole is the user's permission tier
type UserRole = string

const (
	// RoleUser is the default tier (browse, manage own account)
	RoleUser UserRole = "user"
	// RolePublisher may create and manage bootcamp listings
	RolePublisher UserRole = "publisher"
	// RoleAdmin has full access, including user management
	RoleAdmin UserRole = "admin"
)

// ValidRole reports whether the role is one of the closed set. The store
// boundary rejects anything else.
func ValidRole(r UserRole) bool {
	switch r {
	case RoleUser, RolePublisher, RoleAdmin:
		return true
	default:
		return false
	}
}

// AssignableRole reports whether a self-registering user may claim the role.
// Admin is only granted through the admin surface.
func AssignableRole(r UserRole) bool {
	return r == RoleUser || r == RolePublisher
}

// User is the identity record behind every session token.
//
// PasswordHash and the reset-token pair never serialize to JSON and are
// excluded from default selects; login and reset flows request them
// explicitly.
type User struct {
	bun.BaseModel `bun:"table:users,alias:usr"`

	ID                  uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Name                string     `bun:"name,notnull" json:"name,omitempty"`
	Email               string     `bun:"email,notnull,unique" json:"email,omitempty"`
	Role                UserRole   `bun:"user_role,notnull" json:"role,omitempty"`
	PasswordHash        string     `bun:"password_hash" json:"-"`
	ResetPasswordToken  *string    `bun:"reset_password_token,nullzero" json:"-"`
	ResetPasswordExpire *time.Time `bun:"reset_password_expire,nullzero" json:"-"`
	CreatedAt           *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt           *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}

// EnsureRole applies the default role when none was set.
func (u *User) EnsureRole() {
	if u.Role == "" {
		u.Role = RoleUser
	}
}

// SetResetToken stores the reset-token hash together with its expiry.
// The two fields are only ever written as a pair.
func (u *User) SetResetToken(hash string, expire time.Time) {
	u.ResetPasswordToken = &hash
	u.ResetPasswordExpire = &expire
}

// ClearResetToken unsets both reset-token fields.
func (u *User) ClearResetToken() {
	u.ResetPasswordToken = nil
	u.ResetPasswordExpire = nil
}

// HasActiveResetToken reports whether a reset token is set and not yet expired.
func (u *User) HasActiveResetToken(now time.Time) bool {
	return u.ResetPasswordToken != nil &&
		u.ResetPasswordExpire != nil &&
		u.ResetPasswordExpire.After(now)
}
