package auth

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// User is the user model
type User struct {
	bun.BaseModel  `bun:"table:users,alias:usr"`
	ID             uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Role           Role       `bun:"user_role,notnull" json:"user_role,omitempty"`
	FirstName      string     `bun:"first_name,notnull" json:"first_name,omitempty"`
	LastName       string     `bun:"last_name,notnull" json:"last_name,omitempty"`
	Username       string     `bun:"username,notnull,unique" json:"username,omitempty"`
	Email          string     `bun:"email" json:"email,omitempty"`
	Phone          string     `bun:"phone_number" json:"phone_number,omitempty"`
	PasswordHash   string     `bun:"password_hash" json:"-"`
	LoginAttempts  int        `bun:"login_attempts" json:"login_attempts,omitempty"`
	LoginAttemptAt *time.Time `bun:"login_attempt_at" json:"login_attempt_at,omitempty"`
	LoggedInAt     *time.Time `bun:"loggedin_at" json:"loggedin_at,omitempty"`
	CreatedAt      *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt      *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
	DeletedAt      *time.Time `bun:"deleted_at,soft_delete,nullzero" json:"deleted_at,omitempty"`
}

// Identity wraps the user into the Identity interface
func (u *User) Identity() Identity {
	return authIdentity{user: u}
}

// authIdentity adapts a stored user to the Identity interface
type authIdentity struct {
	user *User
}

func (a authIdentity) ID() string {
	if a.user == nil {
		return ""
	}
	return a.user.ID.String()
}

func (a authIdentity) Username() string {
	if a.user == nil {
		return ""
	}
	return a.user.Username
}

func (a authIdentity) Role() Role {
	if a.user == nil {
		return ""
	}
	return a.user.Role
}

func (a authIdentity) FirstName() string {
	if a.user == nil {
		return ""
	}
	return a.user.FirstName
}

func (a authIdentity) LastName() string {
	if a.user == nil {
		return ""
	}
	return a.user.LastName
}
