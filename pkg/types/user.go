package types

import "time"

// Role gates access to the admin surface of the API.
type Role string

const (
	RoleClient Role = "client"
	RoleAdmin  Role = "admin"
)

// VerificationStatus tracks email verification of a registered user.
type VerificationStatus string

const (
	VerificationPending  VerificationStatus = "pending"
	VerificationVerified VerificationStatus = "verified"
)

// User is a registered customer or administrator.
type User struct {
	ID                int64              `json:"id"`
	Name              string             `json:"name"`
	Email             string             `json:"email"`
	PasswordHash      string             `json:"-"`
	Phone             string             `json:"phone,omitempty"`
	Role              Role               `json:"role"`
	Verification      VerificationStatus `json:"verification"`
	VerificationToken string             `json:"-"` // set while pending, cleared on verification
	CreatedAt         time.Time          `json:"-"`
}

// Session is an ephemeral login session. One row per login call; destroyed
// at logout.
type Session struct {
	Token     string
	UserID    int64
	CreatedAt time.Time
}
