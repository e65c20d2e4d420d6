package auth

import "time"

// User represents a user account. IsStaff admits the account to the
// administrative console; IsSuperuser additionally bypasses grant checks.
type User struct {
	ID           int64
	Username     string
	Email        string
	PasswordHash string
	IsStaff      bool
	IsSuperuser  bool
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
