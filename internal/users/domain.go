package users

import "time"

// User represents a user account as shown in the console.
type User struct {
	ID          int64
	Username    string
	Email       string
	IsStaff     bool
	IsSuperuser bool
	IsActive    bool
	CreatedAt   time.Time
}
