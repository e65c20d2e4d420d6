package requests

import "time"

// Status values a client request can hold. Any status may move directly to
// any other.
const (
	StatusPending    = "Pending"
	StatusInProgress = "In Progress"
	StatusCompleted  = "Completed"
)

// Statuses lists the valid statuses in lifecycle order.
func Statuses() []string {
	return []string{StatusPending, StatusInProgress, StatusCompleted}
}

// ValidStatus reports whether s is a known status.
func ValidStatus(s string) bool {
	return s == StatusPending || s == StatusInProgress || s == StatusCompleted
}

// ClientRequest represents a work item raised by a client. It references
// exactly one client and one request type; deleting either deletes the
// request.
type ClientRequest struct {
	ID              int64
	ClientID        int64
	RequestTypeID   int64
	ClientName      string
	RequestTypeName string
	Description     string
	Status          string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
