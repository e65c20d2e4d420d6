package clients

import "time"

// Client represents a client record.
type Client struct {
	ID            int64
	Name          string
	Email         string
	ContactNumber string
	CompanyURL    string
	IsActive      bool
	CreatedAt     time.Time
}
