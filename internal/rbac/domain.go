package rbac

import "time"

// Group represents a named role container owning permission grants.
type Group struct {
	ID        int64
	Name      string
	CreatedAt time.Time
}

// Permission represents an atomic (entity, action) capability.
type Permission struct {
	ID       int64
	Codename string
	Name     string
}

// Identity describes the authenticated actor as seen by the gate.
type Identity struct {
	ID          int64
	IsStaff     bool
	IsSuperuser bool
}
