package requests

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownStatus indicates a status outside the allowed set.
var ErrUnknownStatus = errors.New("requests: unknown status")

// Service handles client request business logic, including the bulk status
// transition used by the console.
type Service struct {
	repo Repository
}

// NewService builds Service instance.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// List returns client requests matching the search term and status filter.
func (s *Service) List(ctx context.Context, search, status string) ([]ClientRequest, error) {
	return s.repo.List(ctx, strings.TrimSpace(search), status)
}

// Get fetches a client request by ID.
func (s *Service) Get(ctx context.Context, id int64) (ClientRequest, error) {
	return s.repo.Get(ctx, id)
}

// Create validates and stores a new client request. An empty status
// defaults to Pending.
func (s *Service) Create(ctx context.Context, req ClientRequest) (ClientRequest, error) {
	if req.ClientID == 0 || req.RequestTypeID == 0 {
		return ClientRequest{}, errors.New("requests: client and request type required")
	}
	if req.Status == "" {
		req.Status = StatusPending
	}
	if !ValidStatus(req.Status) {
		return ClientRequest{}, fmt.Errorf("%w: %q", ErrUnknownStatus, req.Status)
	}
	return s.repo.Create(ctx, req)
}

// Update validates and stores changes to a client request.
func (s *Service) Update(ctx context.Context, req ClientRequest) (ClientRequest, error) {
	if req.ClientID == 0 || req.RequestTypeID == 0 {
		return ClientRequest{}, errors.New("requests: client and request type required")
	}
	if !ValidStatus(req.Status) {
		return ClientRequest{}, fmt.Errorf("%w: %q", ErrUnknownStatus, req.Status)
	}
	return s.repo.Update(ctx, req)
}

// Delete removes a client request.
func (s *Service) Delete(ctx context.Context, id int64) error {
	return s.repo.Delete(ctx, id)
}

// ApplyStatus sets the status on every selected request as one atomic
// batch, refreshing updated_at on each, and reports how many rows changed.
// There is no transition-order rule: any status may be assigned to any
// record. An empty selection is a no-op.
func (s *Service) ApplyStatus(ctx context.Context, ids []int64, status string) (int64, error) {
	if !ValidStatus(status) {
		return 0, fmt.Errorf("%w: %q", ErrUnknownStatus, status)
	}
	if len(ids) == 0 {
		return 0, nil
	}
	return s.repo.BulkSetStatus(ctx, ids, status)
}
