package requesttypes

import (
	"context"
	"errors"
	"strings"
)

// Service handles request type business logic.
type Service struct {
	repo Repository
}

// NewService builds Service instance.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// List returns request types matching the search term.
func (s *Service) List(ctx context.Context, search string) ([]RequestType, error) {
	return s.repo.List(ctx, strings.TrimSpace(search))
}

// Get fetches a request type by ID.
func (s *Service) Get(ctx context.Context, id int64) (RequestType, error) {
	return s.repo.Get(ctx, id)
}

// Create validates and stores a new request type.
func (s *Service) Create(ctx context.Context, rt RequestType) (RequestType, error) {
	rt.Name = strings.TrimSpace(rt.Name)
	if rt.Name == "" {
		return RequestType{}, errors.New("requesttypes: name required")
	}
	return s.repo.Create(ctx, rt)
}

// Update validates and stores changes to a request type.
func (s *Service) Update(ctx context.Context, rt RequestType) (RequestType, error) {
	rt.Name = strings.TrimSpace(rt.Name)
	if rt.Name == "" {
		return RequestType{}, errors.New("requesttypes: name required")
	}
	return s.repo.Update(ctx, rt)
}

// Delete removes a request type and, through the store, its requests.
func (s *Service) Delete(ctx context.Context, id int64) error {
	return s.repo.Delete(ctx, id)
}
