package clients

import (
	"context"
	"errors"
	"strings"
)

// Service handles client business logic.
type Service struct {
	repo Repository
}

// NewService builds Service instance.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// List returns clients matching the search term.
func (s *Service) List(ctx context.Context, search string) ([]Client, error) {
	return s.repo.List(ctx, strings.TrimSpace(search))
}

// Get fetches a client by ID.
func (s *Service) Get(ctx context.Context, id int64) (Client, error) {
	return s.repo.Get(ctx, id)
}

// Create validates and stores a new client.
func (s *Service) Create(ctx context.Context, client Client) (Client, error) {
	client.Name = strings.TrimSpace(client.Name)
	if client.Name == "" {
		return Client{}, errors.New("clients: name required")
	}
	return s.repo.Create(ctx, client)
}

// Update validates and stores changes to a client.
func (s *Service) Update(ctx context.Context, client Client) (Client, error) {
	client.Name = strings.TrimSpace(client.Name)
	if client.Name == "" {
		return Client{}, errors.New("clients: name required")
	}
	return s.repo.Update(ctx, client)
}

// Delete removes a client and, through the store, its requests.
func (s *Service) Delete(ctx context.Context, id int64) error {
	return s.repo.Delete(ctx, id)
}
