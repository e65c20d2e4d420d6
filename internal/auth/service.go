package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/clientdesk/clientdesk/internal/rbac"
	"github.com/clientdesk/clientdesk/internal/shared"
)

// Service wraps authentication and registration business rules.
type Service struct {
	repo Repository
}

// NewService constructs a new Service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Authenticate validates username/password credentials. Unknown users,
// wrong passwords and inactive accounts all yield the same error value.
func (s *Service) Authenticate(ctx context.Context, username, password string) (*User, error) {
	user, err := s.repo.FindByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		return nil, shared.ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, shared.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, shared.ErrInvalidCredentials
	}
	return user, nil
}

// RegisterInput carries a validated registration form.
type RegisterInput struct {
	Username string
	Email    string
	Password string
}

// Register creates a new account. Self-registered accounts are always
// staff, and join LimitedUsers when that group has been provisioned; a
// missing group is tolerated.
func (s *Service) Register(ctx context.Context, input RegisterInput) (*User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	user, err := s.repo.CreateUser(ctx, &User{
		Username:     strings.TrimSpace(input.Username),
		Email:        strings.TrimSpace(input.Email),
		PasswordHash: string(hash),
		IsStaff:      true,
		IsActive:     true,
	})
	if err != nil {
		return nil, err
	}
	if err := s.repo.AddToGroup(ctx, user.ID, rbac.LimitedGroupName); err != nil && !errors.Is(err, shared.ErrNotFound) {
		return nil, err
	}
	return user, nil
}

// IdentityByID resolves a session user ID to an identity for the gate.
func (s *Service) IdentityByID(ctx context.Context, id int64) (rbac.Identity, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return rbac.Identity{}, err
	}
	return rbac.Identity{ID: user.ID, IsStaff: user.IsStaff, IsSuperuser: user.IsSuperuser}, nil
}

// RegisterSession persists the session metadata in postgres.
func (s *Service) RegisterSession(ctx context.Context, id string, userID int64, expiresAt time.Time, ip, ua string) error {
	return s.repo.CreateSession(ctx, id, userID, expiresAt, ip, ua)
}

// RemoveSession deletes a session record from postgres.
func (s *Service) RemoveSession(ctx context.Context, id string) error {
	return s.repo.DeleteSession(ctx, id)
}

var _ rbac.IdentitySource = (*Service)(nil)
