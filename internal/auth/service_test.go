package auth_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/clientdesk/clientdesk/internal/auth"
	"github.com/clientdesk/clientdesk/internal/rbac"
	"github.com/clientdesk/clientdesk/internal/shared"
	_ "github.com/clientdesk/clientdesk/testing"
)

type stubRepo struct {
	users        map[string]*auth.User
	created      *auth.User
	groupsJoined []string
	groupErr     error
}

func (s *stubRepo) FindByUsername(ctx context.Context, username string) (*auth.User, error) {
	user, ok := s.users[username]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return user, nil
}

func (s *stubRepo) FindByID(ctx context.Context, id int64) (*auth.User, error) {
	for _, user := range s.users {
		if user.ID == id {
			return user, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (s *stubRepo) CreateUser(ctx context.Context, user *auth.User) (*auth.User, error) {
	if _, exists := s.users[user.Username]; exists {
		return nil, auth.ErrUsernameTaken
	}
	user.ID = int64(len(s.users) + 1)
	if s.users == nil {
		s.users = make(map[string]*auth.User)
	}
	s.users[user.Username] = user
	s.created = user
	return user, nil
}

func (s *stubRepo) AddToGroup(ctx context.Context, userID int64, groupName string) error {
	if s.groupErr != nil {
		return s.groupErr
	}
	s.groupsJoined = append(s.groupsJoined, groupName)
	return nil
}

func (s *stubRepo) CreateSession(ctx context.Context, id string, userID int64, expiresAt time.Time, ip, ua string) error {
	return nil
}

func (s *stubRepo) DeleteSession(ctx context.Context, id string) error {
	return nil
}

func hashFor(t *testing.T, password string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	require.NoError(t, err)
	return string(hash)
}

func TestAuthenticateUniformFailure(t *testing.T) {
	repo := &stubRepo{users: map[string]*auth.User{
		"alice": {ID: 1, Username: "alice", PasswordHash: hashFor(t, "correct-horse"), IsActive: true},
		"bob":   {ID: 2, Username: "bob", PasswordHash: hashFor(t, "battery-staple"), IsActive: false},
	}}
	service := auth.NewService(repo)

	// Unknown user, wrong password and disabled account collapse into one
	// error value so responses cannot leak which part failed.
	_, err := service.Authenticate(context.Background(), "nobody", "whatever")
	require.ErrorIs(t, err, shared.ErrInvalidCredentials)

	_, err = service.Authenticate(context.Background(), "alice", "wrong")
	require.ErrorIs(t, err, shared.ErrInvalidCredentials)

	_, err = service.Authenticate(context.Background(), "bob", "battery-staple")
	require.ErrorIs(t, err, shared.ErrInvalidCredentials)
}

func TestAuthenticateSuccess(t *testing.T) {
	repo := &stubRepo{users: map[string]*auth.User{
		"alice": {ID: 1, Username: "alice", PasswordHash: hashFor(t, "correct-horse"), IsActive: true, IsStaff: true},
	}}
	service := auth.NewService(repo)

	user, err := service.Authenticate(context.Background(), "alice", "correct-horse")
	require.NoError(t, err)
	require.Equal(t, int64(1), user.ID)
	require.True(t, user.IsStaff)
}

func TestRegisterForcesStaffAndJoinsLimitedGroup(t *testing.T) {
	repo := &stubRepo{users: map[string]*auth.User{}}
	service := auth.NewService(repo)

	user, err := service.Register(context.Background(), auth.RegisterInput{
		Username: "newstaff",
		Email:    "newstaff@clientdesk.local",
		Password: "a-long-enough-password",
	})
	require.NoError(t, err)
	require.True(t, user.IsStaff)
	require.False(t, user.IsSuperuser)
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("a-long-enough-password")))
	require.Equal(t, []string{rbac.LimitedGroupName}, repo.groupsJoined)
}

func TestRegisterToleratesMissingGroup(t *testing.T) {
	repo := &stubRepo{users: map[string]*auth.User{}, groupErr: shared.ErrNotFound}
	service := auth.NewService(repo)

	_, err := service.Register(context.Background(), auth.RegisterInput{
		Username: "newstaff",
		Email:    "newstaff@clientdesk.local",
		Password: "a-long-enough-password",
	})
	require.NoError(t, err, "registration must succeed before provisioning ever ran")
}

func TestIdentityByID(t *testing.T) {
	repo := &stubRepo{users: map[string]*auth.User{
		"root": {ID: 5, Username: "root", IsStaff: true, IsSuperuser: true},
	}}
	service := auth.NewService(repo)

	identity, err := service.IdentityByID(context.Background(), 5)
	require.NoError(t, err)
	require.Equal(t, rbac.Identity{ID: 5, IsStaff: true, IsSuperuser: true}, identity)
}
