package rbac

import (
	"context"
	"errors"
	"log/slog"

	"github.com/clientdesk/clientdesk/internal/shared"
)

// Service reconciles live group grants toward the permission catalog and
// answers effective-permission queries for the gate.
type Service struct {
	repo   Repository
	logger *slog.Logger
}

// NewService constructs a Service.
func NewService(repo Repository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, logger: logger}
}

// EnsureLimitedGroup provisions the LimitedUsers group from the catalog.
// It is idempotent and safe under concurrent startup: the group row is
// get-or-created atomically and grants attach with ON CONFLICT DO NOTHING.
// A permission missing from the store is logged at warn level and skipped;
// the rest of the catalog still provisions.
func (s *Service) EnsureLimitedGroup(ctx context.Context) (Group, error) {
	group, err := s.repo.GetOrCreateGroup(ctx, LimitedGroupName)
	if err != nil {
		return Group{}, err
	}
	for _, entity := range Entities() {
		for _, action := range GrantableActions(entity) {
			// Delete grants never attach, even if a delete row exists
			// in the permissions table.
			if action == ActionDelete {
				continue
			}
			codename := Codename(action, entity)
			perm, err := s.repo.FindPermission(ctx, codename)
			if err != nil {
				if errors.Is(err, shared.ErrNotFound) {
					s.logger.Warn("permission missing during provisioning",
						slog.String("codename", codename))
					continue
				}
				return Group{}, err
			}
			if err := s.repo.AttachPermission(ctx, group.ID, perm.ID); err != nil {
				return Group{}, err
			}
		}
	}
	return group, nil
}

// EnsureAdminGroup provisions the Administrators group with every
// permission present in the store. Used by the seeder only; superuser
// remains a distinct identity flag that bypasses grant checks entirely.
func (s *Service) EnsureAdminGroup(ctx context.Context) (Group, error) {
	group, err := s.repo.GetOrCreateGroup(ctx, AdminGroupName)
	if err != nil {
		return Group{}, err
	}
	perms, err := s.repo.ListPermissions(ctx)
	if err != nil {
		return Group{}, err
	}
	for _, perm := range perms {
		if err := s.repo.AttachPermission(ctx, group.ID, perm.ID); err != nil {
			return Group{}, err
		}
	}
	return group, nil
}

// GroupGrants returns the grants currently attached to a group.
func (s *Service) GroupGrants(ctx context.Context, groupID int64) ([]Permission, error) {
	return s.repo.GroupPermissions(ctx, groupID)
}

// EffectivePermissions returns the permission codenames a user holds
// through group membership.
func (s *Service) EffectivePermissions(ctx context.Context, userID int64) ([]string, error) {
	return s.repo.UserPermissionCodenames(ctx, userID)
}
