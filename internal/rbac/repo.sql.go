package rbac

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clientdesk/clientdesk/internal/shared"
)

// Repository defines persistence operations for groups and grants.
type Repository interface {
	GetOrCreateGroup(ctx context.Context, name string) (Group, error)
	FindPermission(ctx context.Context, codename string) (Permission, error)
	ListPermissions(ctx context.Context) ([]Permission, error)
	AttachPermission(ctx context.Context, groupID, permissionID int64) error
	GroupPermissions(ctx context.Context, groupID int64) ([]Permission, error)
	UserPermissionCodenames(ctx context.Context, userID int64) ([]string, error)
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// GetOrCreateGroup looks up or inserts a group by its natural-key name in a
// single statement, so concurrent startups cannot create duplicates.
func (r *PGRepository) GetOrCreateGroup(ctx context.Context, name string) (Group, error) {
	const query = `
		INSERT INTO groups (name)
		VALUES ($1)
		ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
		RETURNING id, name, created_at`
	var group Group
	if err := r.pool.QueryRow(ctx, query, name).Scan(&group.ID, &group.Name, &group.CreatedAt); err != nil {
		return Group{}, err
	}
	return group, nil
}

// FindPermission fetches a permission record by codename.
func (r *PGRepository) FindPermission(ctx context.Context, codename string) (Permission, error) {
	const query = `SELECT id, codename, name FROM permissions WHERE codename = $1`
	var perm Permission
	err := r.pool.QueryRow(ctx, query, codename).Scan(&perm.ID, &perm.Codename, &perm.Name)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Permission{}, shared.ErrNotFound
		}
		return Permission{}, err
	}
	return perm, nil
}

// ListPermissions returns every permission record ordered by codename.
func (r *PGRepository) ListPermissions(ctx context.Context) ([]Permission, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, codename, name FROM permissions ORDER BY codename`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var perms []Permission
	for rows.Next() {
		var perm Permission
		if err := rows.Scan(&perm.ID, &perm.Codename, &perm.Name); err != nil {
			return nil, err
		}
		perms = append(perms, perm)
	}
	return perms, rows.Err()
}

// AttachPermission adds a grant to a group if it is not already attached.
func (r *PGRepository) AttachPermission(ctx context.Context, groupID, permissionID int64) error {
	const query = `
		INSERT INTO group_permissions (group_id, permission_id)
		VALUES ($1, $2)
		ON CONFLICT (group_id, permission_id) DO NOTHING`
	_, err := r.pool.Exec(ctx, query, groupID, permissionID)
	return err
}

// GroupPermissions returns the grants currently held by a group.
func (r *PGRepository) GroupPermissions(ctx context.Context, groupID int64) ([]Permission, error) {
	const query = `
		SELECT p.id, p.codename, p.name
		FROM permissions p
		JOIN group_permissions gp ON gp.permission_id = p.id
		WHERE gp.group_id = $1
		ORDER BY p.codename`
	rows, err := r.pool.Query(ctx, query, groupID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var perms []Permission
	for rows.Next() {
		var perm Permission
		if err := rows.Scan(&perm.ID, &perm.Codename, &perm.Name); err != nil {
			return nil, err
		}
		perms = append(perms, perm)
	}
	return perms, rows.Err()
}

// UserPermissionCodenames returns deduplicated codenames granted to a user
// through group membership.
func (r *PGRepository) UserPermissionCodenames(ctx context.Context, userID int64) ([]string, error) {
	const query = `
		SELECT DISTINCT p.codename
		FROM permissions p
		JOIN group_permissions gp ON gp.permission_id = p.id
		JOIN user_groups ug ON ug.group_id = gp.group_id
		WHERE ug.user_id = $1
		ORDER BY p.codename`
	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var codenames []string
	for rows.Next() {
		var codename string
		if err := rows.Scan(&codename); err != nil {
			return nil, err
		}
		codenames = append(codenames, codename)
	}
	return codenames, rows.Err()
}

var _ Repository = (*PGRepository)(nil)
