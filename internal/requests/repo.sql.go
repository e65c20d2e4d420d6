package requests

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clientdesk/clientdesk/internal/shared"
)

// Repository defines persistence operations for client requests.
type Repository interface {
	List(ctx context.Context, search, status string) ([]ClientRequest, error)
	Get(ctx context.Context, id int64) (ClientRequest, error)
	Create(ctx context.Context, req ClientRequest) (ClientRequest, error)
	Update(ctx context.Context, req ClientRequest) (ClientRequest, error)
	Delete(ctx context.Context, id int64) error
	BulkSetStatus(ctx context.Context, ids []int64, status string) (int64, error)
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const requestSelect = `
	SELECT cr.id, cr.client_id, cr.request_type_id, c.name, rt.name,
	       cr.description, cr.status, cr.created_at, cr.updated_at
	FROM client_requests cr
	JOIN clients c ON c.id = cr.client_id
	JOIN request_types rt ON rt.id = cr.request_type_id`

func scanRequest(row pgx.Row) (ClientRequest, error) {
	var req ClientRequest
	err := row.Scan(&req.ID, &req.ClientID, &req.RequestTypeID, &req.ClientName, &req.RequestTypeName,
		&req.Description, &req.Status, &req.CreatedAt, &req.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ClientRequest{}, shared.ErrNotFound
		}
		return ClientRequest{}, err
	}
	return req, nil
}

// List returns client requests newest-first, searchable over client and
// request type names, optionally filtered by status.
func (r *PGRepository) List(ctx context.Context, search, status string) ([]ClientRequest, error) {
	query := requestSelect
	args := []any{}
	where := ""
	if search != "" {
		args = append(args, "%"+search+"%")
		where = ` WHERE (c.name ILIKE $1 OR rt.name ILIKE $1)`
	}
	if status != "" {
		args = append(args, status)
		if where == "" {
			where = ` WHERE cr.status = $1`
		} else {
			where += ` AND cr.status = $2`
		}
	}
	query += where + ` ORDER BY cr.created_at DESC`
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []ClientRequest
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, req)
	}
	return out, rows.Err()
}

// Get fetches a client request by ID.
func (r *PGRepository) Get(ctx context.Context, id int64) (ClientRequest, error) {
	return scanRequest(r.pool.QueryRow(ctx, requestSelect+` WHERE cr.id = $1`, id))
}

// Create inserts a new client request.
func (r *PGRepository) Create(ctx context.Context, req ClientRequest) (ClientRequest, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `
		INSERT INTO client_requests (client_id, request_type_id, description, status)
		VALUES ($1, $2, $3, $4)
		RETURNING id`,
		req.ClientID, req.RequestTypeID, req.Description, req.Status).Scan(&id)
	if err != nil {
		return ClientRequest{}, err
	}
	return r.Get(ctx, id)
}

// Update modifies an existing client request and refreshes its updated_at.
func (r *PGRepository) Update(ctx context.Context, req ClientRequest) (ClientRequest, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE client_requests
		SET client_id = $2, request_type_id = $3, description = $4, status = $5, updated_at = now()
		WHERE id = $1`,
		req.ID, req.ClientID, req.RequestTypeID, req.Description, req.Status)
	if err != nil {
		return ClientRequest{}, err
	}
	if tag.RowsAffected() == 0 {
		return ClientRequest{}, shared.ErrNotFound
	}
	return r.Get(ctx, req.ID)
}

// Delete removes a client request.
func (r *PGRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM client_requests WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// BulkSetStatus updates status and updated_at together for every selected
// request inside one transaction, so a store failure applies nothing.
func (r *PGRepository) BulkSetStatus(ctx context.Context, ids []int64, status string) (int64, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, err
	}
	tag, err := tx.Exec(ctx, `
		UPDATE client_requests
		SET status = $1, updated_at = now()
		WHERE id = ANY($2)`, status, ids)
	if err != nil {
		_ = tx.Rollback(ctx)
		return 0, err
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

var _ Repository = (*PGRepository)(nil)
