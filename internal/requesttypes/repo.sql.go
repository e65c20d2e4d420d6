package requesttypes

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clientdesk/clientdesk/internal/shared"
)

// Repository defines persistence operations for request types.
type Repository interface {
	List(ctx context.Context, search string) ([]RequestType, error)
	Get(ctx context.Context, id int64) (RequestType, error)
	Create(ctx context.Context, rt RequestType) (RequestType, error)
	Update(ctx context.Context, rt RequestType) (RequestType, error)
	Delete(ctx context.Context, id int64) error
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

func scanRequestType(row pgx.Row) (RequestType, error) {
	var rt RequestType
	if err := row.Scan(&rt.ID, &rt.Name, &rt.Description); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return RequestType{}, shared.ErrNotFound
		}
		return RequestType{}, err
	}
	return rt, nil
}

// List returns request types ordered by name, optionally filtered by name.
func (r *PGRepository) List(ctx context.Context, search string) ([]RequestType, error) {
	query := `SELECT id, name, description FROM request_types`
	args := []any{}
	if search != "" {
		query += ` WHERE name ILIKE $1`
		args = append(args, "%"+search+"%")
	}
	query += ` ORDER BY name`
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []RequestType
	for rows.Next() {
		rt, err := scanRequestType(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rt)
	}
	return out, rows.Err()
}

// Get fetches a request type by ID.
func (r *PGRepository) Get(ctx context.Context, id int64) (RequestType, error) {
	return scanRequestType(r.pool.QueryRow(ctx,
		`SELECT id, name, description FROM request_types WHERE id = $1`, id))
}

// Create inserts a new request type.
func (r *PGRepository) Create(ctx context.Context, rt RequestType) (RequestType, error) {
	return scanRequestType(r.pool.QueryRow(ctx, `
		INSERT INTO request_types (name, description)
		VALUES ($1, $2)
		RETURNING id, name, description`, rt.Name, rt.Description))
}

// Update modifies an existing request type.
func (r *PGRepository) Update(ctx context.Context, rt RequestType) (RequestType, error) {
	return scanRequestType(r.pool.QueryRow(ctx, `
		UPDATE request_types SET name = $2, description = $3
		WHERE id = $1
		RETURNING id, name, description`, rt.ID, rt.Name, rt.Description))
}

// Delete removes a request type. Dependent client requests cascade at the
// store level.
func (r *PGRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM request_types WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

var _ Repository = (*PGRepository)(nil)
