package clients

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clientdesk/clientdesk/internal/shared"
)

// Repository defines persistence operations for clients.
type Repository interface {
	List(ctx context.Context, search string) ([]Client, error)
	Get(ctx context.Context, id int64) (Client, error)
	Create(ctx context.Context, client Client) (Client, error)
	Update(ctx context.Context, client Client) (Client, error)
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

const clientColumns = `id, name, email, contact_number, company_url, is_active, created_at`

func scanClient(row pgx.Row) (Client, error) {
	var c Client
	err := row.Scan(&c.ID, &c.Name, &c.Email, &c.ContactNumber, &c.CompanyURL, &c.IsActive, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Client{}, shared.ErrNotFound
		}
		return Client{}, err
	}
	return c, nil
}

// List returns clients newest-first, optionally filtered by a search term
// over name, email, contact number and company URL.
func (r *PGRepository) List(ctx context.Context, search string) ([]Client, error) {
	query := `SELECT ` + clientColumns + ` FROM clients`
	args := []any{}
	if search != "" {
		query += ` WHERE name ILIKE $1 OR email ILIKE $1 OR contact_number ILIKE $1 OR company_url ILIKE $1`
		args = append(args, "%"+search+"%")
	}
	query += ` ORDER BY created_at DESC`
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Client
	for rows.Next() {
		c, err := scanClient(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Get fetches a client by ID.
func (r *PGRepository) Get(ctx context.Context, id int64) (Client, error) {
	return scanClient(r.pool.QueryRow(ctx,
		`SELECT `+clientColumns+` FROM clients WHERE id = $1`, id))
}

// Create inserts a new client.
func (r *PGRepository) Create(ctx context.Context, client Client) (Client, error) {
	return scanClient(r.pool.QueryRow(ctx, `
		INSERT INTO clients (name, email, contact_number, company_url, is_active)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+clientColumns,
		client.Name, client.Email, client.ContactNumber, client.CompanyURL, client.IsActive))
}

// Update modifies an existing client.
func (r *PGRepository) Update(ctx context.Context, client Client) (Client, error) {
	return scanClient(r.pool.QueryRow(ctx, `
		UPDATE clients
		SET name = $2, email = $3, contact_number = $4, company_url = $5, is_active = $6
		WHERE id = $1
		RETURNING `+clientColumns,
		client.ID, client.Name, client.Email, client.ContactNumber, client.CompanyURL, client.IsActive))
}

// Delete removes a client. Dependent client requests cascade at the store
// level.
func (r *PGRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM clients WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

var _ Repository = (*PGRepository)(nil)
