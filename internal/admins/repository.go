package admins

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-admin/meridian/internal/shared"
)

const uniqueViolation = "23505"

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const adminColumns = `id, name, email, password_hash, role_id, is_active, last_login, created_at, updated_at`

// List returns all live admin accounts.
func (r *Repository) List(ctx context.Context) ([]Admin, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+adminColumns+` FROM admins WHERE deleted_at IS NULL ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Admin
	for rows.Next() {
		admin, err := scanAdmin(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, admin)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Get fetches a live admin by ID.
func (r *Repository) Get(ctx context.Context, id int64) (Admin, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+adminColumns+` FROM admins WHERE id = $1 AND deleted_at IS NULL`, id)
	admin, err := scanAdmin(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Admin{}, shared.ErrNotFound
		}
		return Admin{}, err
	}
	return admin, nil
}

// Create inserts a new admin account.
func (r *Repository) Create(ctx context.Context, admin Admin) (Admin, error) {
	row := r.pool.QueryRow(ctx,
		`INSERT INTO admins (name, email, password_hash, role_id, is_active)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING `+adminColumns,
		admin.Name, admin.Email, admin.PasswordHash, admin.RoleID, admin.IsActive)
	created, err := scanAdmin(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return Admin{}, fmt.Errorf("admins: email %q already registered: %w", admin.Email, shared.ErrDuplicateName)
		}
		return Admin{}, err
	}
	return created, nil
}

// Update persists mutable admin fields.
func (r *Repository) Update(ctx context.Context, admin Admin) (Admin, error) {
	row := r.pool.QueryRow(ctx,
		`UPDATE admins
		 SET name = $2, email = $3, role_id = $4, is_active = $5, updated_at = NOW()
		 WHERE id = $1 AND deleted_at IS NULL
		 RETURNING `+adminColumns,
		admin.ID, admin.Name, admin.Email, admin.RoleID, admin.IsActive)
	updated, err := scanAdmin(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Admin{}, shared.ErrNotFound
		}
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return Admin{}, fmt.Errorf("admins: email %q already registered: %w", admin.Email, shared.ErrDuplicateName)
		}
		return Admin{}, err
	}
	return updated, nil
}

// UpdatePassword replaces the stored credential hash.
func (r *Repository) UpdatePassword(ctx context.Context, id int64, hash string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE admins SET password_hash = $2, updated_at = NOW() WHERE id = $1 AND deleted_at IS NULL`,
		id, hash)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// Delete soft-deletes an admin account.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE admins SET deleted_at = NOW(), updated_at = NOW() WHERE id = $1 AND deleted_at IS NULL`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

var _ RepositoryPort = (*Repository)(nil)

func scanAdmin(row pgx.Row) (Admin, error) {
	var admin Admin
	if err := row.Scan(&admin.ID, &admin.Name, &admin.Email, &admin.PasswordHash,
		&admin.RoleID, &admin.IsActive, &admin.LastLogin,
		&admin.CreatedAt, &admin.UpdatedAt); err != nil {
		return Admin{}, err
	}
	return admin, nil
}
