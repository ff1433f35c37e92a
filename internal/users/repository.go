package users

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-admin/meridian/internal/shared"
)

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const userColumns = `id, email, name, is_active, deleted_at, purge_at, created_at, updated_at`

// List returns users matching the filters plus the total count.
func (r *Repository) List(ctx context.Context, filters ListFilters) ([]User, int, error) {
	perPage := filters.PerPage
	if perPage <= 0 {
		perPage = 20
	}
	page := filters.Page
	if page <= 0 {
		page = 1
	}

	where := `WHERE ($1 = '' OR name ILIKE '%' || $1 || '%' OR email ILIKE '%' || $1 || '%')
		AND ($2 OR $3 = 'soft_deleted' OR deleted_at IS NULL)
		AND ($3 = ''
			OR ($3 = 'active' AND is_active AND deleted_at IS NULL)
			OR ($3 = 'inactive' AND NOT is_active AND deleted_at IS NULL)
			OR ($3 = 'soft_deleted' AND deleted_at IS NOT NULL))`
	args := []any{filters.Search, filters.IncludeDeleted, string(filters.Status)}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM users `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx,
		`SELECT `+userColumns+` FROM users `+where+` ORDER BY id LIMIT $4 OFFSET $5`,
		append(args, perPage, (page-1)*perPage)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, 0, err
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

// Get fetches a user by ID, soft-deleted rows included.
func (r *Repository) Get(ctx context.Context, id int64) (User, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, shared.ErrNotFound
		}
		return User{}, err
	}
	return user, nil
}

// SetActive toggles the active flag on a live row.
func (r *Repository) SetActive(ctx context.Context, id int64, active bool) (User, error) {
	row := r.pool.QueryRow(ctx,
		`UPDATE users SET is_active = $2, updated_at = NOW()
		 WHERE id = $1 AND deleted_at IS NULL
		 RETURNING `+userColumns, id, active)
	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, shared.ErrNotFound
		}
		return User{}, err
	}
	return user, nil
}

// SoftDelete stamps the deletion and purge deadlines.
func (r *Repository) SoftDelete(ctx context.Context, id int64, deletedAt, purgeAt time.Time) (User, error) {
	row := r.pool.QueryRow(ctx,
		`UPDATE users SET is_active = FALSE, deleted_at = $2, purge_at = $3, updated_at = NOW()
		 WHERE id = $1 AND deleted_at IS NULL
		 RETURNING `+userColumns, id, deletedAt, purgeAt)
	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, shared.ErrNotFound
		}
		return User{}, err
	}
	return user, nil
}

// Restore clears the deletion stamps and reactivates the row.
func (r *Repository) Restore(ctx context.Context, id int64) (User, error) {
	row := r.pool.QueryRow(ctx,
		`UPDATE users SET is_active = TRUE, deleted_at = NULL, purge_at = NULL, updated_at = NOW()
		 WHERE id = $1 AND deleted_at IS NOT NULL
		 RETURNING `+userColumns, id)
	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, shared.ErrNotFound
		}
		return User{}, err
	}
	return user, nil
}

// PurgeExpired hard-deletes rows whose purge deadline has passed.
func (r *Repository) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM users WHERE deleted_at IS NOT NULL AND purge_at <= $1`, now)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

var _ RepositoryPort = (*Repository)(nil)

func scanUser(row pgx.Row) (User, error) {
	var user User
	if err := row.Scan(&user.ID, &user.Email, &user.Name, &user.IsActive,
		&user.DeletedAt, &user.PurgeAt, &user.CreatedAt, &user.UpdatedAt); err != nil {
		return User{}, err
	}
	return user, nil
}
