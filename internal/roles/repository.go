package roles

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-admin/meridian/internal/platform/db"
	"github.com/meridian-admin/meridian/internal/rbac"
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

const roleColumns = `id, name, description, grants, is_active, is_default, version, created_by, created_at, updated_at`

// List returns all live roles in insertion order.
func (r *Repository) List(ctx context.Context) ([]Role, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+roleColumns+` FROM roles WHERE deleted_at IS NULL ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var roles []Role
	for rows.Next() {
		role, err := scanRole(rows)
		if err != nil {
			return nil, err
		}
		roles = append(roles, role)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return roles, nil
}

// Get fetches a live role by ID.
func (r *Repository) Get(ctx context.Context, id int64) (Role, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+roleColumns+` FROM roles WHERE id = $1 AND deleted_at IS NULL`, id)
	role, err := scanRole(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Role{}, shared.ErrNotFound
		}
		return Role{}, err
	}
	return role, nil
}

// GetByName fetches a live role by exact name.
func (r *Repository) GetByName(ctx context.Context, name string) (Role, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+roleColumns+` FROM roles WHERE name = $1 AND deleted_at IS NULL`, name)
	role, err := scanRole(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Role{}, shared.ErrNotFound
		}
		return Role{}, err
	}
	return role, nil
}

// Create inserts a new role.
func (r *Repository) Create(ctx context.Context, role Role) (Role, error) {
	grants, err := marshalGrants(role.Grants)
	if err != nil {
		return Role{}, err
	}
	row := r.pool.QueryRow(ctx,
		`INSERT INTO roles (name, description, grants, is_active, is_default, version, created_by)
		 VALUES ($1, $2, $3, $4, $5, 1, $6)
		 RETURNING `+roleColumns,
		role.Name, role.Description, grants, role.IsActive, role.IsDefault, role.CreatedBy)
	created, err := scanRole(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return Role{}, fmt.Errorf("roles: %q: %w", role.Name, shared.ErrDuplicateName)
		}
		return Role{}, err
	}
	return created, nil
}

// Update persists the role guarded by the optimistic version check.
func (r *Repository) Update(ctx context.Context, role Role, expectedVersion int64) (Role, error) {
	grants, err := marshalGrants(role.Grants)
	if err != nil {
		return Role{}, err
	}
	row := r.pool.QueryRow(ctx,
		`UPDATE roles
		 SET name = $2, description = $3, grants = $4, is_active = $5,
		     version = version + 1, updated_at = NOW()
		 WHERE id = $1 AND deleted_at IS NULL AND ($6 = 0 OR version = $6)
		 RETURNING `+roleColumns,
		role.ID, role.Name, role.Description, grants, role.IsActive, expectedVersion)
	updated, err := scanRole(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Distinguish a vanished row from a lost version race.
			if _, getErr := r.Get(ctx, role.ID); errors.Is(getErr, shared.ErrNotFound) {
				return Role{}, shared.ErrNotFound
			}
			return Role{}, shared.ErrStaleVersion
		}
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return Role{}, fmt.Errorf("roles: %q: %w", role.Name, shared.ErrDuplicateName)
		}
		return Role{}, err
	}
	return updated, nil
}

// Delete soft-deletes a role. The reference recheck runs in the same
// transaction so an admin assigned between the service check and the delete
// still blocks it.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		var count int
		if err := tx.QueryRow(ctx,
			`SELECT COUNT(*) FROM admins WHERE role_id = $1 AND deleted_at IS NULL`, id).Scan(&count); err != nil {
			return err
		}
		if count > 0 {
			return fmt.Errorf("roles: %d admins still assigned: %w", count, shared.ErrRoleInUse)
		}
		tag, err := tx.Exec(ctx,
			`UPDATE roles SET deleted_at = NOW(), updated_at = NOW() WHERE id = $1 AND deleted_at IS NULL`, id)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return shared.ErrNotFound
		}
		return nil
	})
}

// CountAdmins reports how many admins currently reference the role.
func (r *Repository) CountAdmins(ctx context.Context, roleID int64) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM admins WHERE role_id = $1 AND deleted_at IS NULL`, roleID).Scan(&count)
	return count, err
}

var _ RepositoryPort = (*Repository)(nil)

func marshalGrants(grants []rbac.Grant) ([]byte, error) {
	if grants == nil {
		grants = []rbac.Grant{}
	}
	return json.Marshal(grants)
}

func scanRole(row pgx.Row) (Role, error) {
	var role Role
	var grantsJSON []byte
	if err := row.Scan(&role.ID, &role.Name, &role.Description, &grantsJSON,
		&role.IsActive, &role.IsDefault, &role.Version, &role.CreatedBy,
		&role.CreatedAt, &role.UpdatedAt); err != nil {
		return Role{}, err
	}
	if len(grantsJSON) > 0 {
		if err := json.Unmarshal(grantsJSON, &role.Grants); err != nil {
			return Role{}, err
		}
	}
	return role, nil
}
