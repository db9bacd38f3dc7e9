// Copyright (c) 2026 Tessera. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package identity

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taibuivan/tessera/internal/platform/dberr"
)

// # User Repository

// PostgresUserRepository implements [UserRepository] using pgx.
type PostgresUserRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository creates a new PostgreSQL implementation of the UserRepository.
func NewUserRepository(pool *pgxpool.Pool) *PostgresUserRepository {
	return &PostgresUserRepository{pool: pool}
}

const userColumns = `id, name, email, phone, avatar_path, status, role, created_at, updated_at, deleted_at`

func scanUser(row interface{ Scan(dest ...any) error }) (*User, error) {
	user := &User{}
	err := row.Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&user.Phone,
		&user.AvatarPath,
		&user.Status,
		&user.Role,
		&user.CreatedAt,
		&user.UpdatedAt,
		&user.DeletedAt,
	)
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (repository *PostgresUserRepository) FindByID(context context.Context, id string) (*User, error) {
	const query = `
		SELECT ` + userColumns + `
		FROM users
		WHERE id = $1 AND deleted_at IS NULL`

	user, err := scanUser(repository.pool.QueryRow(context, query, id))
	if err != nil {
		return nil, dberr.Wrap(err, "find_user_by_id")
	}
	return user, nil
}

func (repository *PostgresUserRepository) FindByEmail(context context.Context, email string) (*User, error) {
	const query = `
		SELECT ` + userColumns + `
		FROM users
		WHERE email = $1 AND deleted_at IS NULL`

	user, err := scanUser(repository.pool.QueryRow(context, query, email))
	if err != nil {
		return nil, dberr.Wrap(err, "find_user_by_email")
	}
	return user, nil
}

func (repository *PostgresUserRepository) List(context context.Context, filter Filter, limit, offset int) ([]*User, int, error) {
	where := ` WHERE deleted_at IS NULL`
	args := []any{}

	if filter.Status != "" {
		args = append(args, filter.Status)
		where += fmt.Sprintf(" AND status = $%d", len(args))
	}
	if filter.Role != "" {
		args = append(args, filter.Role)
		where += fmt.Sprintf(" AND role = $%d", len(args))
	}
	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		where += fmt.Sprintf(" AND (name ILIKE $%d OR email ILIKE $%d)", len(args), len(args))
	}

	var total int
	if err := repository.pool.QueryRow(context, `SELECT count(*) FROM users`+where, args...).Scan(&total); err != nil {
		return nil, 0, dberr.Wrap(err, "count_users")
	}

	query := `SELECT ` + userColumns + ` FROM users` + where +
		fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	rows, err := repository.pool.Query(context, query, args...)
	if err != nil {
		return nil, 0, dberr.Wrap(err, "list_users")
	}
	defer rows.Close()

	var users []*User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, 0, dberr.Wrap(err, "scan_user")
		}
		users = append(users, user)
	}

	return users, total, nil
}

func (repository *PostgresUserRepository) UpdateStatus(context context.Context, id, status string) error {
	// Deletion is a soft delete: the row survives for audit but every lookup
	// in this package filters it out from now on.
	const query = `
		UPDATE users
		SET status = $2,
		    deleted_at = CASE WHEN $2 = 'deleted' THEN now() ELSE deleted_at END,
		    updated_at = now()
		WHERE id = $1 AND deleted_at IS NULL`

	tag, err := repository.pool.Exec(context, query, id, status)
	if err != nil {
		return dberr.Wrap(err, "update_user_status")
	}
	if tag.RowsAffected() == 0 {
		return dberr.ErrNotFound
	}
	return nil
}

func (repository *PostgresUserRepository) UpdateAvatarPath(context context.Context, id, path string) error {
	const query = `
		UPDATE users
		SET avatar_path = $2, updated_at = now()
		WHERE id = $1 AND deleted_at IS NULL`

	tag, err := repository.pool.Exec(context, query, id, path)
	if err != nil {
		return dberr.Wrap(err, "update_user_avatar")
	}
	if tag.RowsAffected() == 0 {
		return dberr.ErrNotFound
	}
	return nil
}

// # Binding Repository

// PostgresBindingRepository implements [BindingRepository] using pgx.
type PostgresBindingRepository struct {
	pool *pgxpool.Pool
}

// NewBindingRepository creates a new PostgreSQL implementation of the BindingRepository.
func NewBindingRepository(pool *pgxpool.Pool) *PostgresBindingRepository {
	return &PostgresBindingRepository{pool: pool}
}

const bindingColumns = `id, user_id, provider, provider_user_id, password_hash, last_used_at, created_at, updated_at`

func scanBinding(row interface{ Scan(dest ...any) error }) (*Binding, error) {
	binding := &Binding{}
	err := row.Scan(
		&binding.ID,
		&binding.UserID,
		&binding.Provider,
		&binding.ProviderUserID,
		&binding.PasswordHash,
		&binding.LastUsedAt,
		&binding.CreatedAt,
		&binding.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return binding, nil
}

func (repository *PostgresBindingRepository) FindByProviderSubject(context context.Context, provider, subject string) (*Binding, error) {
	const query = `
		SELECT ` + bindingColumns + `
		FROM auth_providers
		WHERE provider = $1 AND provider_user_id = $2`

	binding, err := scanBinding(repository.pool.QueryRow(context, query, provider, subject))
	if err != nil {
		return nil, dberr.Wrap(err, "find_binding")
	}
	return binding, nil
}

func (repository *PostgresBindingRepository) FindWithUser(context context.Context, provider, subject string) (*Binding, *User, error) {
	const query = `
		SELECT ap.id, ap.user_id, ap.provider, ap.provider_user_id, ap.password_hash,
		       ap.last_used_at, ap.created_at, ap.updated_at,
		       u.id, u.name, u.email, u.phone, u.avatar_path, u.status, u.role,
		       u.created_at, u.updated_at, u.deleted_at
		FROM auth_providers ap
		JOIN users u ON u.id = ap.user_id
		WHERE ap.provider = $1 AND ap.provider_user_id = $2 AND u.deleted_at IS NULL`

	binding := &Binding{}
	user := &User{}
	err := repository.pool.QueryRow(context, query, provider, subject).Scan(
		&binding.ID, &binding.UserID, &binding.Provider, &binding.ProviderUserID,
		&binding.PasswordHash, &binding.LastUsedAt, &binding.CreatedAt, &binding.UpdatedAt,
		&user.ID, &user.Name, &user.Email, &user.Phone, &user.AvatarPath,
		&user.Status, &user.Role, &user.CreatedAt, &user.UpdatedAt, &user.DeletedAt,
	)
	if err != nil {
		return nil, nil, dberr.Wrap(err, "find_binding_with_user")
	}

	return binding, user, nil
}

func (repository *PostgresBindingRepository) FindByUserID(context context.Context, userID string) ([]*Binding, error) {
	const query = `
		SELECT ` + bindingColumns + `
		FROM auth_providers
		WHERE user_id = $1
		ORDER BY created_at ASC`

	rows, err := repository.pool.Query(context, query, userID)
	if err != nil {
		return nil, dberr.Wrap(err, "list_bindings")
	}
	defer rows.Close()

	var bindings []*Binding
	for rows.Next() {
		binding, err := scanBinding(rows)
		if err != nil {
			return nil, dberr.Wrap(err, "scan_binding")
		}
		bindings = append(bindings, binding)
	}

	return bindings, nil
}

func (repository *PostgresBindingRepository) Create(context context.Context, binding *Binding) error {
	const query = `
		INSERT INTO auth_providers (user_id, provider, provider_user_id, password_hash, last_used_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at`

	now := time.Now()
	if binding.LastUsedAt == nil {
		binding.LastUsedAt = &now
	}

	err := repository.pool.QueryRow(context, query,
		binding.UserID,
		binding.Provider,
		binding.ProviderUserID,
		binding.PasswordHash,
		binding.LastUsedAt,
	).Scan(&binding.ID, &binding.CreatedAt, &binding.UpdatedAt)

	if err != nil {
		return dberr.Wrap(err, "create_binding")
	}
	return nil
}

func (repository *PostgresBindingRepository) TouchLastUsed(context context.Context, id int64) error {
	const query = `
		UPDATE auth_providers
		SET last_used_at = now(), updated_at = now()
		WHERE id = $1`

	if _, err := repository.pool.Exec(context, query, id); err != nil {
		return dberr.Wrap(err, "touch_binding")
	}
	return nil
}
