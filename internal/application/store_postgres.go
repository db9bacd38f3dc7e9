// Copyright (c) 2026 Tessera. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package application

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taibuivan/tessera/internal/platform/dberr"
	"github.com/taibuivan/tessera/pkg/uuidv7"
)

// PostgresRepository implements [Repository] using pgx.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL implementation of the Repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

const applicationColumns = `id, name, code, description, base_url, img_path, icon_path, is_active, single_session, created_at, updated_at, deleted_at`

func scanApplication(row interface{ Scan(dest ...any) error }) (*Application, error) {
	app := &Application{}
	err := row.Scan(
		&app.ID,
		&app.Name,
		&app.Code,
		&app.Description,
		&app.BaseURL,
		&app.ImgPath,
		&app.IconPath,
		&app.IsActive,
		&app.SingleSession,
		&app.CreatedAt,
		&app.UpdatedAt,
		&app.DeletedAt,
	)
	if err != nil {
		return nil, err
	}
	return app, nil
}

func (repository *PostgresRepository) FindByID(context context.Context, id string) (*Application, error) {
	const query = `
		SELECT ` + applicationColumns + `
		FROM applications
		WHERE id = $1 AND deleted_at IS NULL`

	app, err := scanApplication(repository.pool.QueryRow(context, query, id))
	if err != nil {
		return nil, dberr.Wrap(err, "find_application_by_id")
	}
	return app, nil
}

func (repository *PostgresRepository) FindByCode(context context.Context, code string) (*Application, error) {
	const query = `
		SELECT ` + applicationColumns + `
		FROM applications
		WHERE code = $1 AND deleted_at IS NULL`

	app, err := scanApplication(repository.pool.QueryRow(context, query, code))
	if err != nil {
		return nil, dberr.Wrap(err, "find_application_by_code")
	}
	return app, nil
}

func (repository *PostgresRepository) ListForUser(context context.Context, userID string) ([]*Application, error) {
	const query = `
		SELECT ` + applicationColumns + `
		FROM applications a
		JOIN user_applications ua ON ua.application_id = a.id
		WHERE ua.user_id = $1 AND a.deleted_at IS NULL
		ORDER BY a.name ASC`

	rows, err := repository.pool.Query(context, query, userID)
	if err != nil {
		return nil, dberr.Wrap(err, "list_user_applications")
	}
	defer rows.Close()

	var apps []*Application
	for rows.Next() {
		app, err := scanApplication(rows)
		if err != nil {
			return nil, dberr.Wrap(err, "scan_application")
		}
		apps = append(apps, app)
	}

	return apps, nil
}

func (repository *PostgresRepository) List(context context.Context, filter Filter, limit, offset int) ([]*Application, int, error) {
	where := ` WHERE deleted_at IS NULL`
	args := []any{}

	if filter.IsActive != nil {
		args = append(args, *filter.IsActive)
		where += fmt.Sprintf(" AND is_active = $%d", len(args))
	}

	var total int
	if err := repository.pool.QueryRow(context, `SELECT count(*) FROM applications`+where, args...).Scan(&total); err != nil {
		return nil, 0, dberr.Wrap(err, "count_applications")
	}

	query := `SELECT ` + applicationColumns + ` FROM applications` + where +
		fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	rows, err := repository.pool.Query(context, query, args...)
	if err != nil {
		return nil, 0, dberr.Wrap(err, "list_applications")
	}
	defer rows.Close()

	var apps []*Application
	for rows.Next() {
		app, err := scanApplication(rows)
		if err != nil {
			return nil, 0, dberr.Wrap(err, "scan_application")
		}
		apps = append(apps, app)
	}

	return apps, total, nil
}

func (repository *PostgresRepository) Create(context context.Context, app *Application) error {
	const query = `
		INSERT INTO applications (id, name, code, description, base_url, is_active, single_session)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at`

	if app.ID == "" {
		app.ID = uuidv7.New() // Time-sortable ID to prevent PG index fragmentation.
	}

	err := repository.pool.QueryRow(context, query,
		app.ID,
		app.Name,
		app.Code,
		app.Description,
		app.BaseURL,
		app.IsActive,
		app.SingleSession,
	).Scan(&app.CreatedAt, &app.UpdatedAt)

	if err != nil {
		return dberr.Wrap(err, "create_application")
	}
	return nil
}

func (repository *PostgresRepository) Update(context context.Context, id string, params UpdateParams) (*Application, error) {
	// COALESCE folds nil parameters into the stored value so one statement
	// covers every partial-update combination.
	const query = `
		UPDATE applications
		SET name           = COALESCE($2, name),
		    description    = COALESCE($3, description),
		    base_url       = COALESCE($4, base_url),
		    img_path       = COALESCE($5, img_path),
		    icon_path      = COALESCE($6, icon_path),
		    is_active      = COALESCE($7, is_active),
		    single_session = COALESCE($8, single_session),
		    updated_at     = now()
		WHERE id = $1 AND deleted_at IS NULL
		RETURNING ` + applicationColumns

	app, err := scanApplication(repository.pool.QueryRow(context, query,
		id,
		params.Name,
		params.Description,
		params.BaseURL,
		params.ImgPath,
		params.IconPath,
		params.IsActive,
		params.SingleSession,
	))
	if err != nil {
		return nil, dberr.Wrap(err, "update_application")
	}

	return app, nil
}

func (repository *PostgresRepository) SoftDelete(context context.Context, id string) error {
	const query = `
		UPDATE applications
		SET deleted_at = now(), updated_at = now()
		WHERE id = $1 AND deleted_at IS NULL`

	tag, err := repository.pool.Exec(context, query, id)
	if err != nil {
		return dberr.Wrap(err, "delete_application")
	}
	if tag.RowsAffected() == 0 {
		return dberr.ErrNotFound
	}
	return nil
}

func (repository *PostgresRepository) Grant(context context.Context, userID, applicationID string) error {
	const query = `
		INSERT INTO user_applications (user_id, application_id)
		VALUES ($1, $2)
		ON CONFLICT (user_id, application_id) DO NOTHING`

	if _, err := repository.pool.Exec(context, query, userID, applicationID); err != nil {
		return dberr.Wrap(err, "grant_application")
	}
	return nil
}

func (repository *PostgresRepository) Revoke(context context.Context, userID, applicationID string) error {
	const query = `
		DELETE FROM user_applications
		WHERE user_id = $1 AND application_id = $2`

	if _, err := repository.pool.Exec(context, query, userID, applicationID); err != nil {
		return dberr.Wrap(err, "revoke_application")
	}
	return nil
}
