package modules

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sentinel-iam/sentinel-iam/internal/platform/db"
	"github.com/sentinel-iam/sentinel-iam/internal/shared"
)

type dbtx interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

type repository struct {
	db   dbtx
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL backed repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{db: pool, pool: pool}
}

func (r *repository) WithTx(ctx context.Context, fn func(context.Context, Repository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &repository{db: tx, pool: r.pool})
	})
}

const moduleColumns = `id, name, description, is_active, created_at, updated_at`

func (r *repository) Get(ctx context.Context, id int64) (*Module, error) {
	row := r.db.QueryRow(ctx, `SELECT `+moduleColumns+` FROM modules WHERE id = $1`, id)
	return scanModule(row, id, "")
}

func (r *repository) GetByName(ctx context.Context, name string) (*Module, error) {
	row := r.db.QueryRow(ctx, `SELECT `+moduleColumns+` FROM modules WHERE name = $1`, name)
	return scanModule(row, 0, name)
}

func (r *repository) List(ctx context.Context, filter ListFilter) ([]Module, int, error) {
	where := "TRUE"
	args := []interface{}{}
	argPos := 1

	if filter.Search != nil && *filter.Search != "" {
		where += fmt.Sprintf(" AND (name ILIKE $%d OR description ILIKE $%d)", argPos, argPos)
		args = append(args, "%"+*filter.Search+"%")
		argPos++
	}
	if filter.IsActive != nil {
		where += fmt.Sprintf(" AND is_active = $%d", argPos)
		args = append(args, *filter.IsActive)
		argPos++
	}

	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM modules WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(`SELECT %s FROM modules WHERE %s ORDER BY name LIMIT $%d OFFSET $%d`,
		moduleColumns, where, argPos, argPos+1)
	args = append(args, filter.Limit, filter.Offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []Module
	for rows.Next() {
		var m Module
		if err := rows.Scan(&m.ID, &m.Name, &m.Description, &m.IsActive, &m.CreatedAt, &m.UpdatedAt); err != nil {
			return nil, 0, err
		}
		out = append(out, m)
	}
	return out, total, rows.Err()
}

func (r *repository) Create(ctx context.Context, m Module) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx,
		`INSERT INTO modules (name, description, is_active) VALUES ($1, $2, $3) RETURNING id`,
		m.Name, m.Description, m.IsActive).Scan(&id)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, &shared.ConflictError{Entity: "module", Reason: fmt.Sprintf("name %q already exists", m.Name)}
		}
		return 0, err
	}
	return id, nil
}

func (r *repository) Update(ctx context.Context, id int64, updates map[string]interface{}) error {
	query := "UPDATE modules SET updated_at = NOW()"
	var args []interface{}
	argPos := 1

	for _, col := range []string{"name", "description", "is_active"} {
		if v, ok := updates[col]; ok {
			query += fmt.Sprintf(", %s = $%d", col, argPos)
			args = append(args, v)
			argPos++
		}
	}

	query += fmt.Sprintf(" WHERE id = $%d", argPos)
	args = append(args, id)

	tag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		if isUniqueViolation(err) {
			return &shared.ConflictError{Entity: "module", Reason: "name already exists"}
		}
		return err
	}
	if tag.RowsAffected() == 0 {
		return &shared.NotFoundError{Entity: "module", ID: id}
	}
	return nil
}

func (r *repository) CountActivePermissions(ctx context.Context, moduleID int64) (int, error) {
	var count int
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM permissions WHERE module_id = $1 AND is_active`, moduleID).Scan(&count)
	return count, err
}

// DeleteCascade removes the module plus any remaining inactive permissions
// and their join records. Callers must run it via WithTx after the active
// permission check so no permission can appear mid-delete.
func (r *repository) DeleteCascade(ctx context.Context, moduleID int64) (DeleteResult, error) {
	var result DeleteResult

	tag, err := r.db.Exec(ctx, `
		DELETE FROM role_permissions
		WHERE permission_id IN (SELECT id FROM permissions WHERE module_id = $1)`, moduleID)
	if err != nil {
		return result, err
	}
	result.RoleLinks = int(tag.RowsAffected())

	tag, err = r.db.Exec(ctx, `
		DELETE FROM user_permissions
		WHERE permission_id IN (SELECT id FROM permissions WHERE module_id = $1)`, moduleID)
	if err != nil {
		return result, err
	}
	result.UserGrantLinks = int(tag.RowsAffected())

	tag, err = r.db.Exec(ctx, `DELETE FROM permissions WHERE module_id = $1`, moduleID)
	if err != nil {
		return result, err
	}
	result.Permissions = int(tag.RowsAffected())

	tag, err = r.db.Exec(ctx, `DELETE FROM modules WHERE id = $1`, moduleID)
	if err != nil {
		return result, err
	}
	if tag.RowsAffected() == 0 {
		return result, &shared.NotFoundError{Entity: "module", ID: moduleID}
	}
	return result, nil
}

func scanModule(row pgx.Row, id int64, name string) (*Module, error) {
	var m Module
	err := row.Scan(&m.ID, &m.Name, &m.Description, &m.IsActive, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &shared.NotFoundError{Entity: "module", ID: id, Name: name}
		}
		return nil, err
	}
	return &m, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
