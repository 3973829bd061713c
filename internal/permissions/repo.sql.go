package permissions

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

const permissionColumns = `p.id, p.module_id, m.name, p.action, p.name, p.description, p.is_active, p.created_at, p.updated_at`

func (r *repository) Get(ctx context.Context, id int64) (*Permission, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+permissionColumns+`
		FROM permissions p
		JOIN modules m ON m.id = p.module_id
		WHERE p.id = $1`, id)
	var p Permission
	err := row.Scan(&p.ID, &p.ModuleID, &p.ModuleName, &p.Action, &p.Name, &p.Description, &p.IsActive, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &shared.NotFoundError{Entity: "permission", ID: id}
		}
		return nil, err
	}
	return &p, nil
}

func (r *repository) List(ctx context.Context, filter ListFilter) ([]Permission, int, error) {
	where := "TRUE"
	args := []interface{}{}
	argPos := 1

	if filter.ModuleID != nil {
		where += fmt.Sprintf(" AND p.module_id = $%d", argPos)
		args = append(args, *filter.ModuleID)
		argPos++
	}
	if filter.Search != nil && *filter.Search != "" {
		where += fmt.Sprintf(" AND (p.name ILIKE $%d OR p.description ILIKE $%d)", argPos, argPos)
		args = append(args, "%"+*filter.Search+"%")
		argPos++
	}
	if filter.IsActive != nil {
		where += fmt.Sprintf(" AND p.is_active = $%d", argPos)
		args = append(args, *filter.IsActive)
		argPos++
	}

	var total int
	countQuery := `SELECT COUNT(*) FROM permissions p WHERE ` + where
	if err := r.db.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM permissions p
		JOIN modules m ON m.id = p.module_id
		WHERE %s
		ORDER BY m.name, p.action
		LIMIT $%d OFFSET $%d`, permissionColumns, where, argPos, argPos+1)
	args = append(args, filter.Limit, filter.Offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []Permission
	for rows.Next() {
		var p Permission
		if err := rows.Scan(&p.ID, &p.ModuleID, &p.ModuleName, &p.Action, &p.Name, &p.Description, &p.IsActive, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, 0, err
		}
		out = append(out, p)
	}
	return out, total, rows.Err()
}

func (r *repository) Create(ctx context.Context, p Permission) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx, `
		INSERT INTO permissions (module_id, action, name, description, is_active)
		VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		p.ModuleID, p.Action, p.Name, p.Description, p.IsActive).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch pgErr.Code {
			case "23505":
				return 0, &shared.ConflictError{
					Entity: "permission",
					Reason: fmt.Sprintf("active permission for action %q already exists on module %d", p.Action, p.ModuleID),
				}
			case "23503":
				return 0, &shared.NotFoundError{Entity: "module", ID: p.ModuleID}
			}
		}
		return 0, err
	}
	return id, nil
}

func (r *repository) Update(ctx context.Context, id int64, updates map[string]interface{}) error {
	query := "UPDATE permissions SET updated_at = NOW()"
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
			return &shared.ConflictError{Entity: "permission", Reason: "active permission for this (module, action) already exists"}
		}
		return err
	}
	if tag.RowsAffected() == 0 {
		return &shared.NotFoundError{Entity: "permission", ID: id}
	}
	return nil
}

func (r *repository) DeleteCascade(ctx context.Context, id int64) (DeleteResult, error) {
	var result DeleteResult

	tag, err := r.db.Exec(ctx, `DELETE FROM role_permissions WHERE permission_id = $1`, id)
	if err != nil {
		return result, err
	}
	result.RoleLinks = int(tag.RowsAffected())

	tag, err = r.db.Exec(ctx, `DELETE FROM user_permissions WHERE permission_id = $1`, id)
	if err != nil {
		return result, err
	}
	result.UserGrantLinks = int(tag.RowsAffected())

	tag, err = r.db.Exec(ctx, `DELETE FROM permissions WHERE id = $1`, id)
	if err != nil {
		return result, err
	}
	if tag.RowsAffected() == 0 {
		return result, &shared.NotFoundError{Entity: "permission", ID: id}
	}
	return result, nil
}

func (r *repository) ModuleExists(ctx context.Context, moduleID int64) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM modules WHERE id = $1)`, moduleID).Scan(&exists)
	return exists, err
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
