package roles

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

func (r *repository) Get(ctx context.Context, id int64) (*Role, error) {
	row := r.db.QueryRow(ctx, `
		SELECT id, name, description, is_active, created_at, updated_at
		FROM roles WHERE id = $1`, id)
	var role Role
	err := row.Scan(&role.ID, &role.Name, &role.Description, &role.IsActive, &role.CreatedAt, &role.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &shared.NotFoundError{Entity: "role", ID: id}
		}
		return nil, err
	}
	return &role, nil
}

func (r *repository) GetDetail(ctx context.Context, id int64) (*RoleDetail, error) {
	role, err := r.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	rows, err := r.db.Query(ctx, `
		SELECT p.id, p.module_id, m.name, p.action, p.name, p.is_active
		FROM role_permissions rp
		JOIN permissions p ON p.id = rp.permission_id
		JOIN modules m ON m.id = p.module_id
		WHERE rp.role_id = $1
		ORDER BY m.name, p.action`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	detail := RoleDetail{Role: *role, Permissions: []RolePermission{}}
	for rows.Next() {
		var rp RolePermission
		if err := rows.Scan(&rp.PermissionID, &rp.ModuleID, &rp.ModuleName, &rp.Action, &rp.Name, &rp.IsActive); err != nil {
			return nil, err
		}
		detail.Permissions = append(detail.Permissions, rp)
	}
	return &detail, rows.Err()
}

func (r *repository) List(ctx context.Context, filter ListFilter) ([]Role, int, error) {
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
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM roles WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(`
		SELECT id, name, description, is_active, created_at, updated_at
		FROM roles WHERE %s
		ORDER BY name
		LIMIT $%d OFFSET $%d`, where, argPos, argPos+1)
	args = append(args, filter.Limit, filter.Offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []Role
	for rows.Next() {
		var role Role
		if err := rows.Scan(&role.ID, &role.Name, &role.Description, &role.IsActive, &role.CreatedAt, &role.UpdatedAt); err != nil {
			return nil, 0, err
		}
		out = append(out, role)
	}
	return out, total, rows.Err()
}

func (r *repository) Create(ctx context.Context, role Role) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx, `
		INSERT INTO roles (name, description, is_active)
		VALUES ($1, $2, $3) RETURNING id`,
		role.Name, role.Description, role.IsActive).Scan(&id)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, &shared.ConflictError{Entity: "role", Reason: fmt.Sprintf("role %q already exists", role.Name)}
		}
		return 0, err
	}
	return id, nil
}

func (r *repository) Update(ctx context.Context, id int64, updates map[string]interface{}) error {
	query := "UPDATE roles SET updated_at = NOW()"
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
			return &shared.ConflictError{Entity: "role", Reason: "role name already exists"}
		}
		return err
	}
	if tag.RowsAffected() == 0 {
		return &shared.NotFoundError{Entity: "role", ID: id}
	}
	return nil
}

func (r *repository) CountGroupLinks(ctx context.Context, id int64) (int, error) {
	var count int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM group_roles WHERE role_id = $1`, id).Scan(&count)
	return count, err
}

func (r *repository) DeleteCascade(ctx context.Context, id int64) (DeleteResult, error) {
	var result DeleteResult

	tag, err := r.db.Exec(ctx, `DELETE FROM role_permissions WHERE role_id = $1`, id)
	if err != nil {
		return result, err
	}
	result.PermissionLinks = int(tag.RowsAffected())

	tag, err = r.db.Exec(ctx, `DELETE FROM roles WHERE id = $1`, id)
	if err != nil {
		return result, err
	}
	if tag.RowsAffected() == 0 {
		return result, &shared.NotFoundError{Entity: "role", ID: id}
	}
	return result, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
