package groups

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

func (r *repository) Get(ctx context.Context, id int64) (*Group, error) {
	row := r.db.QueryRow(ctx, `
		SELECT id, name, description, is_active, created_at, updated_at
		FROM groups WHERE id = $1`, id)
	var g Group
	err := row.Scan(&g.ID, &g.Name, &g.Description, &g.IsActive, &g.CreatedAt, &g.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &shared.NotFoundError{Entity: "group", ID: id}
		}
		return nil, err
	}
	return &g, nil
}

func (r *repository) GetDetail(ctx context.Context, id int64) (*GroupDetail, error) {
	g, err := r.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	detail := GroupDetail{Group: *g, Roles: []GroupRole{}, Members: []GroupMember{}}

	rows, err := r.db.Query(ctx, `
		SELECT r.id, r.name, r.is_active
		FROM group_roles gr
		JOIN roles r ON r.id = gr.role_id
		WHERE gr.group_id = $1
		ORDER BY r.name`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var gr GroupRole
		if err := rows.Scan(&gr.RoleID, &gr.Name, &gr.IsActive); err != nil {
			return nil, err
		}
		detail.Roles = append(detail.Roles, gr)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = r.db.Query(ctx, `
		SELECT u.id, u.username, u.is_active
		FROM group_users gu
		JOIN users u ON u.id = gu.user_id
		WHERE gu.group_id = $1
		ORDER BY u.username`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var gm GroupMember
		if err := rows.Scan(&gm.UserID, &gm.Username, &gm.IsActive); err != nil {
			return nil, err
		}
		detail.Members = append(detail.Members, gm)
	}
	return &detail, rows.Err()
}

func (r *repository) List(ctx context.Context, filter ListFilter) ([]Group, int, error) {
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
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM groups WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(`
		SELECT id, name, description, is_active, created_at, updated_at
		FROM groups WHERE %s
		ORDER BY name
		LIMIT $%d OFFSET $%d`, where, argPos, argPos+1)
	args = append(args, filter.Limit, filter.Offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []Group
	for rows.Next() {
		var g Group
		if err := rows.Scan(&g.ID, &g.Name, &g.Description, &g.IsActive, &g.CreatedAt, &g.UpdatedAt); err != nil {
			return nil, 0, err
		}
		out = append(out, g)
	}
	return out, total, rows.Err()
}

func (r *repository) Create(ctx context.Context, group Group) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx, `
		INSERT INTO groups (name, description, is_active)
		VALUES ($1, $2, $3) RETURNING id`,
		group.Name, group.Description, group.IsActive).Scan(&id)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, &shared.ConflictError{Entity: "group", Reason: fmt.Sprintf("group %q already exists", group.Name)}
		}
		return 0, err
	}
	return id, nil
}

func (r *repository) Update(ctx context.Context, id int64, updates map[string]interface{}) error {
	query := "UPDATE groups SET updated_at = NOW()"
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
			return &shared.ConflictError{Entity: "group", Reason: "group name already exists"}
		}
		return err
	}
	if tag.RowsAffected() == 0 {
		return &shared.NotFoundError{Entity: "group", ID: id}
	}
	return nil
}

func (r *repository) CountMembers(ctx context.Context, id int64) (int, error) {
	var count int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM group_users WHERE group_id = $1`, id).Scan(&count)
	return count, err
}

func (r *repository) DeleteCascade(ctx context.Context, id int64) (DeleteResult, error) {
	var result DeleteResult

	tag, err := r.db.Exec(ctx, `DELETE FROM group_roles WHERE group_id = $1`, id)
	if err != nil {
		return result, err
	}
	result.RoleLinks = int(tag.RowsAffected())

	tag, err = r.db.Exec(ctx, `DELETE FROM groups WHERE id = $1`, id)
	if err != nil {
		return result, err
	}
	if tag.RowsAffected() == 0 {
		return result, &shared.NotFoundError{Entity: "group", ID: id}
	}
	return result, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
