package users

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

const userColumns = `id, username, email, display_name, password_hash, is_active, created_at, updated_at`

func scanUser(row pgx.Row) (*User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.DisplayName, &u.PasswordHash, &u.IsActive, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *repository) Get(ctx context.Context, id int64) (*User, error) {
	u, err := scanUser(r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &shared.NotFoundError{Entity: "user", ID: id}
		}
		return nil, err
	}
	return u, nil
}

func (r *repository) GetByUsername(ctx context.Context, username string) (*User, error) {
	u, err := scanUser(r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE username = $1`, username))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &shared.NotFoundError{Entity: "user", Name: username}
		}
		return nil, err
	}
	return u, nil
}

func (r *repository) GetDetail(ctx context.Context, id int64) (*UserDetail, error) {
	u, err := r.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	detail := UserDetail{User: *u, Groups: []UserGroup{}, DirectGrants: []UserGrant{}}

	rows, err := r.db.Query(ctx, `
		SELECT g.id, g.name, g.is_active
		FROM group_users gu
		JOIN groups g ON g.id = gu.group_id
		WHERE gu.user_id = $1
		ORDER BY g.name`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var ug UserGroup
		if err := rows.Scan(&ug.GroupID, &ug.Name, &ug.IsActive); err != nil {
			return nil, err
		}
		detail.Groups = append(detail.Groups, ug)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = r.db.Query(ctx, `
		SELECT p.id, m.name, p.action, p.name, p.is_active
		FROM user_permissions up
		JOIN permissions p ON p.id = up.permission_id
		JOIN modules m ON m.id = p.module_id
		WHERE up.user_id = $1
		ORDER BY m.name, p.action`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var grant UserGrant
		if err := rows.Scan(&grant.PermissionID, &grant.ModuleName, &grant.Action, &grant.Name, &grant.IsActive); err != nil {
			return nil, err
		}
		detail.DirectGrants = append(detail.DirectGrants, grant)
	}
	return &detail, rows.Err()
}

func (r *repository) List(ctx context.Context, filter ListFilter) ([]User, int, error) {
	where := "TRUE"
	args := []interface{}{}
	argPos := 1

	if filter.Search != nil && *filter.Search != "" {
		where += fmt.Sprintf(" AND (username ILIKE $%d OR email ILIKE $%d OR display_name ILIKE $%d)", argPos, argPos, argPos)
		args = append(args, "%"+*filter.Search+"%")
		argPos++
	}
	if filter.IsActive != nil {
		where += fmt.Sprintf(" AND is_active = $%d", argPos)
		args = append(args, *filter.IsActive)
		argPos++
	}

	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM users WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(`
		SELECT %s FROM users WHERE %s
		ORDER BY username
		LIMIT $%d OFFSET $%d`, userColumns, where, argPos, argPos+1)
	args = append(args, filter.Limit, filter.Offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []User
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.ID, &u.Username, &u.Email, &u.DisplayName, &u.PasswordHash, &u.IsActive, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, 0, err
		}
		out = append(out, u)
	}
	return out, total, rows.Err()
}

func (r *repository) Create(ctx context.Context, u User) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx, `
		INSERT INTO users (username, email, display_name, password_hash, is_active)
		VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		u.Username, u.Email, u.DisplayName, u.PasswordHash, u.IsActive).Scan(&id)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, &shared.ConflictError{Entity: "user", Reason: "username or email already taken"}
		}
		return 0, err
	}
	return id, nil
}

func (r *repository) Update(ctx context.Context, id int64, updates map[string]interface{}) error {
	query := "UPDATE users SET updated_at = NOW()"
	var args []interface{}
	argPos := 1

	for _, col := range []string{"email", "display_name", "password_hash", "is_active"} {
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
			return &shared.ConflictError{Entity: "user", Reason: "email already taken"}
		}
		return err
	}
	if tag.RowsAffected() == 0 {
		return &shared.NotFoundError{Entity: "user", ID: id}
	}
	return nil
}

func (r *repository) DeleteCascade(ctx context.Context, id int64) (DeleteResult, error) {
	var result DeleteResult

	tag, err := r.db.Exec(ctx, `DELETE FROM group_users WHERE user_id = $1`, id)
	if err != nil {
		return result, err
	}
	result.GroupLinks = int(tag.RowsAffected())

	tag, err = r.db.Exec(ctx, `DELETE FROM user_permissions WHERE user_id = $1`, id)
	if err != nil {
		return result, err
	}
	result.PermissionLinks = int(tag.RowsAffected())

	tag, err = r.db.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return result, err
	}
	if tag.RowsAffected() == 0 {
		return result, &shared.NotFoundError{Entity: "user", ID: id}
	}
	return result, nil
}

func (r *repository) ActiveIDs(ctx context.Context) ([]int64, error) {
	rows, err := r.db.Query(ctx, `SELECT id FROM users WHERE is_active ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
