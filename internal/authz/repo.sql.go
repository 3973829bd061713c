package authz

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sentinel-iam/sentinel-iam/internal/platform/db"
	"github.com/sentinel-iam/sentinel-iam/internal/shared"
)

type dbtx interface {
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

func (r *repository) WithSnapshot(ctx context.Context, fn func(ctx context.Context, q Queries) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &repository{db: tx, pool: r.pool})
	})
}

func (r *repository) GetSubject(ctx context.Context, userID int64) (Subject, error) {
	var subject Subject
	err := r.db.QueryRow(ctx, `SELECT id, is_active FROM users WHERE id = $1`, userID).
		Scan(&subject.ID, &subject.Active)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Subject{}, &shared.NotFoundError{Entity: "user", ID: userID}
		}
		return Subject{}, err
	}
	return subject, nil
}

func (r *repository) ActiveGroupIDs(ctx context.Context, userID int64) ([]int64, error) {
	rows, err := r.db.Query(ctx, `
		SELECT g.id
		FROM group_users gu
		JOIN groups g ON g.id = gu.group_id AND g.is_active
		WHERE gu.user_id = $1`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectIDs(rows)
}

func (r *repository) ActiveRoleIDs(ctx context.Context, groupIDs []int64) ([]int64, error) {
	rows, err := r.db.Query(ctx, `
		SELECT DISTINCT r.id
		FROM group_roles gr
		JOIN roles r ON r.id = gr.role_id AND r.is_active
		WHERE gr.group_id = ANY($1)`, groupIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectIDs(rows)
}

func (r *repository) RoleGrants(ctx context.Context, roleIDs []int64) ([]Grant, error) {
	rows, err := r.db.Query(ctx, `
		SELECT DISTINCT p.id, p.module_id, m.name, p.action, p.name
		FROM role_permissions rp
		JOIN permissions p ON p.id = rp.permission_id AND p.is_active
		JOIN modules m ON m.id = p.module_id AND m.is_active
		WHERE rp.role_id = ANY($1)`, roleIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectGrants(rows)
}

func (r *repository) DirectGrants(ctx context.Context, userID int64) ([]Grant, error) {
	rows, err := r.db.Query(ctx, `
		SELECT p.id, p.module_id, m.name, p.action, p.name
		FROM user_permissions up
		JOIN permissions p ON p.id = up.permission_id AND p.is_active
		JOIN modules m ON m.id = p.module_id AND m.is_active
		WHERE up.user_id = $1`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectGrants(rows)
}

func collectIDs(rows pgx.Rows) ([]int64, error) {
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

func collectGrants(rows pgx.Rows) ([]Grant, error) {
	var grants []Grant
	for rows.Next() {
		var g Grant
		if err := rows.Scan(&g.PermissionID, &g.ModuleID, &g.Module, &g.Action, &g.Name); err != nil {
			return nil, err
		}
		grants = append(grants, g)
	}
	return grants, rows.Err()
}
