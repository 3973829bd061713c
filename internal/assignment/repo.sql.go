package assignment

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sentinel-iam/sentinel-iam/internal/platform/db"
	"github.com/sentinel-iam/sentinel-iam/internal/shared"
)

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL backed repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

// linkSpec describes one edge type of the assignment graph.
type linkSpec struct {
	parentTable  string
	parentEntity string
	parentCol    string
	childTable   string
	childEntity  string
	childCol     string
	joinTable    string
}

var (
	rolePermissions = linkSpec{
		parentTable: "roles", parentEntity: "role", parentCol: "role_id",
		childTable: "permissions", childEntity: "permission", childCol: "permission_id",
		joinTable: "role_permissions",
	}
	groupRoles = linkSpec{
		parentTable: "groups", parentEntity: "group", parentCol: "group_id",
		childTable: "roles", childEntity: "role", childCol: "role_id",
		joinTable: "group_roles",
	}
	groupUsers = linkSpec{
		parentTable: "groups", parentEntity: "group", parentCol: "group_id",
		childTable: "users", childEntity: "user", childCol: "user_id",
		joinTable: "group_users",
	}
	userPermissions = linkSpec{
		parentTable: "users", parentEntity: "user", parentCol: "user_id",
		childTable: "permissions", childEntity: "permission", childCol: "permission_id",
		joinTable: "user_permissions",
	}
)

// assign locks the parent row, checks every child id exists, then inserts
// the missing links. Existing links are skipped, so repeating the same
// request converges on the same state.
func (r *repository) assign(ctx context.Context, spec linkSpec, parentID int64, childIDs []int64) (AssignmentResult, error) {
	var result AssignmentResult
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		var locked int64
		err := tx.QueryRow(ctx,
			fmt.Sprintf(`SELECT id FROM %s WHERE id = $1 FOR UPDATE`, spec.parentTable),
			parentID).Scan(&locked)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return &shared.NotFoundError{Entity: spec.parentEntity, ID: parentID}
			}
			return err
		}

		if missing, err := r.missingChild(ctx, tx, spec, childIDs); err != nil {
			return err
		} else if missing != 0 {
			return &shared.NotFoundError{Entity: spec.childEntity, ID: missing}
		}

		tag, err := tx.Exec(ctx, fmt.Sprintf(`
			INSERT INTO %s (%s, %s)
			SELECT $1, unnest($2::bigint[])
			ON CONFLICT DO NOTHING`, spec.joinTable, spec.parentCol, spec.childCol),
			parentID, childIDs)
		if err != nil {
			return err
		}
		result.Assigned = int(tag.RowsAffected())
		result.Skipped = len(childIDs) - result.Assigned
		return nil
	})
	if err != nil {
		return AssignmentResult{}, err
	}
	return result, nil
}

// remove takes the same parent lock as assign so concurrent mutations of
// one aggregate serialize. Links absent from the join table are skipped.
func (r *repository) remove(ctx context.Context, spec linkSpec, parentID int64, childIDs []int64) (RemovalResult, error) {
	var result RemovalResult
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		var locked int64
		err := tx.QueryRow(ctx,
			fmt.Sprintf(`SELECT id FROM %s WHERE id = $1 FOR UPDATE`, spec.parentTable),
			parentID).Scan(&locked)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return &shared.NotFoundError{Entity: spec.parentEntity, ID: parentID}
			}
			return err
		}

		tag, err := tx.Exec(ctx, fmt.Sprintf(`
			DELETE FROM %s WHERE %s = $1 AND %s = ANY($2::bigint[])`,
			spec.joinTable, spec.parentCol, spec.childCol),
			parentID, childIDs)
		if err != nil {
			return err
		}
		result.Removed = int(tag.RowsAffected())
		return nil
	})
	if err != nil {
		return RemovalResult{}, err
	}
	return result, nil
}

// missingChild returns the first requested child id with no matching row,
// or zero when all exist.
func (r *repository) missingChild(ctx context.Context, tx pgx.Tx, spec linkSpec, childIDs []int64) (int64, error) {
	rows, err := tx.Query(ctx,
		fmt.Sprintf(`SELECT id FROM %s WHERE id = ANY($1::bigint[])`, spec.childTable),
		childIDs)
	if err != nil {
		return 0, err
	}
	defer rows.Close()

	found := make(map[int64]bool, len(childIDs))
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return 0, err
		}
		found[id] = true
	}
	if err := rows.Err(); err != nil {
		return 0, err
	}
	for _, id := range childIDs {
		if !found[id] {
			return id, nil
		}
	}
	return 0, nil
}

func (r *repository) AssignPermissionsToRole(ctx context.Context, roleID int64, permissionIDs []int64) (AssignmentResult, error) {
	return r.assign(ctx, rolePermissions, roleID, permissionIDs)
}

func (r *repository) RemovePermissionsFromRole(ctx context.Context, roleID int64, permissionIDs []int64) (RemovalResult, error) {
	return r.remove(ctx, rolePermissions, roleID, permissionIDs)
}

func (r *repository) AssignRolesToGroup(ctx context.Context, groupID int64, roleIDs []int64) (AssignmentResult, error) {
	return r.assign(ctx, groupRoles, groupID, roleIDs)
}

func (r *repository) RemoveRolesFromGroup(ctx context.Context, groupID int64, roleIDs []int64) (RemovalResult, error) {
	return r.remove(ctx, groupRoles, groupID, roleIDs)
}

func (r *repository) AssignUsersToGroup(ctx context.Context, groupID int64, userIDs []int64) (AssignmentResult, error) {
	return r.assign(ctx, groupUsers, groupID, userIDs)
}

func (r *repository) RemoveUsersFromGroup(ctx context.Context, groupID int64, userIDs []int64) (RemovalResult, error) {
	return r.remove(ctx, groupUsers, groupID, userIDs)
}

func (r *repository) AssignPermissionsToUser(ctx context.Context, userID int64, permissionIDs []int64) (AssignmentResult, error) {
	return r.assign(ctx, userPermissions, userID, permissionIDs)
}

func (r *repository) RemovePermissionsFromUser(ctx context.Context, userID int64, permissionIDs []int64) (RemovalResult, error) {
	return r.remove(ctx, userPermissions, userID, permissionIDs)
}
