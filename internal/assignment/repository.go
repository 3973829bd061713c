package assignment

import "context"

// Repository defines data access for the assignment graph. Assign methods
// lock the parent row, verify every child exists, then insert links skipping
// duplicates. Remove methods delete links that exist and ignore the rest.
type Repository interface {
	AssignPermissionsToRole(ctx context.Context, roleID int64, permissionIDs []int64) (AssignmentResult, error)
	RemovePermissionsFromRole(ctx context.Context, roleID int64, permissionIDs []int64) (RemovalResult, error)

	AssignRolesToGroup(ctx context.Context, groupID int64, roleIDs []int64) (AssignmentResult, error)
	RemoveRolesFromGroup(ctx context.Context, groupID int64, roleIDs []int64) (RemovalResult, error)

	AssignUsersToGroup(ctx context.Context, groupID int64, userIDs []int64) (AssignmentResult, error)
	RemoveUsersFromGroup(ctx context.Context, groupID int64, userIDs []int64) (RemovalResult, error)

	AssignPermissionsToUser(ctx context.Context, userID int64, permissionIDs []int64) (AssignmentResult, error)
	RemovePermissionsFromUser(ctx context.Context, userID int64, permissionIDs []int64) (RemovalResult, error)
}
