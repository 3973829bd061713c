package authz

import "context"

// Queries is the read surface the resolver traverses. Implementations must
// exclude inactive records at every step: inactive group memberships, role
// grants on inactive roles, permissions that are inactive or whose module is
// inactive all contribute nothing.
type Queries interface {
	GetSubject(ctx context.Context, userID int64) (Subject, error)
	ActiveGroupIDs(ctx context.Context, userID int64) ([]int64, error)
	ActiveRoleIDs(ctx context.Context, groupIDs []int64) ([]int64, error)
	RoleGrants(ctx context.Context, roleIDs []int64) ([]Grant, error)
	DirectGrants(ctx context.Context, userID int64) ([]Grant, error)
}

// Repository runs resolver queries against a consistent snapshot: every
// query issued inside fn sees the same committed state, so a concurrent
// assignment change can never yield a half-updated effective set.
type Repository interface {
	WithSnapshot(ctx context.Context, fn func(ctx context.Context, q Queries) error) error
}
