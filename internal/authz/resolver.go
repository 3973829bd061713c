package authz

import (
	"context"

	"github.com/sentinel-iam/sentinel-iam/internal/shared"
)

// Resolver computes a subject's effective permission set: the union of
// permissions reached through every active group/role path plus direct
// grants, filtered by the active flag at every link. Resolution is a pure
// read against one snapshot and never returns a partial set.
type Resolver struct {
	repo Repository
}

// NewResolver constructs a Resolver.
func NewResolver(repo Repository) *Resolver {
	return &Resolver{repo: repo}
}

// EffectivePermissions resolves the effective set for subjectID. A missing
// subject yields a NotFoundError; an inactive subject yields an empty set
// regardless of assignments; any store failure wraps into a ResolutionError.
func (r *Resolver) EffectivePermissions(ctx context.Context, subjectID int64) (*PermissionSet, error) {
	set := NewPermissionSet()
	err := r.repo.WithSnapshot(ctx, func(ctx context.Context, q Queries) error {
		subject, err := q.GetSubject(ctx, subjectID)
		if err != nil {
			return err
		}
		if !subject.Active {
			return nil
		}

		groupIDs, err := q.ActiveGroupIDs(ctx, subjectID)
		if err != nil {
			return err
		}
		if len(groupIDs) > 0 {
			// Roles reachable via several groups are deduplicated here so
			// each contributes its permissions once.
			roleIDs, err := q.ActiveRoleIDs(ctx, groupIDs)
			if err != nil {
				return err
			}
			if len(roleIDs) > 0 {
				grants, err := q.RoleGrants(ctx, roleIDs)
				if err != nil {
					return err
				}
				for _, g := range grants {
					set.Add(g)
				}
			}
		}

		direct, err := q.DirectGrants(ctx, subjectID)
		if err != nil {
			return err
		}
		for _, g := range direct {
			set.Add(g)
		}
		return nil
	})
	if err != nil {
		if shared.IsNotFound(err) {
			return nil, err
		}
		return nil, &shared.ResolutionError{Err: err}
	}
	return set, nil
}
