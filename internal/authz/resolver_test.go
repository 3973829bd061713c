package authz

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sentinel-iam/sentinel-iam/internal/shared"
)

type fakeQueries struct {
	subject    Subject
	subjectErr error
	groupIDs   []int64
	groupErr   error
	roleIDs    []int64
	roleErr    error
	roleGrants []Grant
	grantsErr  error
	direct     []Grant
	directErr  error

	roleGrantCalls int
}

func (f *fakeQueries) GetSubject(ctx context.Context, userID int64) (Subject, error) {
	if f.subjectErr != nil {
		return Subject{}, f.subjectErr
	}
	return f.subject, nil
}

func (f *fakeQueries) ActiveGroupIDs(ctx context.Context, userID int64) ([]int64, error) {
	return f.groupIDs, f.groupErr
}

func (f *fakeQueries) ActiveRoleIDs(ctx context.Context, groupIDs []int64) ([]int64, error) {
	return f.roleIDs, f.roleErr
}

func (f *fakeQueries) RoleGrants(ctx context.Context, roleIDs []int64) ([]Grant, error) {
	f.roleGrantCalls++
	return f.roleGrants, f.grantsErr
}

func (f *fakeQueries) DirectGrants(ctx context.Context, userID int64) ([]Grant, error) {
	return f.direct, f.directErr
}

type fakeRepo struct {
	queries *fakeQueries
}

func (f *fakeRepo) WithSnapshot(ctx context.Context, fn func(ctx context.Context, q Queries) error) error {
	return fn(ctx, f.queries)
}

func grant(permissionID, moduleID int64, module string, action shared.Action) Grant {
	return Grant{PermissionID: permissionID, ModuleID: moduleID, Module: module, Action: action, Name: module + " " + string(action)}
}

func TestEffectivePermissionsUnionsRoleAndDirectGrants(t *testing.T) {
	queries := &fakeQueries{
		subject:  Subject{ID: 7, Active: true},
		groupIDs: []int64{1, 2},
		roleIDs:  []int64{10},
		roleGrants: []Grant{
			grant(100, 1, "Reports", shared.ActionRead),
			grant(101, 1, "Reports", shared.ActionUpdate),
		},
		direct: []Grant{
			grant(102, 2, "Users", shared.ActionRead),
			// Same pair as a role grant, so the union keeps one entry.
			grant(100, 1, "Reports", shared.ActionRead),
		},
	}
	resolver := NewResolver(&fakeRepo{queries: queries})

	set, err := resolver.EffectivePermissions(context.Background(), 7)
	require.NoError(t, err)

	assert.Equal(t, 3, set.Len())
	assert.True(t, set.Has("Reports", shared.ActionRead))
	assert.True(t, set.Has("Reports", shared.ActionUpdate))
	assert.True(t, set.Has("Users", shared.ActionRead))
	assert.False(t, set.Has("Reports", shared.ActionDelete))
}

func TestEffectivePermissionsListIsDeterministic(t *testing.T) {
	forward := []Grant{
		grant(1, 1, "Alpha", shared.ActionRead),
		grant(2, 2, "Beta", shared.ActionCreate),
		grant(3, 1, "Alpha", shared.ActionDelete),
	}
	reversed := []Grant{forward[2], forward[1], forward[0]}

	resolve := func(grants []Grant) []Grant {
		queries := &fakeQueries{
			subject:    Subject{ID: 1, Active: true},
			groupIDs:   []int64{1},
			roleIDs:    []int64{1},
			roleGrants: grants,
		}
		set, err := NewResolver(&fakeRepo{queries: queries}).EffectivePermissions(context.Background(), 1)
		require.NoError(t, err)
		return set.List()
	}

	assert.Equal(t, resolve(forward), resolve(reversed))
}

func TestEffectivePermissionsInactiveSubjectYieldsEmptySet(t *testing.T) {
	queries := &fakeQueries{
		subject:    Subject{ID: 7, Active: false},
		groupIDs:   []int64{1},
		roleIDs:    []int64{10},
		roleGrants: []Grant{grant(100, 1, "Reports", shared.ActionRead)},
		direct:     []Grant{grant(102, 2, "Users", shared.ActionRead)},
	}
	resolver := NewResolver(&fakeRepo{queries: queries})

	set, err := resolver.EffectivePermissions(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, 0, set.Len())
	// Traversal short-circuits before touching assignments.
	assert.Equal(t, 0, queries.roleGrantCalls)
}

func TestEffectivePermissionsMissingSubject(t *testing.T) {
	queries := &fakeQueries{subjectErr: &shared.NotFoundError{Entity: "user", ID: 99}}
	resolver := NewResolver(&fakeRepo{queries: queries})

	_, err := resolver.EffectivePermissions(context.Background(), 99)
	require.Error(t, err)
	assert.True(t, shared.IsNotFound(err))
}

func TestEffectivePermissionsStoreFailureWrapsResolutionError(t *testing.T) {
	storeErr := errors.New("connection reset")
	queries := &fakeQueries{
		subject:  Subject{ID: 7, Active: true},
		groupErr: storeErr,
	}
	resolver := NewResolver(&fakeRepo{queries: queries})

	_, err := resolver.EffectivePermissions(context.Background(), 7)
	require.Error(t, err)

	var resErr *shared.ResolutionError
	require.ErrorAs(t, err, &resErr)
	assert.ErrorIs(t, err, storeErr)
}

func TestEffectivePermissionsNoGroupsStillCollectsDirectGrants(t *testing.T) {
	queries := &fakeQueries{
		subject: Subject{ID: 7, Active: true},
		direct:  []Grant{grant(102, 2, "Users", shared.ActionRead)},
	}
	resolver := NewResolver(&fakeRepo{queries: queries})

	set, err := resolver.EffectivePermissions(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, 1, set.Len())
	assert.True(t, set.Has("Users", shared.ActionRead))
}
