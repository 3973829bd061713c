package groups

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sentinel-iam/sentinel-iam/internal/shared"
)

type fakeRepo struct {
	groups map[int64]*Group
	byName map[string]*Group
	nextID int64

	members      map[int64]int
	deleteResult DeleteResult
	deleted      []int64
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		groups:  make(map[int64]*Group),
		byName:  make(map[string]*Group),
		nextID:  1,
		members: make(map[int64]int),
	}
}

func (f *fakeRepo) WithTx(ctx context.Context, fn func(context.Context, Repository) error) error {
	return fn(ctx, f)
}

func (f *fakeRepo) Get(ctx context.Context, id int64) (*Group, error) {
	g, ok := f.groups[id]
	if !ok {
		return nil, &shared.NotFoundError{Entity: "group", ID: id}
	}
	copied := *g
	return &copied, nil
}

func (f *fakeRepo) GetDetail(ctx context.Context, id int64) (*GroupDetail, error) {
	g, err := f.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return &GroupDetail{Group: *g, Roles: []GroupRole{}, Members: []GroupMember{}}, nil
}

func (f *fakeRepo) List(ctx context.Context, filter ListFilter) ([]Group, int, error) {
	out := make([]Group, 0, len(f.groups))
	for _, g := range f.groups {
		out = append(out, *g)
	}
	return out, len(out), nil
}

func (f *fakeRepo) Create(ctx context.Context, group Group) (int64, error) {
	if _, ok := f.byName[group.Name]; ok {
		return 0, &shared.ConflictError{Entity: "group", Reason: "name already exists"}
	}
	group.ID = f.nextID
	f.nextID++
	group.CreatedAt = time.Now()
	group.UpdatedAt = group.CreatedAt
	f.groups[group.ID] = &group
	f.byName[group.Name] = &group
	return group.ID, nil
}

func (f *fakeRepo) Update(ctx context.Context, id int64, updates map[string]interface{}) error {
	g, ok := f.groups[id]
	if !ok {
		return &shared.NotFoundError{Entity: "group", ID: id}
	}
	if v, ok := updates["is_active"]; ok {
		g.IsActive = v.(bool)
	}
	return nil
}

func (f *fakeRepo) CountMembers(ctx context.Context, id int64) (int, error) {
	return f.members[id], nil
}

func (f *fakeRepo) DeleteCascade(ctx context.Context, id int64) (DeleteResult, error) {
	g, ok := f.groups[id]
	if !ok {
		return DeleteResult{}, &shared.NotFoundError{Entity: "group", ID: id}
	}
	delete(f.byName, g.Name)
	delete(f.groups, id)
	f.deleted = append(f.deleted, id)
	return f.deleteResult, nil
}

type countingInvalidator struct {
	bumps int
}

func (c *countingInvalidator) Bump(ctx context.Context) error {
	c.bumps++
	return nil
}

func TestDeleteGroupBlockedByMembers(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo, nil, nil)

	g, err := svc.Create(context.Background(), CreateGroupRequest{Name: "Support"})
	require.NoError(t, err)
	repo.members[g.ID] = 3

	_, err = svc.Delete(context.Background(), g.ID)
	require.Error(t, err)

	var conflict *shared.ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, 3, conflict.Dependents)
	assert.Empty(t, repo.deleted)
}

func TestDeleteEmptyGroupCascadesRoleLinks(t *testing.T) {
	repo := newFakeRepo()
	inval := &countingInvalidator{}
	svc := NewService(repo, nil, inval)

	g, err := svc.Create(context.Background(), CreateGroupRequest{Name: "Support"})
	require.NoError(t, err)
	repo.deleteResult = DeleteResult{RoleLinks: 2}

	result, err := svc.Delete(context.Background(), g.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, result.RoleLinks)
	assert.Equal(t, 1, inval.bumps)
}

func TestDeactivateGroupBumpsCache(t *testing.T) {
	repo := newFakeRepo()
	inval := &countingInvalidator{}
	svc := NewService(repo, nil, inval)

	g, err := svc.Create(context.Background(), CreateGroupRequest{Name: "Support"})
	require.NoError(t, err)

	inactive := false
	_, err = svc.Update(context.Background(), g.ID, UpdateGroupRequest{IsActive: &inactive})
	require.NoError(t, err)
	assert.Equal(t, 1, inval.bumps)
}
