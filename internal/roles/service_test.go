package roles

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sentinel-iam/sentinel-iam/internal/shared"
)

type fakeRepo struct {
	roles  map[int64]*Role
	byName map[string]*Role
	nextID int64

	groupLinks   map[int64]int
	deleteResult DeleteResult
	deleted      []int64
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		roles:      make(map[int64]*Role),
		byName:     make(map[string]*Role),
		nextID:     1,
		groupLinks: make(map[int64]int),
	}
}

func (f *fakeRepo) WithTx(ctx context.Context, fn func(context.Context, Repository) error) error {
	return fn(ctx, f)
}

func (f *fakeRepo) Get(ctx context.Context, id int64) (*Role, error) {
	r, ok := f.roles[id]
	if !ok {
		return nil, &shared.NotFoundError{Entity: "role", ID: id}
	}
	copied := *r
	return &copied, nil
}

func (f *fakeRepo) GetDetail(ctx context.Context, id int64) (*RoleDetail, error) {
	r, err := f.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return &RoleDetail{Role: *r, Permissions: []RolePermission{}}, nil
}

func (f *fakeRepo) List(ctx context.Context, filter ListFilter) ([]Role, int, error) {
	out := make([]Role, 0, len(f.roles))
	for _, r := range f.roles {
		out = append(out, *r)
	}
	return out, len(out), nil
}

func (f *fakeRepo) Create(ctx context.Context, role Role) (int64, error) {
	if _, ok := f.byName[role.Name]; ok {
		return 0, &shared.ConflictError{Entity: "role", Reason: "name already exists"}
	}
	role.ID = f.nextID
	f.nextID++
	role.CreatedAt = time.Now()
	role.UpdatedAt = role.CreatedAt
	f.roles[role.ID] = &role
	f.byName[role.Name] = &role
	return role.ID, nil
}

func (f *fakeRepo) Update(ctx context.Context, id int64, updates map[string]interface{}) error {
	r, ok := f.roles[id]
	if !ok {
		return &shared.NotFoundError{Entity: "role", ID: id}
	}
	if v, ok := updates["is_active"]; ok {
		r.IsActive = v.(bool)
	}
	return nil
}

func (f *fakeRepo) CountGroupLinks(ctx context.Context, id int64) (int, error) {
	return f.groupLinks[id], nil
}

func (f *fakeRepo) DeleteCascade(ctx context.Context, id int64) (DeleteResult, error) {
	r, ok := f.roles[id]
	if !ok {
		return DeleteResult{}, &shared.NotFoundError{Entity: "role", ID: id}
	}
	delete(f.byName, r.Name)
	delete(f.roles, id)
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

func TestDeleteRoleBlockedByGroupGrants(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo, nil, nil)

	r, err := svc.Create(context.Background(), CreateRoleRequest{Name: "Viewer"})
	require.NoError(t, err)
	repo.groupLinks[r.ID] = 2

	_, err = svc.Delete(context.Background(), r.ID)
	require.Error(t, err)

	var conflict *shared.ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, 2, conflict.Dependents)
	assert.Empty(t, repo.deleted)
}

func TestDeleteUnreferencedRoleCascadesPermissionLinks(t *testing.T) {
	repo := newFakeRepo()
	inval := &countingInvalidator{}
	svc := NewService(repo, nil, inval)

	r, err := svc.Create(context.Background(), CreateRoleRequest{Name: "Viewer"})
	require.NoError(t, err)
	repo.deleteResult = DeleteResult{PermissionLinks: 5}

	result, err := svc.Delete(context.Background(), r.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, result.PermissionLinks)
	assert.Equal(t, 1, inval.bumps)
}

func TestDeactivateRoleBumpsCache(t *testing.T) {
	repo := newFakeRepo()
	inval := &countingInvalidator{}
	svc := NewService(repo, nil, inval)

	r, err := svc.Create(context.Background(), CreateRoleRequest{Name: "Viewer"})
	require.NoError(t, err)

	inactive := false
	_, err = svc.Update(context.Background(), r.ID, UpdateRoleRequest{IsActive: &inactive})
	require.NoError(t, err)
	assert.Equal(t, 1, inval.bumps)
}
