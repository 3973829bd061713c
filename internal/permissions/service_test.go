package permissions

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sentinel-iam/sentinel-iam/internal/shared"
)

type fakeRepo struct {
	permissions map[int64]*Permission
	nextID      int64
	moduleIDs   map[int64]bool

	deleteResult DeleteResult
	deleted      []int64
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		permissions: make(map[int64]*Permission),
		nextID:      1,
		moduleIDs:   map[int64]bool{1: true},
	}
}

func (f *fakeRepo) WithTx(ctx context.Context, fn func(context.Context, Repository) error) error {
	return fn(ctx, f)
}

func (f *fakeRepo) Get(ctx context.Context, id int64) (*Permission, error) {
	p, ok := f.permissions[id]
	if !ok {
		return nil, &shared.NotFoundError{Entity: "permission", ID: id}
	}
	copied := *p
	return &copied, nil
}

func (f *fakeRepo) List(ctx context.Context, filter ListFilter) ([]Permission, int, error) {
	out := make([]Permission, 0, len(f.permissions))
	for _, p := range f.permissions {
		out = append(out, *p)
	}
	return out, len(out), nil
}

func (f *fakeRepo) Create(ctx context.Context, p Permission) (int64, error) {
	for _, existing := range f.permissions {
		if existing.ModuleID == p.ModuleID && existing.Action == p.Action && existing.IsActive {
			return 0, &shared.ConflictError{Entity: "permission", Reason: "active permission already exists"}
		}
	}
	p.ID = f.nextID
	f.nextID++
	p.CreatedAt = time.Now()
	p.UpdatedAt = p.CreatedAt
	f.permissions[p.ID] = &p
	return p.ID, nil
}

func (f *fakeRepo) Update(ctx context.Context, id int64, updates map[string]interface{}) error {
	p, ok := f.permissions[id]
	if !ok {
		return &shared.NotFoundError{Entity: "permission", ID: id}
	}
	if v, ok := updates["is_active"]; ok {
		p.IsActive = v.(bool)
	}
	return nil
}

func (f *fakeRepo) DeleteCascade(ctx context.Context, id int64) (DeleteResult, error) {
	if _, ok := f.permissions[id]; !ok {
		return DeleteResult{}, &shared.NotFoundError{Entity: "permission", ID: id}
	}
	delete(f.permissions, id)
	f.deleted = append(f.deleted, id)
	return f.deleteResult, nil
}

func (f *fakeRepo) ModuleExists(ctx context.Context, moduleID int64) (bool, error) {
	return f.moduleIDs[moduleID], nil
}

type countingInvalidator struct {
	bumps int
}

func (c *countingInvalidator) Bump(ctx context.Context) error {
	c.bumps++
	return nil
}

func TestCreatePermission(t *testing.T) {
	repo := newFakeRepo()
	inval := &countingInvalidator{}
	svc := NewService(repo, nil, inval)

	p, err := svc.Create(context.Background(), CreatePermissionRequest{
		ModuleID: 1, Action: "read", Name: "Reports read",
	})
	require.NoError(t, err)
	assert.Equal(t, shared.ActionRead, p.Action)
	assert.True(t, p.IsActive)
	assert.Equal(t, 1, inval.bumps)
}

func TestCreatePermissionRejectsUnknownAction(t *testing.T) {
	svc := NewService(newFakeRepo(), nil, nil)

	_, err := svc.Create(context.Background(), CreatePermissionRequest{
		ModuleID: 1, Action: "approve", Name: "Reports approve",
	})
	require.Error(t, err)
	assert.True(t, shared.IsValidation(err))
}

func TestCreatePermissionRejectsMissingModule(t *testing.T) {
	svc := NewService(newFakeRepo(), nil, nil)

	_, err := svc.Create(context.Background(), CreatePermissionRequest{
		ModuleID: 42, Action: "read", Name: "Ghost read",
	})
	require.Error(t, err)
	assert.True(t, shared.IsNotFound(err))
}

func TestCreatePermissionRejectsActiveDuplicate(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo, nil, nil)

	req := CreatePermissionRequest{ModuleID: 1, Action: "read", Name: "Reports read"}
	_, err := svc.Create(context.Background(), req)
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), req)
	require.Error(t, err)
	assert.True(t, shared.IsConflict(err))
}

func TestDeletePermissionReportsCascadedLinks(t *testing.T) {
	repo := newFakeRepo()
	inval := &countingInvalidator{}
	svc := NewService(repo, nil, inval)

	p, err := svc.Create(context.Background(), CreatePermissionRequest{
		ModuleID: 1, Action: "delete", Name: "Reports delete",
	})
	require.NoError(t, err)
	repo.deleteResult = DeleteResult{RoleLinks: 2, UserGrantLinks: 1}

	result, err := svc.Delete(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, DeleteResult{RoleLinks: 2, UserGrantLinks: 1}, result)
	assert.Equal(t, []int64{p.ID}, repo.deleted)
}

func TestDeactivatePermissionBumpsCache(t *testing.T) {
	repo := newFakeRepo()
	inval := &countingInvalidator{}
	svc := NewService(repo, nil, inval)

	p, err := svc.Create(context.Background(), CreatePermissionRequest{
		ModuleID: 1, Action: "update", Name: "Reports update",
	})
	require.NoError(t, err)
	inval.bumps = 0

	inactive := false
	_, err = svc.Update(context.Background(), p.ID, UpdatePermissionRequest{IsActive: &inactive})
	require.NoError(t, err)
	assert.Equal(t, 1, inval.bumps)
}
