package modules

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sentinel-iam/sentinel-iam/internal/shared"
)

type fakeRepo struct {
	modules map[int64]*Module
	byName  map[string]*Module
	nextID  int64

	activePermissions map[int64]int
	deleteResult      DeleteResult
	deleted           []int64
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		modules:           make(map[int64]*Module),
		byName:            make(map[string]*Module),
		nextID:            1,
		activePermissions: make(map[int64]int),
	}
}

func (f *fakeRepo) WithTx(ctx context.Context, fn func(context.Context, Repository) error) error {
	return fn(ctx, f)
}

func (f *fakeRepo) Get(ctx context.Context, id int64) (*Module, error) {
	m, ok := f.modules[id]
	if !ok {
		return nil, &shared.NotFoundError{Entity: "module", ID: id}
	}
	copied := *m
	return &copied, nil
}

func (f *fakeRepo) GetByName(ctx context.Context, name string) (*Module, error) {
	m, ok := f.byName[name]
	if !ok {
		return nil, &shared.NotFoundError{Entity: "module", Name: name}
	}
	copied := *m
	return &copied, nil
}

func (f *fakeRepo) List(ctx context.Context, filter ListFilter) ([]Module, int, error) {
	out := make([]Module, 0, len(f.modules))
	for _, m := range f.modules {
		out = append(out, *m)
	}
	return out, len(out), nil
}

func (f *fakeRepo) Create(ctx context.Context, m Module) (int64, error) {
	if _, ok := f.byName[m.Name]; ok {
		return 0, &shared.ConflictError{Entity: "module", Reason: "name already exists"}
	}
	m.ID = f.nextID
	f.nextID++
	m.CreatedAt = time.Now()
	m.UpdatedAt = m.CreatedAt
	f.modules[m.ID] = &m
	f.byName[m.Name] = &m
	return m.ID, nil
}

func (f *fakeRepo) Update(ctx context.Context, id int64, updates map[string]interface{}) error {
	m, ok := f.modules[id]
	if !ok {
		return &shared.NotFoundError{Entity: "module", ID: id}
	}
	if v, ok := updates["is_active"]; ok {
		m.IsActive = v.(bool)
	}
	if v, ok := updates["name"]; ok {
		m.Name = v.(string)
	}
	return nil
}

func (f *fakeRepo) CountActivePermissions(ctx context.Context, moduleID int64) (int, error) {
	return f.activePermissions[moduleID], nil
}

func (f *fakeRepo) DeleteCascade(ctx context.Context, moduleID int64) (DeleteResult, error) {
	m, ok := f.modules[moduleID]
	if !ok {
		return DeleteResult{}, &shared.NotFoundError{Entity: "module", ID: moduleID}
	}
	delete(f.byName, m.Name)
	delete(f.modules, moduleID)
	f.deleted = append(f.deleted, moduleID)
	return f.deleteResult, nil
}

type countingInvalidator struct {
	bumps int
}

func (c *countingInvalidator) Bump(ctx context.Context) error {
	c.bumps++
	return nil
}

func TestCreateModule(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo, nil, nil)

	m, err := svc.Create(context.Background(), CreateModuleRequest{Name: "Reports", Description: "Reporting"})
	require.NoError(t, err)
	assert.Equal(t, "Reports", m.Name)
	assert.True(t, m.IsActive)
}

func TestCreateModuleRejectsDuplicateName(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo, nil, nil)

	_, err := svc.Create(context.Background(), CreateModuleRequest{Name: "Reports"})
	require.NoError(t, err)
	_, err = svc.Create(context.Background(), CreateModuleRequest{Name: "Reports"})
	require.Error(t, err)
	assert.True(t, shared.IsConflict(err))
}

func TestCreateModuleValidatesName(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo, nil, nil)

	_, err := svc.Create(context.Background(), CreateModuleRequest{Name: " "})
	require.Error(t, err)
	assert.True(t, shared.IsValidation(err))
}

func TestDeleteModuleBlockedByActivePermissions(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo, nil, nil)

	m, err := svc.Create(context.Background(), CreateModuleRequest{Name: "Reports"})
	require.NoError(t, err)
	repo.activePermissions[m.ID] = 4

	_, err = svc.Delete(context.Background(), m.ID)
	require.Error(t, err)

	var conflict *shared.ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, 4, conflict.Dependents)
	assert.Empty(t, repo.deleted)
}

func TestDeleteModuleCascadesInactiveLeftovers(t *testing.T) {
	repo := newFakeRepo()
	inval := &countingInvalidator{}
	svc := NewService(repo, nil, inval)

	m, err := svc.Create(context.Background(), CreateModuleRequest{Name: "Reports"})
	require.NoError(t, err)
	repo.deleteResult = DeleteResult{Permissions: 2, RoleLinks: 3, UserGrantLinks: 1}

	result, err := svc.Delete(context.Background(), m.ID)
	require.NoError(t, err)
	assert.Equal(t, DeleteResult{Permissions: 2, RoleLinks: 3, UserGrantLinks: 1}, result)
	assert.Equal(t, []int64{m.ID}, repo.deleted)
	assert.Equal(t, 1, inval.bumps)
}

func TestDeleteMissingModule(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo, nil, nil)

	_, err := svc.Delete(context.Background(), 404)
	require.Error(t, err)
	assert.True(t, shared.IsNotFound(err))
}

func TestUpdateModuleActiveFlagBumpsCache(t *testing.T) {
	repo := newFakeRepo()
	inval := &countingInvalidator{}
	svc := NewService(repo, nil, inval)

	m, err := svc.Create(context.Background(), CreateModuleRequest{Name: "Reports"})
	require.NoError(t, err)

	inactive := false
	updated, err := svc.Update(context.Background(), m.ID, UpdateModuleRequest{IsActive: &inactive})
	require.NoError(t, err)
	assert.False(t, updated.IsActive)
	assert.Equal(t, 1, inval.bumps)
}

func TestRenameModuleBumpsCache(t *testing.T) {
	repo := newFakeRepo()
	inval := &countingInvalidator{}
	svc := NewService(repo, nil, inval)

	m, err := svc.Create(context.Background(), CreateModuleRequest{Name: "Users"})
	require.NoError(t, err)
	require.Equal(t, 0, inval.bumps)

	renamed := "Accounts"
	updated, err := svc.Update(context.Background(), m.ID, UpdateModuleRequest{Name: &renamed})
	require.NoError(t, err)
	assert.Equal(t, "Accounts", updated.Name)
	assert.Equal(t, 1, inval.bumps)

	// Description changes do not affect resolution.
	desc := "account records"
	_, err = svc.Update(context.Background(), m.ID, UpdateModuleRequest{Description: &desc})
	require.NoError(t, err)
	assert.Equal(t, 1, inval.bumps)
}

func TestModuleExists(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo, nil, nil)

	_, err := svc.Create(context.Background(), CreateModuleRequest{Name: "Reports"})
	require.NoError(t, err)

	exists, err := svc.ModuleExists(context.Background(), "Reports")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = svc.ModuleExists(context.Background(), "Ghost")
	require.NoError(t, err)
	assert.False(t, exists)
}
