package authz

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sentinel-iam/sentinel-iam/internal/shared"
)

// graphStore models the whole assignment graph with activity flags and
// applies the same active filtering at each link as the SQL queries, so
// resolver tests can toggle one flag at a time.
type graphStore struct {
	users       map[int64]bool
	groups      map[int64]bool
	roles       map[int64]bool
	modules     map[int64]*graphModule
	permissions map[int64]*graphPermission

	memberships     map[int64][]int64
	groupRoles      map[int64][]int64
	rolePermissions map[int64][]int64
	directGrants    map[int64][]int64
}

type graphModule struct {
	name   string
	active bool
}

type graphPermission struct {
	moduleID int64
	action   shared.Action
	name     string
	active   bool
}

func (g *graphStore) WithSnapshot(ctx context.Context, fn func(ctx context.Context, q Queries) error) error {
	return fn(ctx, g)
}

func (g *graphStore) GetSubject(ctx context.Context, userID int64) (Subject, error) {
	active, ok := g.users[userID]
	if !ok {
		return Subject{}, &shared.NotFoundError{Entity: "user", ID: userID}
	}
	return Subject{ID: userID, Active: active}, nil
}

func (g *graphStore) ActiveGroupIDs(ctx context.Context, userID int64) ([]int64, error) {
	var ids []int64
	for _, groupID := range g.memberships[userID] {
		if g.groups[groupID] {
			ids = append(ids, groupID)
		}
	}
	return ids, nil
}

func (g *graphStore) ActiveRoleIDs(ctx context.Context, groupIDs []int64) ([]int64, error) {
	seen := make(map[int64]bool)
	var ids []int64
	for _, groupID := range groupIDs {
		for _, roleID := range g.groupRoles[groupID] {
			if g.roles[roleID] && !seen[roleID] {
				seen[roleID] = true
				ids = append(ids, roleID)
			}
		}
	}
	return ids, nil
}

func (g *graphStore) RoleGrants(ctx context.Context, roleIDs []int64) ([]Grant, error) {
	var grants []Grant
	for _, roleID := range roleIDs {
		for _, permID := range g.rolePermissions[roleID] {
			if grant, ok := g.activeGrant(permID); ok {
				grants = append(grants, grant)
			}
		}
	}
	return grants, nil
}

func (g *graphStore) DirectGrants(ctx context.Context, userID int64) ([]Grant, error) {
	var grants []Grant
	for _, permID := range g.directGrants[userID] {
		if grant, ok := g.activeGrant(permID); ok {
			grants = append(grants, grant)
		}
	}
	return grants, nil
}

func (g *graphStore) activeGrant(permID int64) (Grant, bool) {
	p := g.permissions[permID]
	if p == nil || !p.active {
		return Grant{}, false
	}
	m := g.modules[p.moduleID]
	if m == nil || !m.active {
		return Grant{}, false
	}
	return Grant{PermissionID: permID, ModuleID: p.moduleID, Module: m.name, Action: p.action, Name: p.name}, true
}

// User alice belongs to group Support, which holds role Viewer, which
// grants Users:read. Users:delete exists but is not granted anywhere.
const (
	aliceID     = 7
	supportID   = 20
	viewerID    = 10
	usersModID  = 1
	usersReadID = 100
	usersDelID  = 101
)

func newSupportGraph() *graphStore {
	return &graphStore{
		users:   map[int64]bool{aliceID: true},
		groups:  map[int64]bool{supportID: true},
		roles:   map[int64]bool{viewerID: true},
		modules: map[int64]*graphModule{usersModID: {name: "Users", active: true}},
		permissions: map[int64]*graphPermission{
			usersReadID: {moduleID: usersModID, action: shared.ActionRead, name: "Users read", active: true},
			usersDelID:  {moduleID: usersModID, action: shared.ActionDelete, name: "Users delete", active: true},
		},
		memberships:     map[int64][]int64{aliceID: {supportID}},
		groupRoles:      map[int64][]int64{supportID: {viewerID}},
		rolePermissions: map[int64][]int64{viewerID: {usersReadID}},
		directGrants:    map[int64][]int64{},
	}
}

func resolveGraph(t *testing.T, store *graphStore) *PermissionSet {
	t.Helper()
	set, err := NewResolver(store).EffectivePermissions(context.Background(), aliceID)
	require.NoError(t, err)
	return set
}

func TestEffectivePermissionsSupportScenario(t *testing.T) {
	set := resolveGraph(t, newSupportGraph())

	assert.Equal(t, 1, set.Len())
	assert.True(t, set.Has("Users", shared.ActionRead))
	assert.False(t, set.Has("Users", shared.ActionDelete))
}

func TestEffectivePermissionsExcludeInactiveLinks(t *testing.T) {
	cases := []struct {
		name   string
		toggle func(s *graphStore, active bool)
	}{
		{"group", func(s *graphStore, active bool) { s.groups[supportID] = active }},
		{"role", func(s *graphStore, active bool) { s.roles[viewerID] = active }},
		{"permission", func(s *graphStore, active bool) { s.permissions[usersReadID].active = active }},
		{"module", func(s *graphStore, active bool) { s.modules[usersModID].active = active }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store := newSupportGraph()

			tc.toggle(store, false)
			assert.False(t, resolveGraph(t, store).Has("Users", shared.ActionRead))

			tc.toggle(store, true)
			assert.True(t, resolveGraph(t, store).Has("Users", shared.ActionRead))
		})
	}
}

func TestEffectivePermissionsInactiveLinkKeepsOtherPaths(t *testing.T) {
	const platformID = 21
	store := newSupportGraph()
	store.groups[platformID] = true
	store.memberships[aliceID] = append(store.memberships[aliceID], platformID)
	store.groupRoles[platformID] = []int64{viewerID}

	// The grant survives through the second group.
	store.groups[supportID] = false
	assert.True(t, resolveGraph(t, store).Has("Users", shared.ActionRead))

	store.groups[platformID] = false
	assert.False(t, resolveGraph(t, store).Has("Users", shared.ActionRead))
}

func TestDirectGrantsFilteredByPermissionAndModuleActivity(t *testing.T) {
	store := newSupportGraph()
	store.directGrants[aliceID] = []int64{usersDelID}

	set := resolveGraph(t, store)
	assert.True(t, set.Has("Users", shared.ActionRead))
	assert.True(t, set.Has("Users", shared.ActionDelete))

	store.permissions[usersDelID].active = false
	set = resolveGraph(t, store)
	assert.True(t, set.Has("Users", shared.ActionRead))
	assert.False(t, set.Has("Users", shared.ActionDelete))

	store.permissions[usersDelID].active = true
	store.modules[usersModID].active = false
	assert.Equal(t, 0, resolveGraph(t, store).Len())
}
