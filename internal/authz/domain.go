package authz

import (
	"sort"

	"github.com/sentinel-iam/sentinel-iam/internal/shared"
)

// Grant is one resolved permission in a subject's effective set.
type Grant struct {
	PermissionID int64         `json:"permission_id"`
	ModuleID     int64         `json:"module_id"`
	Module       string        `json:"module"`
	Action       shared.Action `json:"action"`
	Name         string        `json:"name"`
}

type grantKey struct {
	moduleID int64
	action   shared.Action
}

// PermissionSet is a subject's effective permission set, deduplicated by
// (module, action). Two permission records for the same pair are treated as
// equivalent; either one is kept.
type PermissionSet struct {
	grants map[grantKey]Grant
	byName map[string]map[shared.Action]struct{}
}

// NewPermissionSet returns an empty set.
func NewPermissionSet() *PermissionSet {
	return &PermissionSet{
		grants: make(map[grantKey]Grant),
		byName: make(map[string]map[shared.Action]struct{}),
	}
}

// Add unions a grant into the set. Duplicate (module, action) pairs are
// ignored, which makes the union commutative and order independent.
func (s *PermissionSet) Add(g Grant) {
	key := grantKey{moduleID: g.ModuleID, action: g.Action}
	if _, ok := s.grants[key]; ok {
		return
	}
	s.grants[key] = g
	actions, ok := s.byName[g.Module]
	if !ok {
		actions = make(map[shared.Action]struct{})
		s.byName[g.Module] = actions
	}
	actions[g.Action] = struct{}{}
}

// Has reports whether the set grants the action on the named module.
func (s *PermissionSet) Has(module string, action shared.Action) bool {
	if s == nil {
		return false
	}
	actions, ok := s.byName[module]
	if !ok {
		return false
	}
	_, ok = actions[action]
	return ok
}

// Len returns the number of distinct (module, action) grants.
func (s *PermissionSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.grants)
}

// List returns the grants ordered by module name then action, so identical
// sets always serialize identically.
func (s *PermissionSet) List() []Grant {
	if s == nil {
		return nil
	}
	out := make([]Grant, 0, len(s.grants))
	for _, g := range s.grants {
		out = append(out, g)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Module != out[j].Module {
			return out[i].Module < out[j].Module
		}
		return out[i].Action < out[j].Action
	})
	return out
}

// SetFromGrants rebuilds a PermissionSet from serialized grants.
func SetFromGrants(grants []Grant) *PermissionSet {
	set := NewPermissionSet()
	for _, g := range grants {
		set.Add(g)
	}
	return set
}

// Decision is the outcome of one gate evaluation. Reason is populated on
// denial and distinguishes an unknown module from a missing grant.
type Decision struct {
	Granted bool   `json:"granted"`
	Reason  string `json:"reason,omitempty"`
}

// Subject is the minimal view of a user the resolver needs.
type Subject struct {
	ID     int64
	Active bool
}
