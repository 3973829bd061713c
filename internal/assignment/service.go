package assignment

import (
	"context"
	"strconv"

	"github.com/go-playground/validator/v10"

	"github.com/sentinel-iam/sentinel-iam/internal/shared"
)

var validate = validator.New()

// Service handles assignment graph mutations. Every successful mutation
// invalidates cached permission resolutions.
type Service struct {
	repo  Repository
	audit *shared.AuditLogger
	inval shared.Invalidator
}

// NewService builds a Service instance.
func NewService(repo Repository, audit *shared.AuditLogger, inval shared.Invalidator) *Service {
	if inval == nil {
		inval = shared.NopInvalidator{}
	}
	return &Service{repo: repo, audit: audit, inval: inval}
}

// AssignPermissionsToRole grants permissions to a role, skipping ones the
// role already holds.
func (s *Service) AssignPermissionsToRole(ctx context.Context, roleID int64, req PermissionIDsRequest) (AssignmentResult, error) {
	if err := validate.Struct(req); err != nil {
		return AssignmentResult{}, &shared.ValidationError{Field: "permission_ids", Reason: err.Error()}
	}
	result, err := s.repo.AssignPermissionsToRole(ctx, roleID, req.PermissionIDs)
	if err != nil {
		return AssignmentResult{}, err
	}
	s.finishAssign(ctx, "role", roleID, "permissions", result)
	return result, nil
}

// RemovePermissionsFromRole revokes permissions from a role. Absent links
// are ignored.
func (s *Service) RemovePermissionsFromRole(ctx context.Context, roleID int64, req PermissionIDsRequest) (RemovalResult, error) {
	if err := validate.Struct(req); err != nil {
		return RemovalResult{}, &shared.ValidationError{Field: "permission_ids", Reason: err.Error()}
	}
	result, err := s.repo.RemovePermissionsFromRole(ctx, roleID, req.PermissionIDs)
	if err != nil {
		return RemovalResult{}, err
	}
	s.finishRemove(ctx, "role", roleID, "permissions", result)
	return result, nil
}

// AssignRolesToGroup grants roles to a group.
func (s *Service) AssignRolesToGroup(ctx context.Context, groupID int64, req RoleIDsRequest) (AssignmentResult, error) {
	if err := validate.Struct(req); err != nil {
		return AssignmentResult{}, &shared.ValidationError{Field: "role_ids", Reason: err.Error()}
	}
	result, err := s.repo.AssignRolesToGroup(ctx, groupID, req.RoleIDs)
	if err != nil {
		return AssignmentResult{}, err
	}
	s.finishAssign(ctx, "group", groupID, "roles", result)
	return result, nil
}

// RemoveRolesFromGroup revokes roles from a group.
func (s *Service) RemoveRolesFromGroup(ctx context.Context, groupID int64, req RoleIDsRequest) (RemovalResult, error) {
	if err := validate.Struct(req); err != nil {
		return RemovalResult{}, &shared.ValidationError{Field: "role_ids", Reason: err.Error()}
	}
	result, err := s.repo.RemoveRolesFromGroup(ctx, groupID, req.RoleIDs)
	if err != nil {
		return RemovalResult{}, err
	}
	s.finishRemove(ctx, "group", groupID, "roles", result)
	return result, nil
}

// AssignUsersToGroup adds users to a group.
func (s *Service) AssignUsersToGroup(ctx context.Context, groupID int64, req UserIDsRequest) (AssignmentResult, error) {
	if err := validate.Struct(req); err != nil {
		return AssignmentResult{}, &shared.ValidationError{Field: "user_ids", Reason: err.Error()}
	}
	result, err := s.repo.AssignUsersToGroup(ctx, groupID, req.UserIDs)
	if err != nil {
		return AssignmentResult{}, err
	}
	s.finishAssign(ctx, "group", groupID, "users", result)
	return result, nil
}

// RemoveUsersFromGroup removes users from a group.
func (s *Service) RemoveUsersFromGroup(ctx context.Context, groupID int64, req UserIDsRequest) (RemovalResult, error) {
	if err := validate.Struct(req); err != nil {
		return RemovalResult{}, &shared.ValidationError{Field: "user_ids", Reason: err.Error()}
	}
	result, err := s.repo.RemoveUsersFromGroup(ctx, groupID, req.UserIDs)
	if err != nil {
		return RemovalResult{}, err
	}
	s.finishRemove(ctx, "group", groupID, "users", result)
	return result, nil
}

// AssignPermissionsToUser grants permissions directly to a user, bypassing
// the group and role chain.
func (s *Service) AssignPermissionsToUser(ctx context.Context, userID int64, req PermissionIDsRequest) (AssignmentResult, error) {
	if err := validate.Struct(req); err != nil {
		return AssignmentResult{}, &shared.ValidationError{Field: "permission_ids", Reason: err.Error()}
	}
	result, err := s.repo.AssignPermissionsToUser(ctx, userID, req.PermissionIDs)
	if err != nil {
		return AssignmentResult{}, err
	}
	s.finishAssign(ctx, "user", userID, "permissions", result)
	return result, nil
}

// RemovePermissionsFromUser revokes direct grants from a user.
func (s *Service) RemovePermissionsFromUser(ctx context.Context, userID int64, req PermissionIDsRequest) (RemovalResult, error) {
	if err := validate.Struct(req); err != nil {
		return RemovalResult{}, &shared.ValidationError{Field: "permission_ids", Reason: err.Error()}
	}
	result, err := s.repo.RemovePermissionsFromUser(ctx, userID, req.PermissionIDs)
	if err != nil {
		return RemovalResult{}, err
	}
	s.finishRemove(ctx, "user", userID, "permissions", result)
	return result, nil
}

func (s *Service) finishAssign(ctx context.Context, entity string, id int64, kind string, result AssignmentResult) {
	if result.Assigned > 0 {
		_ = s.inval.Bump(ctx)
	}
	s.recordAudit(ctx, "assign_"+kind, entity, id, map[string]any{
		"assigned": result.Assigned,
		"skipped":  result.Skipped,
	})
}

func (s *Service) finishRemove(ctx context.Context, entity string, id int64, kind string, result RemovalResult) {
	if result.Removed > 0 {
		_ = s.inval.Bump(ctx)
	}
	s.recordAudit(ctx, "remove_"+kind, entity, id, map[string]any{"removed": result.Removed})
}

func (s *Service) recordAudit(ctx context.Context, action, entity string, id int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		Action:   action,
		Entity:   entity,
		EntityID: strconv.FormatInt(id, 10),
		Meta:     meta,
	})
}
