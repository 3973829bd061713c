package permissions

import (
	"context"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/sentinel-iam/sentinel-iam/internal/shared"
)

var validate = validator.New()

// Service handles permission business logic.
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

// Create inserts a new permission. At most one active permission may exist
// per (module, action) pair.
func (s *Service) Create(ctx context.Context, req CreatePermissionRequest) (*Permission, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Description = strings.TrimSpace(req.Description)
	if err := validate.Struct(req); err != nil {
		return nil, &shared.ValidationError{Reason: err.Error()}
	}
	action, err := shared.ParseAction(req.Action)
	if err != nil {
		return nil, err
	}

	exists, err := s.repo.ModuleExists(ctx, req.ModuleID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, &shared.NotFoundError{Entity: "module", ID: req.ModuleID}
	}

	p := Permission{
		ModuleID:    req.ModuleID,
		Action:      action,
		Name:        req.Name,
		Description: req.Description,
		IsActive:    true,
	}
	id, err := s.repo.Create(ctx, p)
	if err != nil {
		return nil, err
	}

	_ = s.inval.Bump(ctx)
	s.recordAudit(ctx, "create", id, map[string]any{"module_id": req.ModuleID, "action": string(action)})
	return s.repo.Get(ctx, id)
}

// Get fetches a permission by id.
func (s *Service) Get(ctx context.Context, id int64) (*Permission, error) {
	return s.repo.Get(ctx, id)
}

// List returns permissions matching the filter plus the total count.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]Permission, int, error) {
	if filter.Limit <= 0 || filter.Limit > 200 {
		filter.Limit = 50
	}
	return s.repo.List(ctx, filter)
}

// Update applies a partial update. Module and action stay fixed.
func (s *Service) Update(ctx context.Context, id int64, req UpdatePermissionRequest) (*Permission, error) {
	if err := validate.Struct(req); err != nil {
		return nil, &shared.ValidationError{Reason: err.Error()}
	}

	updates := make(map[string]interface{})
	if req.Name != nil {
		updates["name"] = strings.TrimSpace(*req.Name)
	}
	if req.Description != nil {
		updates["description"] = strings.TrimSpace(*req.Description)
	}
	if req.IsActive != nil {
		updates["is_active"] = *req.IsActive
	}
	if len(updates) == 0 {
		return s.repo.Get(ctx, id)
	}

	if err := s.repo.Update(ctx, id, updates); err != nil {
		return nil, err
	}

	// Toggling is_active changes which effective sets include this grant.
	if req.IsActive != nil {
		_ = s.inval.Bump(ctx)
	}
	s.recordAudit(ctx, "update", id, map[string]any{"fields": fieldNames(updates)})
	return s.repo.Get(ctx, id)
}

// Delete removes a permission and any role or direct-user links that
// reference it, reporting the cascaded counts.
func (s *Service) Delete(ctx context.Context, id int64) (DeleteResult, error) {
	var result DeleteResult
	err := s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		if _, err := repo.Get(ctx, id); err != nil {
			return err
		}
		var err error
		result, err = repo.DeleteCascade(ctx, id)
		return err
	})
	if err != nil {
		return DeleteResult{}, err
	}

	_ = s.inval.Bump(ctx)
	s.recordAudit(ctx, "delete", id, map[string]any{
		"cascaded_role_links":       result.RoleLinks,
		"cascaded_user_grant_links": result.UserGrantLinks,
	})
	return result, nil
}

func (s *Service) recordAudit(ctx context.Context, action string, id int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		Action:   action,
		Entity:   "permission",
		EntityID: strconv.FormatInt(id, 10),
		Meta:     meta,
	})
}

func fieldNames(updates map[string]interface{}) []string {
	names := make([]string, 0, len(updates))
	for name := range updates {
		names = append(names, name)
	}
	return names
}
