package modules

import (
	"context"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/sentinel-iam/sentinel-iam/internal/shared"
)

var validate = validator.New()

// Service handles module business logic.
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

// Create inserts a new module. Names are unique.
func (s *Service) Create(ctx context.Context, req CreateModuleRequest) (*Module, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Description = strings.TrimSpace(req.Description)
	if err := validate.Struct(req); err != nil {
		return nil, &shared.ValidationError{Field: "name", Reason: err.Error()}
	}

	m := Module{Name: req.Name, Description: req.Description, IsActive: true}
	id, err := s.repo.Create(ctx, m)
	if err != nil {
		return nil, err
	}

	s.recordAudit(ctx, "create", id, nil)
	return s.repo.Get(ctx, id)
}

// Get fetches a module by id.
func (s *Service) Get(ctx context.Context, id int64) (*Module, error) {
	return s.repo.Get(ctx, id)
}

// GetByName fetches a module by its unique name.
func (s *Service) GetByName(ctx context.Context, name string) (*Module, error) {
	return s.repo.GetByName(ctx, name)
}

// ModuleExists reports whether a module with the given name exists. The
// authorization gate uses it to word denial reasons.
func (s *Service) ModuleExists(ctx context.Context, name string) (bool, error) {
	_, err := s.repo.GetByName(ctx, name)
	if err != nil {
		if shared.IsNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// List returns modules matching the filter plus the total count.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]Module, int, error) {
	if filter.Limit <= 0 || filter.Limit > 200 {
		filter.Limit = 50
	}
	return s.repo.List(ctx, filter)
}

// Update applies a partial update.
func (s *Service) Update(ctx context.Context, id int64, req UpdateModuleRequest) (*Module, error) {
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

	// Cached grants carry the module name, and the active flag decides
	// whether its permissions resolve at all, so either change invalidates
	// cached resolutions.
	if req.IsActive != nil || req.Name != nil {
		_ = s.inval.Bump(ctx)
	}
	s.recordAudit(ctx, "update", id, map[string]any{"fields": fieldNames(updates)})
	return s.repo.Get(ctx, id)
}

// Delete removes a module. It is rejected with a ConflictError carrying the
// dependent count while active permissions reference the module; otherwise
// inactive leftovers cascade and their counts are reported.
func (s *Service) Delete(ctx context.Context, id int64) (DeleteResult, error) {
	var result DeleteResult
	err := s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		if _, err := repo.Get(ctx, id); err != nil {
			return err
		}
		count, err := repo.CountActivePermissions(ctx, id)
		if err != nil {
			return err
		}
		if count > 0 {
			return &shared.ConflictError{
				Entity:     "module",
				Reason:     "cannot delete module with active permissions",
				Dependents: count,
			}
		}
		result, err = repo.DeleteCascade(ctx, id)
		return err
	})
	if err != nil {
		return DeleteResult{}, err
	}

	_ = s.inval.Bump(ctx)
	s.recordAudit(ctx, "delete", id, map[string]any{
		"cascaded_permissions": result.Permissions,
		"cascaded_role_links":  result.RoleLinks,
	})
	return result, nil
}

func (s *Service) recordAudit(ctx context.Context, action string, id int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		Action:   action,
		Entity:   "module",
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
