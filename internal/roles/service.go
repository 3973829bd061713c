package roles

import (
	"context"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/sentinel-iam/sentinel-iam/internal/shared"
)

var validate = validator.New()

// Service handles role business logic.
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

// Create inserts a new role. Names are unique.
func (s *Service) Create(ctx context.Context, req CreateRoleRequest) (*Role, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Description = strings.TrimSpace(req.Description)
	if err := validate.Struct(req); err != nil {
		return nil, &shared.ValidationError{Reason: err.Error()}
	}

	role := Role{Name: req.Name, Description: req.Description, IsActive: true}
	id, err := s.repo.Create(ctx, role)
	if err != nil {
		return nil, err
	}

	s.recordAudit(ctx, "create", id, nil)
	return s.repo.Get(ctx, id)
}

// Get fetches a role by id.
func (s *Service) Get(ctx context.Context, id int64) (*Role, error) {
	return s.repo.Get(ctx, id)
}

// GetDetail fetches a role with its attached permissions.
func (s *Service) GetDetail(ctx context.Context, id int64) (*RoleDetail, error) {
	return s.repo.GetDetail(ctx, id)
}

// List returns roles matching the filter plus the total count.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]Role, int, error) {
	if filter.Limit <= 0 || filter.Limit > 200 {
		filter.Limit = 50
	}
	return s.repo.List(ctx, filter)
}

// Update applies a partial update.
func (s *Service) Update(ctx context.Context, id int64, req UpdateRoleRequest) (*Role, error) {
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

	// An inactive role contributes nothing during resolution, so toggling
	// the flag changes effective sets for every group holding the role.
	if req.IsActive != nil {
		_ = s.inval.Bump(ctx)
	}
	s.recordAudit(ctx, "update", id, map[string]any{"fields": fieldNames(updates)})
	return s.repo.Get(ctx, id)
}

// Delete removes a role. It is rejected with a ConflictError carrying the
// dependent count while groups still hold the role; permission links cascade.
func (s *Service) Delete(ctx context.Context, id int64) (DeleteResult, error) {
	var result DeleteResult
	err := s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		if _, err := repo.Get(ctx, id); err != nil {
			return err
		}
		count, err := repo.CountGroupLinks(ctx, id)
		if err != nil {
			return err
		}
		if count > 0 {
			return &shared.ConflictError{
				Entity:     "role",
				Reason:     "cannot delete role granted to groups",
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
	s.recordAudit(ctx, "delete", id, map[string]any{"cascaded_permission_links": result.PermissionLinks})
	return result, nil
}

func (s *Service) recordAudit(ctx context.Context, action string, id int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		Action:   action,
		Entity:   "role",
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
