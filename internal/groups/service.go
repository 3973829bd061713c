package groups

import (
	"context"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/sentinel-iam/sentinel-iam/internal/shared"
)

var validate = validator.New()

// Service handles group business logic.
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

// Create inserts a new group. Names are unique.
func (s *Service) Create(ctx context.Context, req CreateGroupRequest) (*Group, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Description = strings.TrimSpace(req.Description)
	if err := validate.Struct(req); err != nil {
		return nil, &shared.ValidationError{Reason: err.Error()}
	}

	group := Group{Name: req.Name, Description: req.Description, IsActive: true}
	id, err := s.repo.Create(ctx, group)
	if err != nil {
		return nil, err
	}

	s.recordAudit(ctx, "create", id, nil)
	return s.repo.Get(ctx, id)
}

// Get fetches a group by id.
func (s *Service) Get(ctx context.Context, id int64) (*Group, error) {
	return s.repo.Get(ctx, id)
}

// GetDetail fetches a group with its roles and members.
func (s *Service) GetDetail(ctx context.Context, id int64) (*GroupDetail, error) {
	return s.repo.GetDetail(ctx, id)
}

// List returns groups matching the filter plus the total count.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]Group, int, error) {
	if filter.Limit <= 0 || filter.Limit > 200 {
		filter.Limit = 50
	}
	return s.repo.List(ctx, filter)
}

// Update applies a partial update.
func (s *Service) Update(ctx context.Context, id int64, req UpdateGroupRequest) (*Group, error) {
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

	// An inactive group is skipped during resolution for all its members.
	if req.IsActive != nil {
		_ = s.inval.Bump(ctx)
	}
	s.recordAudit(ctx, "update", id, map[string]any{"fields": fieldNames(updates)})
	return s.repo.Get(ctx, id)
}

// Delete removes a group. It is rejected with a ConflictError carrying the
// member count while users remain in the group; role links cascade.
func (s *Service) Delete(ctx context.Context, id int64) (DeleteResult, error) {
	var result DeleteResult
	err := s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		if _, err := repo.Get(ctx, id); err != nil {
			return err
		}
		count, err := repo.CountMembers(ctx, id)
		if err != nil {
			return err
		}
		if count > 0 {
			return &shared.ConflictError{
				Entity:     "group",
				Reason:     "cannot delete group with members",
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
	s.recordAudit(ctx, "delete", id, map[string]any{"cascaded_role_links": result.RoleLinks})
	return result, nil
}

func (s *Service) recordAudit(ctx context.Context, action string, id int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		Action:   action,
		Entity:   "group",
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
