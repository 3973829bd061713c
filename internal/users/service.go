package users

import (
	"context"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"

	"github.com/sentinel-iam/sentinel-iam/internal/shared"
)

var validate = validator.New()

// Service handles user business logic.
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

// Create inserts a new user. Username and email are unique; the password is
// stored as a bcrypt hash.
func (s *Service) Create(ctx context.Context, req CreateUserRequest) (*User, error) {
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	req.DisplayName = strings.TrimSpace(req.DisplayName)
	if err := validate.Struct(req); err != nil {
		return nil, &shared.ValidationError{Reason: err.Error()}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	u := User{
		Username:     req.Username,
		Email:        req.Email,
		DisplayName:  req.DisplayName,
		PasswordHash: string(hash),
		IsActive:     true,
	}
	id, err := s.repo.Create(ctx, u)
	if err != nil {
		return nil, err
	}

	s.recordAudit(ctx, "create", id, map[string]any{"username": req.Username})
	return s.repo.Get(ctx, id)
}

// Get fetches a user by id.
func (s *Service) Get(ctx context.Context, id int64) (*User, error) {
	return s.repo.Get(ctx, id)
}

// GetByUsername fetches a user by unique username.
func (s *Service) GetByUsername(ctx context.Context, username string) (*User, error) {
	return s.repo.GetByUsername(ctx, username)
}

// GetDetail fetches a user with group memberships and direct grants.
func (s *Service) GetDetail(ctx context.Context, id int64) (*UserDetail, error) {
	return s.repo.GetDetail(ctx, id)
}

// List returns users matching the filter plus the total count.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]User, int, error) {
	if filter.Limit <= 0 || filter.Limit > 200 {
		filter.Limit = 50
	}
	return s.repo.List(ctx, filter)
}

// ActiveIDs returns ids of all active users.
func (s *Service) ActiveIDs(ctx context.Context) ([]int64, error) {
	return s.repo.ActiveIDs(ctx)
}

// Update applies a partial update. Username stays fixed.
func (s *Service) Update(ctx context.Context, id int64, req UpdateUserRequest) (*User, error) {
	if err := validate.Struct(req); err != nil {
		return nil, &shared.ValidationError{Reason: err.Error()}
	}

	updates := make(map[string]interface{})
	if req.Email != nil {
		updates["email"] = strings.TrimSpace(strings.ToLower(*req.Email))
	}
	if req.DisplayName != nil {
		updates["display_name"] = strings.TrimSpace(*req.DisplayName)
	}
	if req.Password != nil {
		hash, err := bcrypt.GenerateFromPassword([]byte(*req.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, err
		}
		updates["password_hash"] = string(hash)
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

	// An inactive user resolves to an empty permission set.
	if req.IsActive != nil {
		_ = s.inval.Bump(ctx)
	}
	s.recordAudit(ctx, "update", id, map[string]any{"fields": fieldNames(updates)})
	return s.repo.Get(ctx, id)
}

// Delete removes a user along with group memberships and direct grants,
// reporting the cascaded counts.
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
		"cascaded_group_links":      result.GroupLinks,
		"cascaded_permission_links": result.PermissionLinks,
	})
	return result, nil
}

func (s *Service) recordAudit(ctx context.Context, action string, id int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		Action:   action,
		Entity:   "user",
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
