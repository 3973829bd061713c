package permissions

// CreatePermissionRequest carries fields for creating a permission.
type CreatePermissionRequest struct {
	ModuleID    int64  `json:"module_id" validate:"required,gt=0"`
	Action      string `json:"action" validate:"required"`
	Name        string `json:"name" validate:"required,min=2,max=128"`
	Description string `json:"description" validate:"max=255"`
}

// UpdatePermissionRequest carries a partial update. The module reference
// and action are not updatable.
type UpdatePermissionRequest struct {
	Name        *string `json:"name" validate:"omitempty,min=2,max=128"`
	Description *string `json:"description" validate:"omitempty,max=255"`
	IsActive    *bool   `json:"is_active"`
}
