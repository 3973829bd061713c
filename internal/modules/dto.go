package modules

// CreateModuleRequest carries fields for creating a module.
type CreateModuleRequest struct {
	Name        string `json:"name" validate:"required,min=2,max=64"`
	Description string `json:"description" validate:"max=255"`
}

// UpdateModuleRequest carries a partial update. Nil fields are untouched.
type UpdateModuleRequest struct {
	Name        *string `json:"name" validate:"omitempty,min=2,max=64"`
	Description *string `json:"description" validate:"omitempty,max=255"`
	IsActive    *bool   `json:"is_active"`
}
