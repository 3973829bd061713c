package users

// CreateUserRequest carries fields for creating a user.
type CreateUserRequest struct {
	Username    string `json:"username" validate:"required,min=3,max=64,alphanumunicode"`
	Email       string `json:"email" validate:"required,email"`
	DisplayName string `json:"display_name" validate:"max=128"`
	Password    string `json:"password" validate:"required,min=8,max=72"`
}

// UpdateUserRequest carries a partial update.
type UpdateUserRequest struct {
	Email       *string `json:"email" validate:"omitempty,email"`
	DisplayName *string `json:"display_name" validate:"omitempty,max=128"`
	Password    *string `json:"password" validate:"omitempty,min=8,max=72"`
	IsActive    *bool   `json:"is_active"`
}
