package assignment

// PermissionIDsRequest carries permission ids for role or user grants.
type PermissionIDsRequest struct {
	PermissionIDs []int64 `json:"permission_ids" validate:"required,min=1,dive,gt=0"`
}

// RoleIDsRequest carries role ids for group grants.
type RoleIDsRequest struct {
	RoleIDs []int64 `json:"role_ids" validate:"required,min=1,dive,gt=0"`
}

// UserIDsRequest carries user ids for group membership.
type UserIDsRequest struct {
	UserIDs []int64 `json:"user_ids" validate:"required,min=1,dive,gt=0"`
}
