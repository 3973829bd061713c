package users

import (
	"time"

	"github.com/sentinel-iam/sentinel-iam/internal/shared"
)

// User is an authorization subject. PasswordHash never serializes.
type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	DisplayName  string    `json:"display_name"`
	PasswordHash string    `json:"-"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// UserGroup is a group row as seen from a user detail view.
type UserGroup struct {
	GroupID  int64  `json:"group_id"`
	Name     string `json:"name"`
	IsActive bool   `json:"is_active"`
}

// UserGrant is a direct permission grant as seen from a user detail view.
type UserGrant struct {
	PermissionID int64         `json:"permission_id"`
	ModuleName   string        `json:"module_name"`
	Action       shared.Action `json:"action"`
	Name         string        `json:"name"`
	IsActive     bool          `json:"is_active"`
}

// UserDetail is a user together with group memberships and direct grants.
type UserDetail struct {
	User
	Groups       []UserGroup `json:"groups"`
	DirectGrants []UserGrant `json:"direct_grants"`
}

// ListFilter narrows user listings.
type ListFilter struct {
	Search   *string
	IsActive *bool
	Limit    int
	Offset   int
}

// DeleteResult reports join records removed alongside a user.
type DeleteResult struct {
	GroupLinks      int `json:"group_links"`
	PermissionLinks int `json:"permission_links"`
}
