package roles

import (
	"time"

	"github.com/sentinel-iam/sentinel-iam/internal/shared"
)

// Role is a named bundle of permissions.
type Role struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// RolePermission is a permission row as seen from a role detail view.
type RolePermission struct {
	PermissionID int64         `json:"permission_id"`
	ModuleID     int64         `json:"module_id"`
	ModuleName   string        `json:"module_name"`
	Action       shared.Action `json:"action"`
	Name         string        `json:"name"`
	IsActive     bool          `json:"is_active"`
}

// RoleDetail is a role together with its attached permissions.
type RoleDetail struct {
	Role
	Permissions []RolePermission `json:"permissions"`
}

// ListFilter narrows role listings.
type ListFilter struct {
	Search   *string
	IsActive *bool
	Limit    int
	Offset   int
}

// DeleteResult reports join records removed alongside a role.
type DeleteResult struct {
	PermissionLinks int `json:"permission_links"`
}
