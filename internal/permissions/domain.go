package permissions

import (
	"time"

	"github.com/sentinel-iam/sentinel-iam/internal/shared"
)

// Permission grants one action on one module. The module reference and the
// action are immutable after creation; changing either means delete and
// recreate.
type Permission struct {
	ID          int64         `json:"id"`
	ModuleID    int64         `json:"module_id"`
	ModuleName  string        `json:"module_name,omitempty"`
	Action      shared.Action `json:"action"`
	Name        string        `json:"name"`
	Description string        `json:"description"`
	IsActive    bool          `json:"is_active"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

// ListFilter narrows permission listings.
type ListFilter struct {
	ModuleID *int64
	Search   *string
	IsActive *bool
	Limit    int
	Offset   int
}

// DeleteResult reports join records removed alongside a permission.
type DeleteResult struct {
	RoleLinks      int `json:"role_links"`
	UserGrantLinks int `json:"user_grant_links"`
}
