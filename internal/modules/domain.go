package modules

import "time"

// Module is a named protectable resource category permissions are scoped to.
type Module struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ListFilter narrows module listings.
type ListFilter struct {
	Search   *string
	IsActive *bool
	Limit    int
	Offset   int
}

// DeleteResult reports join records removed alongside a module once no
// active permissions block the delete.
type DeleteResult struct {
	Permissions    int `json:"permissions"`
	RoleLinks      int `json:"role_links"`
	UserGrantLinks int `json:"user_grant_links"`
}
