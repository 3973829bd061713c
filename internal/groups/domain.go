package groups

import "time"

// Group is a collection of users that receives roles.
type Group struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// GroupRole is a role row as seen from a group detail view.
type GroupRole struct {
	RoleID   int64  `json:"role_id"`
	Name     string `json:"name"`
	IsActive bool   `json:"is_active"`
}

// GroupMember is a user row as seen from a group detail view.
type GroupMember struct {
	UserID   int64  `json:"user_id"`
	Username string `json:"username"`
	IsActive bool   `json:"is_active"`
}

// GroupDetail is a group together with its roles and members.
type GroupDetail struct {
	Group
	Roles   []GroupRole   `json:"roles"`
	Members []GroupMember `json:"members"`
}

// ListFilter narrows group listings.
type ListFilter struct {
	Search   *string
	IsActive *bool
	Limit    int
	Offset   int
}

// DeleteResult reports join records removed alongside a group.
type DeleteResult struct {
	RoleLinks int `json:"role_links"`
}
