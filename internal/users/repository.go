package users

import "context"

// Repository defines data access for users.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, Repository) error) error
	Get(ctx context.Context, id int64) (*User, error)
	GetByUsername(ctx context.Context, username string) (*User, error)
	GetDetail(ctx context.Context, id int64) (*UserDetail, error)
	List(ctx context.Context, filter ListFilter) ([]User, int, error)
	Create(ctx context.Context, u User) (int64, error)
	Update(ctx context.Context, id int64, updates map[string]interface{}) error
	DeleteCascade(ctx context.Context, id int64) (DeleteResult, error)
	ActiveIDs(ctx context.Context) ([]int64, error)
}
