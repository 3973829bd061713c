package roles

import "context"

// Repository defines data access for roles.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, Repository) error) error
	Get(ctx context.Context, id int64) (*Role, error)
	GetDetail(ctx context.Context, id int64) (*RoleDetail, error)
	List(ctx context.Context, filter ListFilter) ([]Role, int, error)
	Create(ctx context.Context, role Role) (int64, error)
	Update(ctx context.Context, id int64, updates map[string]interface{}) error
	CountGroupLinks(ctx context.Context, id int64) (int, error)
	DeleteCascade(ctx context.Context, id int64) (DeleteResult, error)
}
