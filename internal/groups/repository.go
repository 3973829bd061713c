package groups

import "context"

// Repository defines data access for groups.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, Repository) error) error
	Get(ctx context.Context, id int64) (*Group, error)
	GetDetail(ctx context.Context, id int64) (*GroupDetail, error)
	List(ctx context.Context, filter ListFilter) ([]Group, int, error)
	Create(ctx context.Context, group Group) (int64, error)
	Update(ctx context.Context, id int64, updates map[string]interface{}) error
	CountMembers(ctx context.Context, id int64) (int, error)
	DeleteCascade(ctx context.Context, id int64) (DeleteResult, error)
}
