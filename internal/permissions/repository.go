package permissions

import "context"

// Repository defines data access for permissions.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, Repository) error) error
	Get(ctx context.Context, id int64) (*Permission, error)
	List(ctx context.Context, filter ListFilter) ([]Permission, int, error)
	Create(ctx context.Context, p Permission) (int64, error)
	Update(ctx context.Context, id int64, updates map[string]interface{}) error
	DeleteCascade(ctx context.Context, id int64) (DeleteResult, error)
	ModuleExists(ctx context.Context, moduleID int64) (bool, error)
}
