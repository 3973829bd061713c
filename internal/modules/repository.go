package modules

import "context"

// Repository defines data access for modules. WithTx runs fn in a
// transaction-bound copy so the dependent-count check and the delete stay
// atomic.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, Repository) error) error
	Get(ctx context.Context, id int64) (*Module, error)
	GetByName(ctx context.Context, name string) (*Module, error)
	List(ctx context.Context, filter ListFilter) ([]Module, int, error)
	Create(ctx context.Context, m Module) (int64, error)
	Update(ctx context.Context, id int64, updates map[string]interface{}) error
	CountActivePermissions(ctx context.Context, moduleID int64) (int, error)
	DeleteCascade(ctx context.Context, moduleID int64) (DeleteResult, error)
}
