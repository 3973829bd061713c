package shared

import "context"

// Invalidator is implemented by caches that version their entries. Entity
// and assignment services bump it after any mutation that can change a
// subject's effective permissions.
type Invalidator interface {
	Bump(ctx context.Context) error
}

// NopInvalidator satisfies Invalidator without a backing cache, for tests
// and cache-less deployments.
type NopInvalidator struct{}

// Bump is a no-op.
func (NopInvalidator) Bump(context.Context) error { return nil }
