package memory

import "context"

// Transactor is a pass-through transactor. The in-memory repositories are
// individually locked but offer no cross-store atomicity, which is acceptable
// for tests and single-process development.
type Transactor struct{}

func NewTransactor() *Transactor { return &Transactor{} }

func (Transactor) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}
