package borrower

import (
	"context"
	"errors"
)

var (
	ErrNotFound = errors.New("borrower not found")

	ErrUpdateConflict = errors.New("update conflict detected")
)

type BorrowerRepository interface {
	Save(ctx context.Context, b *Borrower) error

	FindByID(ctx context.Context, borrowerID int64) (*Borrower, error)

	// FindAll returns every borrower, newest first.
	FindAll(ctx context.Context) ([]*Borrower, error)

	SearchByName(ctx context.Context, name string) ([]*Borrower, error)

	Delete(ctx context.Context, borrowerID int64) error
}
