package loan

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
)

type Repository interface {
	CreateLoan(ctx context.Context, newLoan *Loan) (*Loan, error)

	GetLoanByID(ctx context.Context, loanID int64) (*Loan, error)

	// ListAllLoans returns every loan, newest issue date first.
	ListAllLoans(ctx context.Context) ([]*Loan, error)

	// GetLoanForUpdate row-locks the loan inside tx so the payment unit
	// (decrement + due-date rollover) is serialized per loan id.
	GetLoanForUpdate(ctx context.Context, tx pgx.Tx, loanID int64) (*Loan, error)

	// DecrementBalanceInTx atomically subtracts amount from the outstanding
	// balance, clamped at zero, and returns the new balance.
	DecrementBalanceInTx(ctx context.Context, tx pgx.Tx, loanID int64, amount Money) (Money, error)

	UpdateDueDateInTx(ctx context.Context, tx pgx.Tx, loanID int64, dueDate time.Time) error

	// UpdateStatus refreshes the cached status column. The column is a
	// materialized view of DetermineStatus, never an independent fact.
	UpdateStatus(ctx context.Context, loanID int64, status Status) error

	SumOutstanding(ctx context.Context) (Money, error)

	BeginTx(ctx context.Context) (pgx.Tx, error)

	CommitTx(ctx context.Context, tx pgx.Tx) error

	RollbackTx(ctx context.Context, tx pgx.Tx) error
}
