package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"microloan-engine/internal/domain/loan"
	"microloan-engine/internal/infrastructure/monitoring"
	"microloan-engine/internal/pkg/apperrors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pashagolub/pgxmock/v4"
)

type DBPool interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Acquire(ctx context.Context) (*pgxpool.Conn, error)
	Close()
}

var _ DBPool = (*pgxpool.Pool)(nil)

var _ DBPool = (pgxmock.PgxPoolIface)(nil)

var errMsgFormat = "%w: %w"

type LoanRepository struct {
	db     DBPool
	logger *slog.Logger
}

var _ loan.Repository = (*LoanRepository)(nil)

func NewLoanRepository(db DBPool, logger *slog.Logger) *LoanRepository {
	return &LoanRepository{db: db, logger: logger.With("component", "LoanRepository")}
}

func (r *LoanRepository) BeginTx(ctx context.Context) (pgx.Tx, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to begin transaction", "error", err)
		return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	return tx, nil
}

func (r *LoanRepository) CommitTx(ctx context.Context, tx pgx.Tx) error {
	err := tx.Commit(ctx)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to commit transaction", "error", err)
		return fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	return nil
}

func (r *LoanRepository) RollbackTx(ctx context.Context, tx pgx.Tx) error {
	err := tx.Rollback(ctx)
	if err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		r.logger.ErrorContext(ctx, "Failed to rollback transaction", "error", err)
		return fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	return nil
}

func (r *LoanRepository) CreateLoan(ctx context.Context, newLoan *loan.Loan) (*loan.Loan, error) {
	loanSQL := `
        INSERT INTO loans (borrower_id, principal_amount, outstanding_balance, interest_rate, term_months, issue_date, due_date, status, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW(), NOW())
        RETURNING id, borrower_id, principal_amount, outstanding_balance, interest_rate, term_months, issue_date, due_date, status, created_at, updated_at`

	status := "success"
	startTime := time.Now()

	var created loan.Loan
	err := r.db.QueryRow(ctx, loanSQL,
		newLoan.BorrowerID, newLoan.PrincipalAmount, newLoan.OutstandingBalance,
		newLoan.InterestRate, newLoan.TermMonths, newLoan.IssueDate, newLoan.DueDate, newLoan.Status,
	).Scan(
		&created.ID, &created.BorrowerID, &created.PrincipalAmount, &created.OutstandingBalance,
		&created.InterestRate, &created.TermMonths, &created.IssueDate, &created.DueDate,
		&created.Status, &created.CreatedAt, &created.UpdatedAt,
	)
	if err != nil {
		status = "error"
	}
	monitoring.RecordDBQuery("CreateLoan", status, time.Since(startTime))

	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to insert loan", "error", err)
		return nil, fmt.Errorf("%w: failed to insert loan: %w", apperrors.ErrDatabase, err)
	}
	created.BorrowerName = newLoan.BorrowerName

	r.logger.InfoContext(ctx, "Loan created in DB", "loan_id", created.ID)
	return &created, nil
}

func (r *LoanRepository) GetLoanByID(ctx context.Context, loanID int64) (*loan.Loan, error) {
	query := `
        SELECT l.id, l.borrower_id, b.name AS borrower_name, l.principal_amount, l.outstanding_balance,
               l.interest_rate, l.term_months, l.issue_date, l.due_date, l.status, l.created_at, l.updated_at
        FROM loans l
        JOIN borrowers b ON l.borrower_id = b.id
        WHERE l.id = $1`

	status := "success"
	startTime := time.Now()

	var l loan.Loan
	err := r.db.QueryRow(ctx, query, loanID).Scan(
		&l.ID, &l.BorrowerID, &l.BorrowerName, &l.PrincipalAmount, &l.OutstandingBalance,
		&l.InterestRate, &l.TermMonths, &l.IssueDate, &l.DueDate, &l.Status, &l.CreatedAt, &l.UpdatedAt,
	)
	if err != nil {
		status = "error"
	}
	monitoring.RecordDBQuery("GetLoanByID", status, time.Since(startTime))

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.WarnContext(ctx, "Loan not found", "loan_id", loanID)
			return nil, apperrors.ErrNotFound
		}
		r.logger.ErrorContext(ctx, "Failed to get loan by ID", "loan_id", loanID, "error", err)
		return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	return &l, nil
}

func (r *LoanRepository) ListAllLoans(ctx context.Context) ([]*loan.Loan, error) {
	query := `
        SELECT l.id, l.borrower_id, b.name AS borrower_name, l.principal_amount, l.outstanding_balance,
               l.interest_rate, l.term_months, l.issue_date, l.due_date, l.status, l.created_at, l.updated_at
        FROM loans l
        JOIN borrowers b ON l.borrower_id = b.id
        ORDER BY l.issue_date DESC`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to query loans", "error", err)
		return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	defer rows.Close()

	loans := make([]*loan.Loan, 0)
	for rows.Next() {
		var l loan.Loan
		err := rows.Scan(
			&l.ID, &l.BorrowerID, &l.BorrowerName, &l.PrincipalAmount, &l.OutstandingBalance,
			&l.InterestRate, &l.TermMonths, &l.IssueDate, &l.DueDate, &l.Status, &l.CreatedAt, &l.UpdatedAt,
		)
		if err != nil {
			r.logger.ErrorContext(ctx, "Failed to scan loan row", "error", err)
			return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
		}
		loans = append(loans, &l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	return loans, nil
}

func (r *LoanRepository) GetLoanForUpdate(ctx context.Context, tx pgx.Tx, loanID int64) (*loan.Loan, error) {
	query := `
        SELECT id, borrower_id, principal_amount, outstanding_balance, interest_rate, term_months,
               issue_date, due_date, status, created_at, updated_at
        FROM loans
        WHERE id = $1
        FOR UPDATE`

	var l loan.Loan
	err := tx.QueryRow(ctx, query, loanID).Scan(
		&l.ID, &l.BorrowerID, &l.PrincipalAmount, &l.OutstandingBalance,
		&l.InterestRate, &l.TermMonths, &l.IssueDate, &l.DueDate, &l.Status, &l.CreatedAt, &l.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		r.logger.ErrorContext(ctx, "Failed to lock loan row", "loan_id", loanID, "error", err)
		return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	return &l, nil
}

// DecrementBalanceInTx applies the payment as a single conditional update so
// concurrent payments can never drive the balance negative.
func (r *LoanRepository) DecrementBalanceInTx(ctx context.Context, tx pgx.Tx, loanID int64, amount loan.Money) (loan.Money, error) {
	query := `
        UPDATE loans
        SET outstanding_balance = GREATEST(outstanding_balance - $1, 0), updated_at = NOW()
        WHERE id = $2
        RETURNING outstanding_balance`

	var newBalance loan.Money
	err := tx.QueryRow(ctx, query, amount, loanID).Scan(&newBalance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, apperrors.ErrNotFound
		}
		r.logger.ErrorContext(ctx, "Failed to decrement balance", "loan_id", loanID, "error", err)
		return 0, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	return newBalance, nil
}

func (r *LoanRepository) UpdateDueDateInTx(ctx context.Context, tx pgx.Tx, loanID int64, dueDate time.Time) error {
	query := `
        UPDATE loans
        SET due_date = $1, updated_at = NOW()
        WHERE id = $2`

	cmdTag, err := tx.Exec(ctx, query, dueDate, loanID)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to update due date", "loan_id", loanID, "error", err)
		return fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func (r *LoanRepository) UpdateStatus(ctx context.Context, loanID int64, status loan.Status) error {
	query := `
        UPDATE loans
        SET status = $1, updated_at = NOW()
        WHERE id = $2 AND status <> $1`

	startTime := time.Now()
	_, err := r.db.Exec(ctx, query, status, loanID)
	queryStatus := "success"
	if err != nil {
		queryStatus = "error"
	}
	monitoring.RecordDBQuery("UpdateStatus", queryStatus, time.Since(startTime))

	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to update cached loan status", "loan_id", loanID, "error", err)
		return fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	return nil
}

func (r *LoanRepository) SumOutstanding(ctx context.Context) (loan.Money, error) {
	query := `SELECT COALESCE(SUM(outstanding_balance), 0) FROM loans`

	status := "success"
	startTime := time.Now()

	var total loan.Money
	err := r.db.QueryRow(ctx, query).Scan(&total)
	if err != nil {
		status = "error"
	}
	monitoring.RecordDBQuery("SumOutstanding", status, time.Since(startTime))

	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to sum outstanding balances", "error", err)
		return 0, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	return total, nil
}
