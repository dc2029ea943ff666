package loan

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"microloan-engine/internal/domain/borrower"
	"microloan-engine/internal/event"
	"microloan-engine/internal/infrastructure/monitoring"
	"microloan-engine/internal/pkg/apperrors"
	"microloan-engine/internal/pkg/validate"

	"github.com/jackc/pgx/v5"
)

// Quote is the display-side breakdown of an amortized loan offer.
type Quote struct {
	Installment   Money
	TotalInterest Money
	TotalPayable  Money
}

type LoanService interface {
	IssueLoan(ctx context.Context, borrowerID int64, borrowerName string, principal Money, annualInterestRate Money, termMonths int) (*Loan, error)

	RecordPayment(ctx context.Context, loanID int64, amount Money) error

	GetLoan(ctx context.Context, loanID int64) (*Loan, error)

	ListLoans(ctx context.Context) ([]*Loan, error)

	ListOverdueLoans(ctx context.Context, today time.Time) ([]*Loan, error)

	OverdueCount(ctx context.Context, today time.Time) (int, error)

	TotalOutstanding(ctx context.Context) (Money, error)

	QuoteLoan(principal Money, annualInterestRate Money, termMonths int) (*Quote, error)
}

type loanServiceImpl struct {
	repo            Repository
	borrowerService borrower.BorrowerService
	publisher       event.EventPublisher
	logger          *slog.Logger
	now             func() time.Time
}

func NewLoanService(r Repository, bs borrower.BorrowerService, pub event.EventPublisher, logger *slog.Logger) LoanService {
	return &loanServiceImpl{
		repo:            r,
		borrowerService: bs,
		publisher:       pub,
		logger:          logger.With("component", "LoanService"),
		now:             time.Now,
	}
}

func (s *loanServiceImpl) IssueLoan(ctx context.Context, borrowerID int64, borrowerName string, principal Money, annualInterestRate Money, termMonths int) (*Loan, error) {
	s.logger.InfoContext(ctx, "Issuing new loan", "borrowerID", borrowerID, "principal", principal)

	newLoan, err := NewLoan(borrowerID, borrowerName, principal, annualInterestRate, termMonths, s.now())
	if err != nil {
		s.logger.WarnContext(ctx, "Loan validation failed", slog.Any("error", err))
		return nil, err
	}

	if borrowerID <= 0 || strings.TrimSpace(borrowerName) == "" {
		s.logger.WarnContext(ctx, "Invalid borrower reference", "borrowerID", borrowerID)
		return nil, fmt.Errorf("%w: a valid borrower must be selected", apperrors.ErrBorrowerNotFound)
	}

	b, err := s.borrowerService.GetBorrower(ctx, borrowerID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			s.logger.WarnContext(ctx, "Borrower does not exist", "borrowerID", borrowerID)
			return nil, fmt.Errorf("%w: borrower %d not found", apperrors.ErrBorrowerNotFound, borrowerID)
		}
		s.logger.ErrorContext(ctx, "Failed to verify borrower", slog.Any("error", err))
		return nil, fmt.Errorf("failed to verify borrower: %w", err)
	}
	newLoan.BorrowerName = b.Name

	createdLoan, err := s.repo.CreateLoan(ctx, newLoan)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to save loan", slog.Any("error", err))
		return nil, fmt.Errorf("%w: failed to create loan: %v", apperrors.ErrDatabase, err)
	}
	monitoring.RecordLoanIssued(principal)

	s.publishLoanIssued(ctx, createdLoan)
	s.logger.InfoContext(ctx, "Loan issued successfully", "loanID", createdLoan.ID, "borrowerID", borrowerID)
	return createdLoan, nil
}

func (s *loanServiceImpl) RecordPayment(ctx context.Context, loanID int64, amount Money) (err error) {
	s.logger.InfoContext(ctx, "Recording payment", "loanID", loanID, "amount", amount)

	if amount <= 0 {
		monitoring.RecordPayment("failure_amount")
		return fmt.Errorf("%w: payment amount must be greater than 0", apperrors.ErrInvalidPayment)
	}

	tx, err := s.repo.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("%w: could not begin transaction: %v", apperrors.ErrInternalServer, err)
	}

	var paidOff *Loan
	defer func() {
		if p := recover(); p != nil {
			s.logger.ErrorContext(ctx, "Panic during payment processing", "loanID", loanID, "error", p)
			_ = s.repo.RollbackTx(ctx, tx)
			panic(p)
		}
		if err != nil {
			status := "failure_internal"
			switch {
			case errors.Is(err, apperrors.ErrInvalidPayment):
				status = "failure_amount"
			case errors.Is(err, apperrors.ErrLoanPaidOff):
				status = "failure_paid_off"
			case errors.Is(err, apperrors.ErrNotFound):
				status = "failure_not_found"
			}
			monitoring.RecordPayment(status)
			_ = s.repo.RollbackTx(ctx, tx)
		}
	}()

	current, err := s.repo.GetLoanForUpdate(ctx, tx, loanID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) || errors.Is(err, apperrors.ErrNotFound) {
			s.logger.WarnContext(ctx, "Loan not found for payment", "loanID", loanID)
			return fmt.Errorf("%w: loan with ID %d not found", apperrors.ErrNotFound, loanID)
		}
		return fmt.Errorf("%w: could not load loan for payment: %v", apperrors.ErrInternalServer, err)
	}

	if current.OutstandingBalance <= 0 {
		return apperrors.ErrLoanPaidOff
	}
	if amount > current.OutstandingBalance {
		return fmt.Errorf("%w: payment %.2f exceeds outstanding balance %.2f",
			apperrors.ErrInvalidPayment, amount, current.OutstandingBalance)
	}

	newBalance, err := s.repo.DecrementBalanceInTx(ctx, tx, loanID, amount)
	if err != nil {
		return fmt.Errorf("%w: could not apply payment: %v", apperrors.ErrInternalServer, err)
	}

	if newBalance > 0 {
		nextDue := current.DueDate.AddDate(0, 1, 0)
		if err = s.repo.UpdateDueDateInTx(ctx, tx, loanID, nextDue); err != nil {
			return fmt.Errorf("%w: could not roll due date forward: %v", apperrors.ErrInternalServer, err)
		}
		current.DueDate = nextDue
	} else {
		paid := *current
		paid.OutstandingBalance = 0
		paidOff = &paid
	}

	if err = s.repo.CommitTx(ctx, tx); err != nil {
		return fmt.Errorf("%w: could not commit payment transaction: %v", apperrors.ErrInternalServer, err)
	}
	monitoring.RecordPayment("success")

	// Reconcile the cached status column outside the payment unit; it is
	// advisory only and re-derived on every read.
	current.OutstandingBalance = newBalance
	if cacheErr := s.repo.UpdateStatus(ctx, loanID, DetermineStatus(current, s.now())); cacheErr != nil {
		s.logger.WarnContext(ctx, "Failed to refresh cached loan status", "loanID", loanID, slog.Any("error", cacheErr))
	}

	if paidOff != nil {
		s.publishLoanPaidOff(ctx, paidOff)
	}
	s.logger.InfoContext(ctx, "Payment recorded", "loanID", loanID, "amount", amount, "newBalance", newBalance)
	return nil
}

func (s *loanServiceImpl) GetLoan(ctx context.Context, loanID int64) (*Loan, error) {
	l, err := s.repo.GetLoanByID(ctx, loanID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) || errors.Is(err, apperrors.ErrNotFound) {
			s.logger.WarnContext(ctx, "Loan not found", "loanID", loanID)
			return nil, fmt.Errorf("%w: loan with ID %d not found", apperrors.ErrNotFound, loanID)
		}
		return nil, fmt.Errorf("%w: failed to get loan %d: %v", apperrors.ErrInternalServer, loanID, err)
	}

	l.Status = DetermineStatus(l, s.now())
	return l, nil
}

func (s *loanServiceImpl) ListLoans(ctx context.Context) ([]*Loan, error) {
	loans, err := s.repo.ListAllLoans(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to list loans: %v", apperrors.ErrInternalServer, err)
	}
	now := s.now()
	for _, l := range loans {
		l.Status = DetermineStatus(l, now)
	}
	return loans, nil
}

func (s *loanServiceImpl) ListOverdueLoans(ctx context.Context, today time.Time) ([]*Loan, error) {
	loans, err := s.repo.ListAllLoans(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to list loans: %v", apperrors.ErrInternalServer, err)
	}

	overdue := make([]*Loan, 0)
	for _, l := range loans {
		if l.IsOverdue(today) {
			l.Status = StatusOverdue
			overdue = append(overdue, l)
		}
	}
	return overdue, nil
}

func (s *loanServiceImpl) OverdueCount(ctx context.Context, today time.Time) (int, error) {
	overdue, err := s.ListOverdueLoans(ctx, today)
	if err != nil {
		return 0, err
	}
	return len(overdue), nil
}

func (s *loanServiceImpl) TotalOutstanding(ctx context.Context) (Money, error) {
	total, err := s.repo.SumOutstanding(ctx)
	if err != nil {
		return 0, fmt.Errorf("%w: failed to sum outstanding balances: %v", apperrors.ErrInternalServer, err)
	}
	return total, nil
}

func (s *loanServiceImpl) QuoteLoan(principal Money, annualInterestRate Money, termMonths int) (*Quote, error) {
	if !validate.LoanAmount(principal) {
		return nil, fmt.Errorf("%w: loan amount must be between %.2f and %.2f",
			apperrors.ErrInvalidLoanAmount, validate.MinLoanAmount, validate.MaxLoanAmount)
	}
	installment, err := Installment(principal, annualInterestRate, termMonths)
	if err != nil {
		return nil, err
	}
	return &Quote{
		Installment:   installment,
		TotalInterest: TotalInterest(installment, termMonths, principal),
		TotalPayable:  TotalPayable(installment, termMonths),
	}, nil
}

func (s *loanServiceImpl) publishLoanIssued(ctx context.Context, l *Loan) {
	if s.publisher == nil {
		return
	}
	evt := event.LoanIssuedEvent{
		Timestamp: s.now(),
		Payload:   newLoanEventPayload(l),
	}
	if err := s.publisher.PublishLoanIssued(ctx, evt); err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish loan issued event", "loanID", l.ID, slog.Any("error", err))
	}
}

func (s *loanServiceImpl) publishLoanPaidOff(ctx context.Context, l *Loan) {
	if s.publisher == nil {
		return
	}
	evt := event.LoanPaidOffEvent{
		Timestamp: s.now(),
		Payload:   newLoanEventPayload(l),
	}
	if err := s.publisher.PublishLoanPaidOff(ctx, evt); err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish loan paid off event", "loanID", l.ID, slog.Any("error", err))
	}
}

func newLoanEventPayload(l *Loan) event.LoanEventPayload {
	return event.LoanEventPayload{
		LoanID:             l.ID,
		BorrowerID:         l.BorrowerID,
		PrincipalAmount:    l.PrincipalAmount,
		OutstandingBalance: l.OutstandingBalance,
		InterestRate:       l.InterestRate,
		TermMonths:         l.TermMonths,
		IssueDate:          l.IssueDate,
		DueDate:            l.DueDate,
	}
}
