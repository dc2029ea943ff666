package loan

import (
	"fmt"
	"time"

	"microloan-engine/internal/pkg/apperrors"
	"microloan-engine/internal/pkg/validate"
)

type Status string

const (
	StatusActive  Status = "ACTIVE"
	StatusOverdue Status = "OVERDUE"
	StatusPaidOff Status = "PAID_OFF"
)

type Money = float64

type Loan struct {
	ID                 int64
	BorrowerID         int64
	BorrowerName       string
	PrincipalAmount    Money
	OutstandingBalance Money
	InterestRate       Money
	TermMonths         int
	IssueDate          time.Time
	DueDate            time.Time
	Status             Status
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// NewLoan builds an issuable loan. The outstanding balance starts at the full
// principal and the first installment falls due one month after issuance.
func NewLoan(borrowerID int64, borrowerName string, principal, annualInterestRate Money, termMonths int, issueDate time.Time) (*Loan, error) {
	if !validate.LoanAmount(principal) {
		return nil, fmt.Errorf("%w: loan amount must be between %.2f and %.2f",
			apperrors.ErrInvalidLoanAmount, validate.MinLoanAmount, validate.MaxLoanAmount)
	}
	if !validate.InterestRate(annualInterestRate) {
		return nil, fmt.Errorf("%w: interest rate must be between 0 and 100 percent", apperrors.ErrInvalidLoanAmount)
	}
	if termMonths <= 0 {
		return nil, fmt.Errorf("%w: loan tenure must be greater than 0 months", apperrors.ErrInvalidLoanAmount)
	}

	return &Loan{
		BorrowerID:         borrowerID,
		BorrowerName:       borrowerName,
		PrincipalAmount:    principal,
		OutstandingBalance: principal,
		InterestRate:       annualInterestRate,
		TermMonths:         termMonths,
		IssueDate:          issueDate,
		DueDate:            issueDate.AddDate(0, 1, 0),
		Status:             StatusActive,
	}, nil
}

// DetermineStatus derives the lifecycle state from the balance and due date.
// The persisted status column is only a cache of this rule; callers must pass
// "today" in so the derivation stays referentially transparent.
func DetermineStatus(l *Loan, today time.Time) Status {
	if l.OutstandingBalance <= 0 {
		return StatusPaidOff
	}
	if l.IsOverdue(today) {
		return StatusOverdue
	}
	return StatusActive
}

// IsOverdue reports whether today is strictly after the due date at
// calendar-date granularity, with an unpaid balance remaining.
func (l *Loan) IsOverdue(today time.Time) bool {
	if l.OutstandingBalance <= 0 {
		return false
	}
	y1, m1, d1 := today.Date()
	y2, m2, d2 := l.DueDate.Date()
	t := time.Date(y1, m1, d1, 0, 0, 0, 0, time.UTC)
	due := time.Date(y2, m2, d2, 0, 0, 0, 0, time.UTC)
	return t.After(due)
}
