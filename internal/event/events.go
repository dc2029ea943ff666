package event

import (
	"context"
	"time"
)

type LoanEventPayload struct {
	LoanID             int64     `json:"loanId"`
	BorrowerID         int64     `json:"borrowerId"`
	PrincipalAmount    float64   `json:"principalAmount"`
	OutstandingBalance float64   `json:"outstandingBalance"`
	InterestRate       float64   `json:"interestRate"`
	TermMonths         int       `json:"termMonths"`
	IssueDate          time.Time `json:"issueDate"`
	DueDate            time.Time `json:"dueDate"`
}

type LoanIssuedEvent struct {
	Timestamp time.Time        `json:"timestamp"`
	Payload   LoanEventPayload `json:"payload"`
}

type LoanPaidOffEvent struct {
	Timestamp time.Time        `json:"timestamp"`
	Payload   LoanEventPayload `json:"payload"`
}

type BorrowerEventPayload struct {
	BorrowerID int64   `json:"borrowerId"`
	Name       string  `json:"name"`
	Email      string  `json:"email"`
	Phone      string  `json:"phone"`
	Address    string  `json:"address"`
	Income     float64 `json:"income"`
}

type BorrowerCreatedEvent struct {
	Timestamp time.Time            `json:"timestamp"`
	Payload   BorrowerEventPayload `json:"payload"`
}

type EventPublisher interface {
	PublishLoanIssued(ctx context.Context, event LoanIssuedEvent) error
	PublishLoanPaidOff(ctx context.Context, event LoanPaidOffEvent) error
	PublishBorrowerCreated(ctx context.Context, event BorrowerCreatedEvent) error
}
