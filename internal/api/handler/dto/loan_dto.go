package dto

import (
	"fmt"
	"strconv"
	"time"

	"microloan-engine/internal/domain/loan"
	"microloan-engine/internal/pkg/validate"

	"github.com/shopspring/decimal"
)

type IssueLoanRequest struct {
	BorrowerID         int64   `json:"borrowerId"`
	BorrowerName       string  `json:"borrowerName"`
	Principal          float64 `json:"principal"`
	AnnualInterestRate float64 `json:"annualInterestRate"`
	TermMonths         int     `json:"termMonths"`
}

func (r *IssueLoanRequest) Validate() error {
	if !validate.LoanAmount(r.Principal) {
		return fmt.Errorf("principal must be between %.2f and %.2f", validate.MinLoanAmount, validate.MaxLoanAmount)
	}
	if !validate.InterestRate(r.AnnualInterestRate) {
		return fmt.Errorf("annualInterestRate must be between 0 and 100")
	}
	if r.TermMonths <= 0 {
		return fmt.Errorf("termMonths must be positive")
	}
	if r.BorrowerID <= 0 {
		return fmt.Errorf("borrowerId must be positive")
	}
	return nil
}

type RecordPaymentRequest struct {
	Amount string `json:"amount"`
}

func (r *RecordPaymentRequest) Validate() error {
	if _, err := decimal.NewFromString(r.Amount); err != nil || r.Amount == "" {
		return fmt.Errorf("invalid payment amount: %w", err)
	}
	return nil
}

// ParsedAmount returns the payment amount as a float64. Validate must have
// succeeded first.
func (r *RecordPaymentRequest) ParsedAmount() float64 {
	d, _ := decimal.NewFromString(r.Amount)
	f, _ := d.Float64()
	return f
}

type QuoteRequest struct {
	Principal          float64 `json:"principal"`
	AnnualInterestRate float64 `json:"annualInterestRate"`
	TermMonths         int     `json:"termMonths"`
}

func (r *QuoteRequest) Validate() error {
	if r.Principal <= 0 {
		return fmt.Errorf("principal must be greater than zero")
	}
	if r.AnnualInterestRate < 0 {
		return fmt.Errorf("annualInterestRate cannot be negative")
	}
	if r.TermMonths <= 0 {
		return fmt.Errorf("termMonths must be positive")
	}
	return nil
}

type LoanResponse struct {
	ID                 string    `json:"id"`
	BorrowerID         string    `json:"borrowerId"`
	BorrowerName       string    `json:"borrowerName,omitempty"`
	PrincipalAmount    string    `json:"principalAmount"`
	OutstandingBalance string    `json:"outstandingBalance"`
	InterestRate       string    `json:"interestRate"`
	TermMonths         int       `json:"termMonths"`
	IssueDate          string    `json:"issueDate"`
	DueDate            string    `json:"dueDate"`
	Status             string    `json:"status"`
	CreatedAt          time.Time `json:"createdAt"`
	UpdatedAt          time.Time `json:"updatedAt"`
}

type QuoteResponse struct {
	Installment   string `json:"installment"`
	TotalInterest string `json:"totalInterest"`
	TotalPayable  string `json:"totalPayable"`
}

type PaymentResponse struct {
	LoanID  string `json:"loanId"`
	Amount  string `json:"amount"`
	Success bool   `json:"success"`
}

type PortfolioSummaryResponse struct {
	TotalOutstanding string `json:"totalOutstanding"`
	OverdueCount     int    `json:"overdueCount"`
}

type ErrorDetail struct {
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

type TokenRequest struct {
	Username string `json:"username"`
}

func NewLoanResponse(domainLoan *loan.Loan) LoanResponse {
	formatDecimalMoney := func(v float64) string {
		return decimal.NewFromFloat(v).StringFixed(2)
	}

	return LoanResponse{
		ID:                 strconv.FormatInt(domainLoan.ID, 10),
		BorrowerID:         strconv.FormatInt(domainLoan.BorrowerID, 10),
		BorrowerName:       domainLoan.BorrowerName,
		PrincipalAmount:    formatDecimalMoney(domainLoan.PrincipalAmount),
		OutstandingBalance: formatDecimalMoney(domainLoan.OutstandingBalance),
		InterestRate:       decimal.NewFromFloat(domainLoan.InterestRate).String(),
		TermMonths:         domainLoan.TermMonths,
		IssueDate:          domainLoan.IssueDate.Format(time.RFC3339[:10]),
		DueDate:            domainLoan.DueDate.Format(time.RFC3339[:10]),
		Status:             string(domainLoan.Status),
		CreatedAt:          domainLoan.CreatedAt,
		UpdatedAt:          domainLoan.UpdatedAt,
	}
}

func NewLoanListResponse(loans []*loan.Loan) []LoanResponse {
	resp := make([]LoanResponse, len(loans))
	for i, l := range loans {
		resp[i] = NewLoanResponse(l)
	}
	return resp
}

func NewQuoteResponse(q *loan.Quote) QuoteResponse {
	return QuoteResponse{
		Installment:   decimal.NewFromFloat(q.Installment).StringFixed(2),
		TotalInterest: decimal.NewFromFloat(q.TotalInterest).StringFixed(2),
		TotalPayable:  decimal.NewFromFloat(q.TotalPayable).StringFixed(2),
	}
}
