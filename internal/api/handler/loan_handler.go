package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"microloan-engine/internal/api/handler/dto"
	"microloan-engine/internal/domain/loan"
	"microloan-engine/internal/pkg/apperrors"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

// Overridable in tests so overdue filtering is deterministic.
var timeNow = time.Now

type LoanHandler struct {
	service loan.LoanService
	logger  *slog.Logger
}

func NewLoanHandler(s loan.LoanService, l *slog.Logger) *LoanHandler {
	return &LoanHandler{
		service: s,
		logger:  l.With("component", "LoanHandler"),
	}
}

func decodeJSON(r *http.Request, v interface{}) error {
	if r.Body == nil {
		return fmt.Errorf("no request body")
	}
	defer r.Body.Close()
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(v)
}

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		slog.Default().Error("Failed to marshal JSON response", "error", err)
		http.Error(w, `{"error":{"message":"Internal server error"}}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(response)
}

func respondError(w http.ResponseWriter, err error) {
	status, message, field := http.StatusInternalServerError, "An unexpected error occurred.", ""
	var validationError *apperrors.ValidationError
	var appErr *apperrors.AppError

	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		status, message = http.StatusNotFound, "Resource not found."
	case errors.Is(err, apperrors.ErrInvalidArgument), errors.Is(err, apperrors.ErrValidation):
		status, message = http.StatusBadRequest, err.Error()
	case errors.Is(err, apperrors.ErrInvalidLoanAmount),
		errors.Is(err, apperrors.ErrBorrowerNotFound),
		errors.Is(err, apperrors.ErrInvalidPayment),
		errors.Is(err, apperrors.ErrLoanPaidOff):
		status, message = http.StatusBadRequest, err.Error()
	case errors.As(err, &validationError):
		status, message, field = http.StatusBadRequest, validationError.Message, validationError.Field
	case errors.As(err, &appErr):
		message = appErr.Error()
	default:
		slog.Default().Error("Unhandled internal error", "error", err)
	}

	resp := dto.ErrorResponse{
		Error: dto.ErrorDetail{
			Message: message,
			Field:   field,
		},
	}
	respondJSON(w, status, resp)
}

func getIDFromURL(r *http.Request, param string) (int64, error) {
	idStr := chi.URLParam(r, param)
	if idStr == "" {
		return 0, fmt.Errorf("%s not found in URL path", param)
	}
	return strconv.ParseInt(idStr, 10, 64)
}

// IssueLoan handles the issuance of a new loan.
//
// @Summary Issue a new loan
// @Description Validates the principal, interest rate, tenure and borrower, then creates the loan with the full principal outstanding and the first installment due one month after issuance.
// @Tags Loans
// @Accept json
// @Produce json
// @Param request body dto.IssueLoanRequest true "Loan issuance request payload"
// @Success 201 {object} dto.LoanResponse "Loan successfully issued"
// @Failure 400 {object} dto.ErrorResponse "Invalid request payload or validation error"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /loans [post]
// @Security BearerAuth
func (h *LoanHandler) IssueLoan(w http.ResponseWriter, r *http.Request) {
	var req dto.IssueLoanRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, fmt.Errorf("%w: %v", apperrors.ErrInvalidArgument, err))
		return
	}

	createdLoan, err := h.service.IssueLoan(r.Context(), req.BorrowerID, req.BorrowerName, req.Principal, req.AnnualInterestRate, req.TermMonths)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, dto.NewLoanResponse(createdLoan))
}

// GetLoan retrieves the details of a specific loan.
//
// @Summary Retrieve loan details
// @Description Retrieves a loan by its ID. The status in the response is always derived from the outstanding balance and due date, never read from a stale cache.
// @Tags Loans
// @Produce json
// @Param loanID path int true "Loan ID"
// @Success 200 {object} dto.LoanResponse "Loan details successfully retrieved"
// @Failure 400 {object} dto.ErrorResponse "Invalid loan ID"
// @Failure 404 {object} dto.ErrorResponse "Loan not found"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /loans/{loanID} [get]
// @Security BearerAuth
func (h *LoanHandler) GetLoan(w http.ResponseWriter, r *http.Request) {
	loanID, err := getIDFromURL(r, "loanID")
	if err != nil {
		respondError(w, fmt.Errorf("%w: %v", apperrors.ErrInvalidArgument, err))
		return
	}

	domainLoan, err := h.service.GetLoan(r.Context(), loanID)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, dto.NewLoanResponse(domainLoan))
}

// ListLoans lists every loan in the portfolio, newest first.
//
// @Summary List loans
// @Description Lists all loans. With ?status=overdue only loans past their due date with an unpaid balance are returned.
// @Tags Loans
// @Produce json
// @Param status query string false "Filter by derived status (use 'overdue')"
// @Success 200 {array} dto.LoanResponse "Loans successfully retrieved"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /loans [get]
// @Security BearerAuth
func (h *LoanHandler) ListLoans(w http.ResponseWriter, r *http.Request) {
	var (
		loans []*loan.Loan
		err   error
	)
	if r.URL.Query().Get("status") == "overdue" {
		loans, err = h.service.ListOverdueLoans(r.Context(), timeNow())
	} else {
		loans, err = h.service.ListLoans(r.Context())
	}
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, dto.NewLoanListResponse(loans))
}

// RecordPayment applies a payment to a loan.
//
// @Summary Record a loan payment
// @Description Decrements the outstanding balance by the payment amount and rolls the due date one month forward while a balance remains. A payment that exceeds the outstanding balance is rejected.
// @Tags Loans
// @Accept json
// @Produce json
// @Param loanID path int true "Loan ID"
// @Param request body dto.RecordPaymentRequest true "Payment request payload"
// @Success 200 {object} dto.PaymentResponse "Payment successfully recorded"
// @Failure 400 {object} dto.ErrorResponse "Invalid payment amount"
// @Failure 404 {object} dto.ErrorResponse "Loan not found"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /loans/{loanID}/payments [post]
// @Security BearerAuth
func (h *LoanHandler) RecordPayment(w http.ResponseWriter, r *http.Request) {
	loanID, err := getIDFromURL(r, "loanID")
	if err != nil {
		respondError(w, fmt.Errorf("%w: %v", apperrors.ErrInvalidArgument, err))
		return
	}

	var req dto.RecordPaymentRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, fmt.Errorf("%w: %v", apperrors.ErrInvalidArgument, err))
		return
	}
	if err := req.Validate(); err != nil {
		respondError(w, fmt.Errorf("%w: %v", apperrors.ErrInvalidPayment, err))
		return
	}

	if err := h.service.RecordPayment(r.Context(), loanID, req.ParsedAmount()); err != nil {
		respondError(w, err)
		return
	}

	amount, _ := decimal.NewFromString(req.Amount)
	respondJSON(w, http.StatusOK, dto.PaymentResponse{
		LoanID:  strconv.FormatInt(loanID, 10),
		Amount:  amount.StringFixed(2),
		Success: true,
	})
}

// QuoteLoan computes the installment breakdown for a prospective loan.
//
// @Summary Quote an amortized loan
// @Description Computes the fixed monthly installment, total interest and total payable for the given principal, annual rate and term without persisting anything.
// @Tags Loans
// @Accept json
// @Produce json
// @Param request body dto.QuoteRequest true "Quote request payload"
// @Success 200 {object} dto.QuoteResponse "Quote successfully computed"
// @Failure 400 {object} dto.ErrorResponse "Invalid quote parameters"
// @Router /loans/quote [post]
// @Security BearerAuth
func (h *LoanHandler) QuoteLoan(w http.ResponseWriter, r *http.Request) {
	var req dto.QuoteRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, fmt.Errorf("%w: %v", apperrors.ErrInvalidArgument, err))
		return
	}
	if err := req.Validate(); err != nil {
		respondError(w, fmt.Errorf("%w: %v", apperrors.ErrInvalidArgument, err))
		return
	}

	quote, err := h.service.QuoteLoan(req.Principal, req.AnnualInterestRate, req.TermMonths)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, dto.NewQuoteResponse(quote))
}

// PortfolioSummary reports portfolio-wide aggregates.
//
// @Summary Portfolio summary
// @Description Returns the total outstanding balance over all loans and the number of overdue accounts.
// @Tags Portfolio
// @Produce json
// @Success 200 {object} dto.PortfolioSummaryResponse "Summary successfully computed"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /portfolio/summary [get]
// @Security BearerAuth
func (h *LoanHandler) PortfolioSummary(w http.ResponseWriter, r *http.Request) {
	total, err := h.service.TotalOutstanding(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}

	count, err := h.service.OverdueCount(r.Context(), timeNow())
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, dto.PortfolioSummaryResponse{
		TotalOutstanding: decimal.NewFromFloat(total).StringFixed(2),
		OverdueCount:     count,
	})
}
