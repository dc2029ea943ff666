package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"microloan-engine/internal/api/handler/dto"
	"microloan-engine/internal/domain/loan"
	"microloan-engine/internal/pkg/apperrors"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type MockLoanService struct {
	mock.Mock
}

func (m *MockLoanService) IssueLoan(ctx context.Context, borrowerID int64, borrowerName string, principal loan.Money, annualInterestRate loan.Money, termMonths int) (*loan.Loan, error) {
	args := m.Called(ctx, borrowerID, borrowerName, principal, annualInterestRate, termMonths)
	if issued, ok := args.Get(0).(*loan.Loan); ok {
		return issued, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockLoanService) RecordPayment(ctx context.Context, loanID int64, amount loan.Money) error {
	args := m.Called(ctx, loanID, amount)
	return args.Error(0)
}

func (m *MockLoanService) GetLoan(ctx context.Context, loanID int64) (*loan.Loan, error) {
	args := m.Called(ctx, loanID)
	if l, ok := args.Get(0).(*loan.Loan); ok {
		return l, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockLoanService) ListLoans(ctx context.Context) ([]*loan.Loan, error) {
	args := m.Called(ctx)
	if loans, ok := args.Get(0).([]*loan.Loan); ok {
		return loans, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockLoanService) ListOverdueLoans(ctx context.Context, today time.Time) ([]*loan.Loan, error) {
	args := m.Called(ctx, today)
	if loans, ok := args.Get(0).([]*loan.Loan); ok {
		return loans, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockLoanService) OverdueCount(ctx context.Context, today time.Time) (int, error) {
	args := m.Called(ctx, today)
	return args.Int(0), args.Error(1)
}

func (m *MockLoanService) TotalOutstanding(ctx context.Context) (loan.Money, error) {
	args := m.Called(ctx)
	if total, ok := args.Get(0).(loan.Money); ok {
		return total, args.Error(1)
	}
	return 0, args.Error(1)
}

func (m *MockLoanService) QuoteLoan(principal loan.Money, annualInterestRate loan.Money, termMonths int) (*loan.Quote, error) {
	args := m.Called(principal, annualInterestRate, termMonths)
	if quote, ok := args.Get(0).(*loan.Quote); ok {
		return quote, args.Error(1)
	}
	return nil, args.Error(1)
}

func withURLParam(req *http.Request, key, value string) *http.Request {
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, &chi.Context{
		URLParams: chi.RouteParams{Keys: []string{key}, Values: []string{value}},
	}))
}

func TestLoanHandlerIssueLoan(t *testing.T) {
	t.Run("successfully issues loan", func(t *testing.T) {
		mockService := new(MockLoanService)
		handler := NewLoanHandler(mockService, testLogger())

		issued := &loan.Loan{ID: 42, BorrowerID: 1, PrincipalAmount: 5000, OutstandingBalance: 5000, Status: loan.StatusActive}
		mockService.On("IssueLoan", mock.Anything, int64(1), "Siti", loan.Money(5000), loan.Money(5), 12).Return(issued, nil)

		body := `{"borrowerId":1,"borrowerName":"Siti","principal":5000,"annualInterestRate":5,"termMonths":12}`
		req := httptest.NewRequest(http.MethodPost, "/loans", strings.NewReader(body))
		rec := httptest.NewRecorder()

		handler.IssueLoan(rec, req)

		assert.Equal(t, http.StatusCreated, rec.Code)
		var resp dto.LoanResponse
		assert.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		assert.Equal(t, "42", resp.ID)
		assert.Equal(t, "5000.00", resp.OutstandingBalance)
		mockService.AssertExpectations(t)
	})

	t.Run("rejects invalid loan amount", func(t *testing.T) {
		mockService := new(MockLoanService)
		handler := NewLoanHandler(mockService, testLogger())

		mockService.On("IssueLoan", mock.Anything, int64(1), "Siti", loan.Money(200000), loan.Money(5), 12).
			Return(nil, apperrors.ErrInvalidLoanAmount)

		body := `{"borrowerId":1,"borrowerName":"Siti","principal":200000,"annualInterestRate":5,"termMonths":12}`
		req := httptest.NewRequest(http.MethodPost, "/loans", strings.NewReader(body))
		rec := httptest.NewRecorder()

		handler.IssueLoan(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("rejects unknown borrower", func(t *testing.T) {
		mockService := new(MockLoanService)
		handler := NewLoanHandler(mockService, testLogger())

		mockService.On("IssueLoan", mock.Anything, int64(99), "Nobody", loan.Money(5000), loan.Money(5), 12).
			Return(nil, apperrors.ErrBorrowerNotFound)

		body := `{"borrowerId":99,"borrowerName":"Nobody","principal":5000,"annualInterestRate":5,"termMonths":12}`
		req := httptest.NewRequest(http.MethodPost, "/loans", strings.NewReader(body))
		rec := httptest.NewRecorder()

		handler.IssueLoan(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("rejects malformed JSON", func(t *testing.T) {
		handler := NewLoanHandler(new(MockLoanService), testLogger())

		req := httptest.NewRequest(http.MethodPost, "/loans", bytes.NewReader([]byte(`{`)))
		rec := httptest.NewRecorder()

		handler.IssueLoan(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestLoanHandlerGetLoan(t *testing.T) {
	t.Run("successfully retrieves loan details", func(t *testing.T) {
		mockService := new(MockLoanService)
		handler := NewLoanHandler(mockService, testLogger())

		mockService.On("GetLoan", mock.Anything, int64(123)).Return(&loan.Loan{ID: 123, Status: loan.StatusActive}, nil)

		req := withURLParam(httptest.NewRequest(http.MethodGet, "/loans/123", nil), "loanID", "123")
		rec := httptest.NewRecorder()

		handler.GetLoan(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		var resp dto.LoanResponse
		assert.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		assert.Equal(t, "123", resp.ID)
		mockService.AssertExpectations(t)
	})

	t.Run("returns error for invalid loan ID", func(t *testing.T) {
		handler := NewLoanHandler(new(MockLoanService), testLogger())

		req := withURLParam(httptest.NewRequest(http.MethodGet, "/loans/invalid", nil), "loanID", "invalid")
		rec := httptest.NewRecorder()

		handler.GetLoan(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		var resp dto.ErrorResponse
		assert.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		assert.Contains(t, resp.Error.Message, "invalid syntax")
	})

	t.Run("returns 404 when loan not found", func(t *testing.T) {
		mockService := new(MockLoanService)
		handler := NewLoanHandler(mockService, testLogger())

		mockService.On("GetLoan", mock.Anything, int64(2)).Return(nil, apperrors.ErrNotFound)

		req := withURLParam(httptest.NewRequest(http.MethodGet, "/loans/2", nil), "loanID", "2")
		rec := httptest.NewRecorder()

		handler.GetLoan(rec, req)

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestLoanHandlerListLoans(t *testing.T) {
	t.Run("lists all loans", func(t *testing.T) {
		mockService := new(MockLoanService)
		handler := NewLoanHandler(mockService, testLogger())

		loans := []*loan.Loan{{ID: 2}, {ID: 1}}
		mockService.On("ListLoans", mock.Anything).Return(loans, nil)

		req := httptest.NewRequest(http.MethodGet, "/loans", nil)
		rec := httptest.NewRecorder()

		handler.ListLoans(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		var resp []dto.LoanResponse
		assert.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		assert.Len(t, resp, 2)
		mockService.AssertExpectations(t)
	})

	t.Run("filters overdue loans", func(t *testing.T) {
		mockService := new(MockLoanService)
		handler := NewLoanHandler(mockService, testLogger())

		fixedNow := time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC)
		originalNow := timeNow
		timeNow = func() time.Time { return fixedNow }
		defer func() { timeNow = originalNow }()

		overdue := []*loan.Loan{{ID: 1, Status: loan.StatusOverdue}}
		mockService.On("ListOverdueLoans", mock.Anything, fixedNow).Return(overdue, nil)

		req := httptest.NewRequest(http.MethodGet, "/loans?status=overdue", nil)
		rec := httptest.NewRecorder()

		handler.ListLoans(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		var resp []dto.LoanResponse
		assert.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		assert.Len(t, resp, 1)
		assert.Equal(t, "OVERDUE", resp[0].Status)
		mockService.AssertExpectations(t)
	})
}

func TestLoanHandlerRecordPayment(t *testing.T) {
	t.Run("successfully records payment", func(t *testing.T) {
		mockService := new(MockLoanService)
		handler := NewLoanHandler(mockService, testLogger())

		mockService.On("RecordPayment", mock.Anything, int64(1), 428.04).Return(nil)

		body := `{"amount":"428.04"}`
		req := withURLParam(httptest.NewRequest(http.MethodPost, "/loans/1/payments", strings.NewReader(body)), "loanID", "1")
		rec := httptest.NewRecorder()

		handler.RecordPayment(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		var resp dto.PaymentResponse
		assert.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		assert.True(t, resp.Success)
		assert.Equal(t, "428.04", resp.Amount)
		mockService.AssertExpectations(t)
	})

	t.Run("rejects unparseable amount", func(t *testing.T) {
		mockService := new(MockLoanService)
		handler := NewLoanHandler(mockService, testLogger())

		body := `{"amount":"lots"}`
		req := withURLParam(httptest.NewRequest(http.MethodPost, "/loans/1/payments", strings.NewReader(body)), "loanID", "1")
		rec := httptest.NewRecorder()

		handler.RecordPayment(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		mockService.AssertNotCalled(t, "RecordPayment", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("rejects overpayment", func(t *testing.T) {
		mockService := new(MockLoanService)
		handler := NewLoanHandler(mockService, testLogger())

		mockService.On("RecordPayment", mock.Anything, int64(1), 1000.0).Return(apperrors.ErrInvalidPayment)

		body := `{"amount":"1000"}`
		req := withURLParam(httptest.NewRequest(http.MethodPost, "/loans/1/payments", strings.NewReader(body)), "loanID", "1")
		rec := httptest.NewRecorder()

		handler.RecordPayment(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("returns 404 for unknown loan", func(t *testing.T) {
		mockService := new(MockLoanService)
		handler := NewLoanHandler(mockService, testLogger())

		mockService.On("RecordPayment", mock.Anything, int64(77), 10.0).Return(apperrors.ErrNotFound)

		body := `{"amount":"10"}`
		req := withURLParam(httptest.NewRequest(http.MethodPost, "/loans/77/payments", strings.NewReader(body)), "loanID", "77")
		rec := httptest.NewRecorder()

		handler.RecordPayment(rec, req)

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestLoanHandlerQuoteLoan(t *testing.T) {
	t.Run("returns quote", func(t *testing.T) {
		mockService := new(MockLoanService)
		handler := NewLoanHandler(mockService, testLogger())

		quote := &loan.Quote{Installment: 428.0379, TotalInterest: 136.4548, TotalPayable: 5136.4548}
		mockService.On("QuoteLoan", loan.Money(5000), loan.Money(5), 12).Return(quote, nil)

		body := `{"principal":5000,"annualInterestRate":5,"termMonths":12}`
		req := httptest.NewRequest(http.MethodPost, "/loans/quote", strings.NewReader(body))
		rec := httptest.NewRecorder()

		handler.QuoteLoan(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		var resp dto.QuoteResponse
		assert.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		assert.Equal(t, "428.04", resp.Installment)
		mockService.AssertExpectations(t)
	})

	t.Run("rejects invalid parameters before calling service", func(t *testing.T) {
		mockService := new(MockLoanService)
		handler := NewLoanHandler(mockService, testLogger())

		body := `{"principal":0,"annualInterestRate":5,"termMonths":12}`
		req := httptest.NewRequest(http.MethodPost, "/loans/quote", strings.NewReader(body))
		rec := httptest.NewRecorder()

		handler.QuoteLoan(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		mockService.AssertNotCalled(t, "QuoteLoan", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestLoanHandlerPortfolioSummary(t *testing.T) {
	mockService := new(MockLoanService)
	handler := NewLoanHandler(mockService, testLogger())

	fixedNow := time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC)
	originalNow := timeNow
	timeNow = func() time.Time { return fixedNow }
	defer func() { timeNow = originalNow }()

	mockService.On("TotalOutstanding", mock.Anything).Return(loan.Money(12345.678), nil)
	mockService.On("OverdueCount", mock.Anything, fixedNow).Return(3, nil)

	req := httptest.NewRequest(http.MethodGet, "/portfolio/summary", nil)
	rec := httptest.NewRecorder()

	handler.PortfolioSummary(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	var resp dto.PortfolioSummaryResponse
	assert.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "12345.68", resp.TotalOutstanding)
	assert.Equal(t, 3, resp.OverdueCount)
	mockService.AssertExpectations(t)
}
