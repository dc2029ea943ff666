package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"microloan-engine/internal/api/handler/dto"
	"microloan-engine/internal/domain/borrower"
	"microloan-engine/internal/pkg/apperrors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
}

type MockBorrowerService struct {
	mock.Mock
}

func (m *MockBorrowerService) CreateNewBorrower(ctx context.Context, name, email, phone, address string, income float64) (*borrower.Borrower, error) {
	args := m.Called(ctx, name, email, phone, address, income)
	if b, ok := args.Get(0).(*borrower.Borrower); ok {
		return b, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockBorrowerService) GetBorrower(ctx context.Context, borrowerID int64) (*borrower.Borrower, error) {
	args := m.Called(ctx, borrowerID)
	if b, ok := args.Get(0).(*borrower.Borrower); ok {
		return b, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockBorrowerService) ListBorrowers(ctx context.Context) ([]*borrower.Borrower, error) {
	args := m.Called(ctx)
	if borrowers, ok := args.Get(0).([]*borrower.Borrower); ok {
		return borrowers, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockBorrowerService) SearchBorrowers(ctx context.Context, name string) ([]*borrower.Borrower, error) {
	args := m.Called(ctx, name)
	if borrowers, ok := args.Get(0).([]*borrower.Borrower); ok {
		return borrowers, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockBorrowerService) UpdateBorrower(ctx context.Context, borrowerID int64, email, phone, address string, income float64) error {
	args := m.Called(ctx, borrowerID, email, phone, address, income)
	return args.Error(0)
}

func (m *MockBorrowerService) DeleteBorrower(ctx context.Context, borrowerID int64) error {
	args := m.Called(ctx, borrowerID)
	return args.Error(0)
}

func TestBorrowerHandlerCreateBorrower(t *testing.T) {
	t.Run("successfully creates borrower", func(t *testing.T) {
		mockService := new(MockBorrowerService)
		handler := NewBorrowerHandler(mockService, testLogger())

		created := &borrower.Borrower{ID: 1, Name: "Siti", Phone: "081234567890", Income: 2500000}
		mockService.On("CreateNewBorrower", mock.Anything, "Siti", "siti@example.com", "081234567890", "Jl. Merdeka 1", 2500000.0).
			Return(created, nil)

		body := `{"name":"Siti","email":"siti@example.com","phone":"081234567890","address":"Jl. Merdeka 1","income":2500000}`
		req := httptest.NewRequest(http.MethodPost, "/borrowers", strings.NewReader(body))
		rec := httptest.NewRecorder()

		handler.CreateBorrower(rec, req)

		assert.Equal(t, http.StatusCreated, rec.Code)
		var resp dto.BorrowerResponse
		assert.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		assert.Equal(t, int64(1), resp.ID)
		mockService.AssertExpectations(t)
	})

	t.Run("rejects invalid phone before calling service", func(t *testing.T) {
		mockService := new(MockBorrowerService)
		handler := NewBorrowerHandler(mockService, testLogger())

		body := `{"name":"Siti","phone":"123","income":2500000}`
		req := httptest.NewRequest(http.MethodPost, "/borrowers", strings.NewReader(body))
		rec := httptest.NewRecorder()

		handler.CreateBorrower(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		mockService.AssertNotCalled(t, "CreateNewBorrower",
			mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestBorrowerHandlerGetBorrower(t *testing.T) {
	t.Run("returns borrower", func(t *testing.T) {
		mockService := new(MockBorrowerService)
		handler := NewBorrowerHandler(mockService, testLogger())

		mockService.On("GetBorrower", mock.Anything, int64(1)).Return(&borrower.Borrower{ID: 1, Name: "Siti"}, nil)

		req := withURLParam(httptest.NewRequest(http.MethodGet, "/borrowers/1", nil), "borrowerID", "1")
		rec := httptest.NewRecorder()

		handler.GetBorrower(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("returns 404 when missing", func(t *testing.T) {
		mockService := new(MockBorrowerService)
		handler := NewBorrowerHandler(mockService, testLogger())

		mockService.On("GetBorrower", mock.Anything, int64(42)).Return(nil, apperrors.ErrNotFound)

		req := withURLParam(httptest.NewRequest(http.MethodGet, "/borrowers/42", nil), "borrowerID", "42")
		rec := httptest.NewRecorder()

		handler.GetBorrower(rec, req)

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestBorrowerHandlerListBorrowers(t *testing.T) {
	t.Run("lists all borrowers", func(t *testing.T) {
		mockService := new(MockBorrowerService)
		handler := NewBorrowerHandler(mockService, testLogger())

		mockService.On("ListBorrowers", mock.Anything).Return([]*borrower.Borrower{{ID: 2}, {ID: 1}}, nil)

		req := httptest.NewRequest(http.MethodGet, "/borrowers", nil)
		rec := httptest.NewRecorder()

		handler.ListBorrowers(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		var resp []dto.BorrowerResponse
		assert.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		assert.Len(t, resp, 2)
	})

	t.Run("searches by name", func(t *testing.T) {
		mockService := new(MockBorrowerService)
		handler := NewBorrowerHandler(mockService, testLogger())

		mockService.On("SearchBorrowers", mock.Anything, "siti").Return([]*borrower.Borrower{{ID: 1, Name: "Siti"}}, nil)

		req := httptest.NewRequest(http.MethodGet, "/borrowers?name=siti", nil)
		rec := httptest.NewRecorder()

		handler.ListBorrowers(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		mockService.AssertExpectations(t)
	})
}

func TestBorrowerHandlerUpdateBorrower(t *testing.T) {
	mockService := new(MockBorrowerService)
	handler := NewBorrowerHandler(mockService, testLogger())

	mockService.On("UpdateBorrower", mock.Anything, int64(1), "new@example.com", "089876543210", "New Address", 3000000.0).Return(nil)

	body := `{"email":"new@example.com","phone":"089876543210","address":"New Address","income":3000000}`
	req := withURLParam(httptest.NewRequest(http.MethodPut, "/borrowers/1", strings.NewReader(body)), "borrowerID", "1")
	rec := httptest.NewRecorder()

	handler.UpdateBorrower(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	mockService.AssertExpectations(t)
}

func TestBorrowerHandlerDeleteBorrower(t *testing.T) {
	mockService := new(MockBorrowerService)
	handler := NewBorrowerHandler(mockService, testLogger())

	mockService.On("DeleteBorrower", mock.Anything, int64(1)).Return(nil)

	req := withURLParam(httptest.NewRequest(http.MethodDelete, "/borrowers/1", nil), "borrowerID", "1")
	rec := httptest.NewRecorder()

	handler.DeleteBorrower(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	mockService.AssertExpectations(t)
}
