package dto

import (
	"fmt"
	"strings"

	"microloan-engine/internal/domain/borrower"
	"microloan-engine/internal/pkg/validate"
)

type CreateBorrowerRequest struct {
	Name    string  `json:"name"`
	Email   string  `json:"email"`
	Phone   string  `json:"phone"`
	Address string  `json:"address"`
	Income  float64 `json:"income"`
}

func (r *CreateBorrowerRequest) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return fmt.Errorf("name cannot be empty")
	}
	if !validate.PhoneNumber(r.Phone) {
		return fmt.Errorf("phone must contain 10 to 15 digits")
	}
	if !validate.Income(r.Income) {
		return fmt.Errorf("income must be greater than zero")
	}
	return nil
}

type UpdateBorrowerRequest struct {
	Email   string  `json:"email"`
	Phone   string  `json:"phone"`
	Address string  `json:"address"`
	Income  float64 `json:"income"`
}

func (r *UpdateBorrowerRequest) Validate() error {
	if !validate.PhoneNumber(r.Phone) {
		return fmt.Errorf("phone must contain 10 to 15 digits")
	}
	if !validate.Income(r.Income) {
		return fmt.Errorf("income must be greater than zero")
	}
	return nil
}

type BorrowerResponse struct {
	ID      int64   `json:"id"`
	Name    string  `json:"name"`
	Email   string  `json:"email"`
	Phone   string  `json:"phone"`
	Address string  `json:"address"`
	Income  float64 `json:"income"`
}

func NewBorrowerResponse(b *borrower.Borrower) BorrowerResponse {
	return BorrowerResponse{
		ID:      b.ID,
		Name:    b.Name,
		Email:   b.Email,
		Phone:   b.Phone,
		Address: b.Address,
		Income:  b.Income,
	}
}

func NewBorrowerListResponse(borrowers []*borrower.Borrower) []BorrowerResponse {
	resp := make([]BorrowerResponse, len(borrowers))
	for i, b := range borrowers {
		resp[i] = NewBorrowerResponse(b)
	}
	return resp
}
