package handler

import (
	"fmt"
	"log/slog"
	"net/http"

	"microloan-engine/internal/api/handler/dto"
	"microloan-engine/internal/domain/borrower"
	"microloan-engine/internal/pkg/apperrors"
)

type BorrowerHandler struct {
	service borrower.BorrowerService
	logger  *slog.Logger
}

func NewBorrowerHandler(s borrower.BorrowerService, l *slog.Logger) *BorrowerHandler {
	return &BorrowerHandler{
		service: s,
		logger:  l.With("component", "BorrowerHandler"),
	}
}

// CreateBorrower registers a new borrower.
//
// @Summary Create a new borrower
// @Tags Borrowers
// @Accept json
// @Produce json
// @Param request body dto.CreateBorrowerRequest true "Borrower creation request payload"
// @Success 201 {object} dto.BorrowerResponse "Borrower successfully created"
// @Failure 400 {object} dto.ErrorResponse "Invalid request payload"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /borrowers [post]
// @Security BearerAuth
func (h *BorrowerHandler) CreateBorrower(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateBorrowerRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, fmt.Errorf("%w: %v", apperrors.ErrInvalidArgument, err))
		return
	}
	if err := req.Validate(); err != nil {
		respondError(w, fmt.Errorf("%w: %v", apperrors.ErrValidation, err))
		return
	}

	b, err := h.service.CreateNewBorrower(r.Context(), req.Name, req.Email, req.Phone, req.Address, req.Income)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, dto.NewBorrowerResponse(b))
}

// GetBorrower retrieves a borrower by ID.
//
// @Summary Retrieve borrower details
// @Tags Borrowers
// @Produce json
// @Param borrowerID path int true "Borrower ID"
// @Success 200 {object} dto.BorrowerResponse "Borrower details"
// @Failure 404 {object} dto.ErrorResponse "Borrower not found"
// @Router /borrowers/{borrowerID} [get]
// @Security BearerAuth
func (h *BorrowerHandler) GetBorrower(w http.ResponseWriter, r *http.Request) {
	borrowerID, err := getIDFromURL(r, "borrowerID")
	if err != nil {
		respondError(w, fmt.Errorf("%w: %v", apperrors.ErrInvalidArgument, err))
		return
	}

	b, err := h.service.GetBorrower(r.Context(), borrowerID)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, dto.NewBorrowerResponse(b))
}

// ListBorrowers lists borrowers, optionally filtered by a name search.
//
// @Summary List borrowers
// @Tags Borrowers
// @Produce json
// @Param name query string false "Filter by partial name match"
// @Success 200 {array} dto.BorrowerResponse "Borrowers"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /borrowers [get]
// @Security BearerAuth
func (h *BorrowerHandler) ListBorrowers(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")

	var (
		borrowers []*borrower.Borrower
		err       error
	)
	if name != "" {
		borrowers, err = h.service.SearchBorrowers(r.Context(), name)
	} else {
		borrowers, err = h.service.ListBorrowers(r.Context())
	}
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, dto.NewBorrowerListResponse(borrowers))
}

// UpdateBorrower updates a borrower's contact details and income.
//
// @Summary Update borrower
// @Tags Borrowers
// @Accept json
// @Produce json
// @Param borrowerID path int true "Borrower ID"
// @Param request body dto.UpdateBorrowerRequest true "Borrower update request payload"
// @Success 204 "Borrower updated"
// @Failure 400 {object} dto.ErrorResponse "Invalid request payload"
// @Failure 404 {object} dto.ErrorResponse "Borrower not found"
// @Router /borrowers/{borrowerID} [put]
// @Security BearerAuth
func (h *BorrowerHandler) UpdateBorrower(w http.ResponseWriter, r *http.Request) {
	borrowerID, err := getIDFromURL(r, "borrowerID")
	if err != nil {
		respondError(w, fmt.Errorf("%w: %v", apperrors.ErrInvalidArgument, err))
		return
	}

	var req dto.UpdateBorrowerRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, fmt.Errorf("%w: %v", apperrors.ErrInvalidArgument, err))
		return
	}
	if err := req.Validate(); err != nil {
		respondError(w, fmt.Errorf("%w: %v", apperrors.ErrValidation, err))
		return
	}

	if err := h.service.UpdateBorrower(r.Context(), borrowerID, req.Email, req.Phone, req.Address, req.Income); err != nil {
		respondError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// DeleteBorrower removes a borrower.
//
// @Summary Delete borrower
// @Tags Borrowers
// @Param borrowerID path int true "Borrower ID"
// @Success 204 "Borrower deleted"
// @Failure 404 {object} dto.ErrorResponse "Borrower not found"
// @Router /borrowers/{borrowerID} [delete]
// @Security BearerAuth
func (h *BorrowerHandler) DeleteBorrower(w http.ResponseWriter, r *http.Request) {
	borrowerID, err := getIDFromURL(r, "borrowerID")
	if err != nil {
		respondError(w, fmt.Errorf("%w: %v", apperrors.ErrInvalidArgument, err))
		return
	}

	if err := h.service.DeleteBorrower(r.Context(), borrowerID); err != nil {
		respondError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
