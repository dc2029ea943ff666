package borrower

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"microloan-engine/internal/event"
	"microloan-engine/internal/pkg/apperrors"
	"microloan-engine/internal/pkg/validate"
)

type BorrowerService interface {
	CreateNewBorrower(ctx context.Context, name, email, phone, address string, income float64) (*Borrower, error)
	GetBorrower(ctx context.Context, borrowerID int64) (*Borrower, error)
	ListBorrowers(ctx context.Context) ([]*Borrower, error)
	SearchBorrowers(ctx context.Context, name string) ([]*Borrower, error)
	UpdateBorrower(ctx context.Context, borrowerID int64, email, phone, address string, income float64) error
	DeleteBorrower(ctx context.Context, borrowerID int64) error
}

var _ BorrowerService = (*borrowerService)(nil)

type borrowerService struct {
	repo   BorrowerRepository
	pub    event.EventPublisher
	logger *slog.Logger
}

func NewBorrowerService(repo BorrowerRepository, eventPublisher event.EventPublisher, logger *slog.Logger) BorrowerService {
	if repo == nil {
		panic("borrower repository cannot be nil")
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
		logger.Warn("Warning: No logger provided to NewBorrowerService, using default stderr handler")
	}

	return &borrowerService{
		repo:   repo,
		pub:    eventPublisher,
		logger: logger.With(slog.String("component", "borrowerService")),
	}
}

func (s *borrowerService) CreateNewBorrower(ctx context.Context, name, email, phone, address string, income float64) (*Borrower, error) {
	s.logger.InfoContext(ctx, "Attempting to create new borrower")

	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperrors.NewValidationError("name", "borrower name cannot be empty")
	}
	if !validate.PhoneNumber(phone) {
		return nil, apperrors.NewValidationError("phone", "phone number must contain 10 to 15 digits")
	}
	if !validate.Income(income) {
		return nil, apperrors.NewValidationError("income", "income must be greater than zero")
	}

	b := NewBorrower(name, strings.TrimSpace(email), strings.TrimSpace(phone), strings.TrimSpace(address), income)
	if err := s.repo.Save(ctx, b); err != nil {
		s.logger.ErrorContext(ctx, "Repository failed to save new borrower", slog.Any("error", err))
		return nil, fmt.Errorf("failed to save new borrower: %w", err)
	}

	s.logger.InfoContext(ctx, "Successfully saved new borrower", slog.Int64("borrowerID", b.ID))
	s.publishBorrowerCreated(ctx, b)
	return b, nil
}

func (s *borrowerService) GetBorrower(ctx context.Context, borrowerID int64) (*Borrower, error) {
	if borrowerID <= 0 {
		return nil, fmt.Errorf("%w: borrower ID must be positive", apperrors.ErrInvalidArgument)
	}

	b, err := s.repo.FindByID(ctx, borrowerID)
	if err != nil {
		if errors.Is(err, ErrNotFound) || errors.Is(err, apperrors.ErrNotFound) {
			s.logger.WarnContext(ctx, "Borrower not found by repository", slog.Int64("borrowerID", borrowerID))
			return nil, fmt.Errorf("%w: borrower with ID %d not found", apperrors.ErrNotFound, borrowerID)
		}
		s.logger.ErrorContext(ctx, "Repository failed to find borrower", slog.Any("error", err))
		return nil, fmt.Errorf("failed to get borrower %d: %w", borrowerID, err)
	}
	return b, nil
}

func (s *borrowerService) ListBorrowers(ctx context.Context) ([]*Borrower, error) {
	borrowers, err := s.repo.FindAll(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "Repository failed to list borrowers", slog.Any("error", err))
		return nil, fmt.Errorf("failed to list borrowers: %w", err)
	}
	return borrowers, nil
}

func (s *borrowerService) SearchBorrowers(ctx context.Context, name string) ([]*Borrower, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return s.ListBorrowers(ctx)
	}

	borrowers, err := s.repo.SearchByName(ctx, name)
	if err != nil {
		s.logger.ErrorContext(ctx, "Repository failed to search borrowers", slog.Any("error", err))
		return nil, fmt.Errorf("failed to search borrowers: %w", err)
	}
	return borrowers, nil
}

func (s *borrowerService) UpdateBorrower(ctx context.Context, borrowerID int64, email, phone, address string, income float64) error {
	if !validate.PhoneNumber(phone) {
		return apperrors.NewValidationError("phone", "phone number must contain 10 to 15 digits")
	}
	if !validate.Income(income) {
		return apperrors.NewValidationError("income", "income must be greater than zero")
	}

	b, err := s.GetBorrower(ctx, borrowerID)
	if err != nil {
		return err
	}

	b.UpdateContact(strings.TrimSpace(email), strings.TrimSpace(phone), strings.TrimSpace(address))
	b.UpdateIncome(income)

	if err := s.repo.Save(ctx, b); err != nil {
		s.logger.ErrorContext(ctx, "Repository failed to update borrower", slog.Any("error", err))
		return fmt.Errorf("failed to update borrower %d: %w", borrowerID, err)
	}
	s.logger.InfoContext(ctx, "Borrower updated", slog.Int64("borrowerID", borrowerID))
	return nil
}

func (s *borrowerService) DeleteBorrower(ctx context.Context, borrowerID int64) error {
	if borrowerID <= 0 {
		return fmt.Errorf("%w: borrower ID must be positive", apperrors.ErrInvalidArgument)
	}

	if err := s.repo.Delete(ctx, borrowerID); err != nil {
		if errors.Is(err, ErrNotFound) || errors.Is(err, apperrors.ErrNotFound) {
			return fmt.Errorf("%w: borrower with ID %d not found", apperrors.ErrNotFound, borrowerID)
		}
		s.logger.ErrorContext(ctx, "Repository failed to delete borrower", slog.Any("error", err))
		return fmt.Errorf("failed to delete borrower %d: %w", borrowerID, err)
	}
	s.logger.InfoContext(ctx, "Borrower deleted", slog.Int64("borrowerID", borrowerID))
	return nil
}

func (s *borrowerService) publishBorrowerCreated(ctx context.Context, b *Borrower) {
	if s.pub == nil {
		return
	}
	evt := event.BorrowerCreatedEvent{
		Timestamp: b.CreatedAt,
		Payload: event.BorrowerEventPayload{
			BorrowerID: b.ID,
			Name:       b.Name,
			Email:      b.Email,
			Phone:      b.Phone,
			Address:    b.Address,
			Income:     b.Income,
		},
	}
	if err := s.pub.PublishBorrowerCreated(ctx, evt); err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish borrower created event", slog.Any("error", err))
	}
}
