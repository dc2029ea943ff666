package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"microloan-engine/internal/domain/borrower"
	"microloan-engine/internal/pkg/apperrors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type BorrowerRepository struct {
	db     DBPool
	logger *slog.Logger
}

var _ borrower.BorrowerRepository = (*BorrowerRepository)(nil)

func NewBorrowerRepository(db DBPool, logger *slog.Logger) *BorrowerRepository {
	if db == nil {
		panic("DBPool cannot be nil for BorrowerRepository")
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
		logger.Warn("Warning: No logger provided to NewBorrowerRepository, using default stderr handler")
	}
	return &BorrowerRepository{
		db:     db,
		logger: logger.With("component", "BorrowerRepository"),
	}
}

func (r *BorrowerRepository) Save(ctx context.Context, b *borrower.Borrower) error {
	if b == nil {
		return fmt.Errorf("%w: borrower cannot be nil", apperrors.ErrInvalidArgument)
	}

	if b.ID == 0 {
		return r.createBorrower(ctx, b)
	}
	return r.updateBorrower(ctx, b)
}

func (r *BorrowerRepository) createBorrower(ctx context.Context, b *borrower.Borrower) error {
	r.logger.InfoContext(ctx, "Attempting to insert new borrower", slog.String("name", b.Name))

	query := `
        INSERT INTO borrowers (name, email, phone, address, income, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
        RETURNING id, created_at, updated_at`

	err := r.db.QueryRow(ctx, query,
		b.Name,
		b.Email,
		b.Phone,
		b.Address,
		b.Income,
	).Scan(
		&b.ID,
		&b.CreatedAt,
		&b.UpdatedAt,
	)

	if err != nil {
		translatedErr := translateDBError(err, r.logger)
		if errors.Is(translatedErr, apperrors.ErrAlreadyExists) {
			r.logger.WarnContext(ctx, "Failed to insert borrower due to unique constraint violation", slog.Any("error", err))
			return translatedErr
		}
		r.logger.ErrorContext(ctx, "Failed to insert borrower", slog.Any("error", err))
		return fmt.Errorf("%w: failed to insert borrower: %w", apperrors.ErrDatabase, err)
	}

	r.logger.InfoContext(ctx, "Borrower inserted successfully", slog.Int64("borrowerID", b.ID))
	return nil
}

func (r *BorrowerRepository) updateBorrower(ctx context.Context, b *borrower.Borrower) error {
	r.logger.InfoContext(ctx, "Attempting to update borrower")

	query := `
        UPDATE borrowers
        SET name = $1,
            email = $2,
            phone = $3,
            address = $4,
            income = $5,
            updated_at = NOW()
        WHERE id = $6`

	cmdTag, err := r.db.Exec(ctx, query,
		b.Name,
		b.Email,
		b.Phone,
		b.Address,
		b.Income,
		b.ID,
	)

	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to update borrower", slog.Any("error", err))
		return fmt.Errorf("%w: failed to update borrower: %w", apperrors.ErrDatabase, err)
	}

	if cmdTag.RowsAffected() == 0 {
		r.logger.WarnContext(ctx, "Update affected zero rows, borrower likely not found")
		return apperrors.ErrNotFound
	}

	r.logger.InfoContext(ctx, "Borrower updated successfully")
	return nil
}

func (r *BorrowerRepository) FindByID(ctx context.Context, borrowerID int64) (*borrower.Borrower, error) {
	query := `
        SELECT id, name, email, phone, address, income, created_at, updated_at
        FROM borrowers
        WHERE id = $1`

	var b borrower.Borrower
	err := r.db.QueryRow(ctx, query, borrowerID).Scan(
		&b.ID,
		&b.Name,
		&b.Email,
		&b.Phone,
		&b.Address,
		&b.Income,
		&b.CreatedAt,
		&b.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.WarnContext(ctx, "Borrower not found", slog.Int64("borrowerID", borrowerID))
			return nil, apperrors.ErrNotFound
		}
		r.logger.ErrorContext(ctx, "Failed to query/scan borrower by ID", slog.Any("error", err))
		return nil, fmt.Errorf("%w: failed to get borrower by ID: %w", apperrors.ErrDatabase, err)
	}

	return &b, nil
}

func (r *BorrowerRepository) FindAll(ctx context.Context) ([]*borrower.Borrower, error) {
	query := `
        SELECT id, name, email, phone, address, income, created_at, updated_at
        FROM borrowers
        ORDER BY id DESC`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to query borrowers", slog.Any("error", err))
		return nil, fmt.Errorf("%w: failed to list borrowers: %w", apperrors.ErrDatabase, err)
	}
	defer rows.Close()

	return scanBorrowerRows(rows, r.logger)
}

func (r *BorrowerRepository) SearchByName(ctx context.Context, name string) ([]*borrower.Borrower, error) {
	query := `
        SELECT id, name, email, phone, address, income, created_at, updated_at
        FROM borrowers
        WHERE name ILIKE $1
        ORDER BY name`

	rows, err := r.db.Query(ctx, query, "%"+name+"%")
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to search borrowers by name", slog.Any("error", err))
		return nil, fmt.Errorf("%w: failed to search borrowers: %w", apperrors.ErrDatabase, err)
	}
	defer rows.Close()

	return scanBorrowerRows(rows, r.logger)
}

func (r *BorrowerRepository) Delete(ctx context.Context, borrowerID int64) error {
	query := `DELETE FROM borrowers WHERE id = $1`

	cmdTag, err := r.db.Exec(ctx, query, borrowerID)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to delete borrower", slog.Any("error", err))
		return fmt.Errorf("%w: failed to delete borrower: %w", apperrors.ErrDatabase, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}

	r.logger.InfoContext(ctx, "Borrower deleted", slog.Int64("borrowerID", borrowerID))
	return nil
}

func scanBorrowerRows(rows pgx.Rows, logger *slog.Logger) ([]*borrower.Borrower, error) {
	borrowers := make([]*borrower.Borrower, 0)
	for rows.Next() {
		var b borrower.Borrower
		err := rows.Scan(
			&b.ID,
			&b.Name,
			&b.Email,
			&b.Phone,
			&b.Address,
			&b.Income,
			&b.CreatedAt,
			&b.UpdatedAt,
		)
		if err != nil {
			logger.Error("Failed to scan borrower row", slog.Any("error", err))
			return nil, fmt.Errorf("%w: failed scanning borrower: %w", apperrors.ErrDatabase, err)
		}
		borrowers = append(borrowers, &b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	return borrowers, nil
}

func translateDBError(err error, contextLogger *slog.Logger) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return apperrors.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if pgErr.Code == "23505" {
			contextLogger.Warn("Database unique constraint violation", "detail", pgErr.Detail, "constraint", pgErr.ConstraintName)
			return fmt.Errorf("%w: %s", apperrors.ErrAlreadyExists, pgErr.ConstraintName)
		}

		contextLogger.Error("PostgreSQL specific error", "code", pgErr.Code, "message", pgErr.Message, "detail", pgErr.Detail)
		return fmt.Errorf("%w: db error code %s", apperrors.ErrDatabase, pgErr.Code)
	}

	contextLogger.Error("Generic database error", "error", err)
	return fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
}
