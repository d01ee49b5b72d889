package repository

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/melihalgin1/CryptoVault/internal/models"
	"github.com/melihalgin1/CryptoVault/lib/errs"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const sqlStateInsufficientPrivilege = "42501"

type ProfilesRepository interface {
	Get(ctx context.Context, userID uuid.UUID) (*models.Profile, error)
	Create(ctx context.Context, profile *models.Profile) error
	Merge(ctx context.Context, profile *models.Profile, columns ...string) error
	Update(ctx context.Context, profile *models.Profile, columns ...string) error
	Delete(ctx context.Context, userID uuid.UUID) error
}

type profilesRepository struct {
	db *gorm.DB
}

func NewProfilesRepository(db *gorm.DB) ProfilesRepository {
	return &profilesRepository{db: db}
}

func (db *profilesRepository) Get(ctx context.Context, userID uuid.UUID) (*models.Profile, error) {
	const op = "repository.profiles.Get"

	var profile models.Profile
	if err := db.db.WithContext(ctx).First(&profile, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.ErrNotFound
		}
		return nil, fmt.Errorf("%s: %w", op, mapError(err))
	}

	return &profile, nil
}

func (db *profilesRepository) Create(ctx context.Context, profile *models.Profile) error {
	const op = "repository.profiles.Create"

	if err := db.db.WithContext(ctx).Create(profile).Error; err != nil {
		errorString := err.Error()
		if strings.Contains(errorString, "UNIQUE") || strings.Contains(errorString, "duplicate") {
			return errs.ErrAlreadyExists
		}
		return fmt.Errorf("%s: %w", op, mapError(err))
	}
	return nil
}

// Merge upserts profile, overwriting only the named columns of an existing
// row. With no columns every document field is written.
func (db *profilesRepository) Merge(ctx context.Context, profile *models.Profile, columns ...string) error {
	const op = "repository.profiles.Merge"

	if len(columns) == 0 {
		columns = []string{models.ColumnWatchedCoins, models.ColumnHoldings}
	}
	columns = append(slices.Clone(columns), "updated_at")

	err := db.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns(columns),
	}).Create(profile).Error
	if err != nil {
		return fmt.Errorf("%s: %w", op, mapError(err))
	}
	return nil
}

// Update writes the named columns of an existing profile. It never creates
// one and returns errs.ErrNotFound when the profile is gone.
func (db *profilesRepository) Update(ctx context.Context, profile *models.Profile, columns ...string) error {
	const op = "repository.profiles.Update"

	if len(columns) == 0 {
		columns = []string{models.ColumnWatchedCoins, models.ColumnHoldings}
	}
	columns = append(slices.Clone(columns), "updated_at")

	result := db.db.WithContext(ctx).Model(profile).Select(columns).Updates(profile)
	if result.Error != nil {
		return fmt.Errorf("%s: %w", op, mapError(result.Error))
	}

	if result.RowsAffected == 0 {
		return errs.ErrNotFound
	}

	return nil
}

func (db *profilesRepository) Delete(ctx context.Context, userID uuid.UUID) error {
	const op = "repository.profiles.Delete"

	result := db.db.WithContext(ctx).Delete(&models.Profile{}, "id = ?", userID)
	if result.Error != nil {
		return fmt.Errorf("%s: %w", op, mapError(result.Error))
	}

	if result.RowsAffected == 0 {
		return errs.ErrNotFound
	}

	return nil
}

// mapError turns backend refusals into errs.ErrPermissionDenied so callers
// can fall back to scrubbing the document instead.
func mapError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == sqlStateInsufficientPrivilege {
		return fmt.Errorf("%w: %s", errs.ErrPermissionDenied, pgErr.Message)
	}
	if strings.Contains(strings.ToLower(err.Error()), "permission") {
		return fmt.Errorf("%w: %v", errs.ErrPermissionDenied, err)
	}
	return err
}
