package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/melihalgin1/CryptoVault/internal/models"
	"github.com/melihalgin1/CryptoVault/lib/errs"
	"gorm.io/gorm"
)

type UsersRepository interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByID(ctx context.Context, userID uuid.UUID) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByResetToken(ctx context.Context, tokenHash string) (*models.User, error)
	UpdateUser(ctx context.Context, userID uuid.UUID, fields map[string]any) error
	DeleteUserByID(ctx context.Context, userID uuid.UUID) error
}

type usersRepository struct {
	db *gorm.DB
}

func NewUsersRepository(db *gorm.DB) UsersRepository {
	return &usersRepository{db: db}
}

func (db *usersRepository) CreateUser(ctx context.Context, user *models.User) error {
	if err := db.db.WithContext(ctx).Create(user).Error; err != nil {
		errorString := err.Error()
		if strings.Contains(errorString, "UNIQUE constraint failed") || strings.Contains(errorString, "duplicate key value violates unique constraint") {
			return errs.ErrAlreadyExists
		}

		return errs.ErrInternal
	}

	return nil
}

func (db *usersRepository) GetUserByID(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	var user models.User
	if err := db.db.WithContext(ctx).First(&user, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.ErrNotFound
		}

		return nil, err
	}
	return &user, nil
}

func (db *usersRepository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := db.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.ErrNotFound
		}

		return nil, err
	}
	return &user, nil
}

// GetUserByResetToken only matches tokens that have not expired.
func (db *usersRepository) GetUserByResetToken(ctx context.Context, tokenHash string) (*models.User, error) {
	var user models.User
	err := db.db.WithContext(ctx).
		Where("reset_token_hash = ? AND reset_expires_at > ?", tokenHash, time.Now()).
		First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.ErrNotFound
		}

		return nil, err
	}
	return &user, nil
}

func (db *usersRepository) UpdateUser(ctx context.Context, userID uuid.UUID, fields map[string]any) error {
	const op = "repository.users.UpdateUser"

	result := db.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", userID).Updates(fields)
	if result.Error != nil {
		return fmt.Errorf("%s: %w", op, result.Error)
	}

	if result.RowsAffected == 0 {
		return errs.ErrNotFound
	}

	return nil
}

func (db *usersRepository) DeleteUserByID(ctx context.Context, userID uuid.UUID) error {
	result := db.db.WithContext(ctx).Delete(&models.User{}, "id = ?", userID)

	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected == 0 {
		return errs.ErrNotFound
	}

	return nil
}
