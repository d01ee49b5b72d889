package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/melihalgin1/CryptoVault/internal/models"
	"github.com/melihalgin1/CryptoVault/lib/errs"
	"gorm.io/gorm"
)

type TokenRepository interface {
	StoreRefreshToken(ctx context.Context, session *models.RefreshSession) error
	GetByRefreshTokenHash(ctx context.Context, tokenHash string) (*models.RefreshSession, error)
	DeleteByRefreshTokenHash(ctx context.Context, tokenHash string) error
	DeleteExpiredTokens(ctx context.Context) (int64, error)
	DeleteAllUserSessions(ctx context.Context, userID uuid.UUID) error
}

type tokenRepository struct {
	db *gorm.DB
}

func NewTokenRepository(db *gorm.DB) TokenRepository {
	return &tokenRepository{
		db: db,
	}
}

func (db *tokenRepository) StoreRefreshToken(ctx context.Context, session *models.RefreshSession) error {
	if err := db.db.WithContext(ctx).Create(session).Error; err != nil {
		return fmt.Errorf("%w: %s", errs.ErrInternal, err.Error())
	}

	return nil
}

func (db *tokenRepository) GetByRefreshTokenHash(ctx context.Context, tokenHash string) (*models.RefreshSession, error) {
	var session models.RefreshSession

	if err := db.db.WithContext(ctx).Where("token_hash = ?", tokenHash).First(&session).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.ErrNotFound
		}
		return nil, fmt.Errorf("%w: %s", errs.ErrInternal, err.Error())
	}

	return &session, nil
}

func (db *tokenRepository) DeleteByRefreshTokenHash(ctx context.Context, tokenHash string) error {
	result := db.db.WithContext(ctx).Where("token_hash = ?", tokenHash).Delete(&models.RefreshSession{})

	if err := result.Error; err != nil {
		return fmt.Errorf("%w: %s", errs.ErrInternal, err.Error())
	}

	if result.RowsAffected == 0 {
		return errs.ErrNotFound
	}

	return nil
}

func (db *tokenRepository) DeleteExpiredTokens(ctx context.Context) (int64, error) {
	result := db.db.WithContext(ctx).Where("expires_at < ?", time.Now()).Delete(&models.RefreshSession{})
	if result.Error != nil {
		return 0, fmt.Errorf("%w: %s", errs.ErrInternal, result.Error.Error())
	}
	return result.RowsAffected, nil
}

func (db *tokenRepository) DeleteAllUserSessions(ctx context.Context, userID uuid.UUID) error {
	result := db.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&models.RefreshSession{})
	if result.Error != nil {
		return fmt.Errorf("%w: %s", errs.ErrInternal, result.Error.Error())
	}
	return nil
}
