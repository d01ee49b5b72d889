package repository_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/melihalgin1/CryptoVault/internal/models"
	"github.com/melihalgin1/CryptoVault/internal/repository"
	"github.com/melihalgin1/CryptoVault/lib/errs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to connect database: %v", err)
	}

	if err := db.AutoMigrate(&models.User{}, &models.Profile{}, &models.RefreshSession{}); err != nil {
		t.Fatalf("failed to migrate database: %v", err)
	}

	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	return db
}

func TestProfiles(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewProfilesRepository(setupTestDB(t))

	t.Run("missing_profile", func(t *testing.T) {
		_, err := repo.Get(ctx, uuid.New())
		assert.ErrorIs(t, err, errs.ErrNotFound)
	})

	t.Run("create_and_get", func(t *testing.T) {
		id := uuid.New()
		require.NoError(t, repo.Create(ctx, &models.Profile{
			ID:           id,
			WatchedCoins: []string{"bitcoin", "ethereum"},
			Holdings:     map[string]string{"bitcoin": "0.5"},
		}))

		got, err := repo.Get(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, []string{"bitcoin", "ethereum"}, got.WatchedCoins)
		assert.Equal(t, "0.5", got.Holdings["bitcoin"])

		err = repo.Create(ctx, &models.Profile{ID: id, WatchedCoins: []string{}, Holdings: map[string]string{}})
		assert.ErrorIs(t, err, errs.ErrAlreadyExists)
	})

	t.Run("merge_only_touches_named_columns", func(t *testing.T) {
		id := uuid.New()
		require.NoError(t, repo.Create(ctx, &models.Profile{
			ID:           id,
			WatchedCoins: []string{"bitcoin"},
			Holdings:     map[string]string{"bitcoin": "2"},
		}))

		require.NoError(t, repo.Merge(ctx, &models.Profile{
			ID:           id,
			WatchedCoins: []string{"dogecoin"},
			Holdings:     map[string]string{},
		}, models.ColumnWatchedCoins))

		got, err := repo.Get(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, []string{"dogecoin"}, got.WatchedCoins)
		assert.Equal(t, map[string]string{"bitcoin": "2"}, got.Holdings)
	})

	t.Run("merge_creates_missing_profile", func(t *testing.T) {
		id := uuid.New()
		require.NoError(t, repo.Merge(ctx, &models.Profile{
			ID:           id,
			WatchedCoins: []string{"solana"},
			Holdings:     map[string]string{"solana": "10"},
		}))

		got, err := repo.Get(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, []string{"solana"}, got.WatchedCoins)
	})

	t.Run("update_only_touches_named_columns", func(t *testing.T) {
		id := uuid.New()
		require.NoError(t, repo.Create(ctx, &models.Profile{
			ID:           id,
			WatchedCoins: []string{"bitcoin"},
			Holdings:     map[string]string{"bitcoin": "2"},
		}))

		require.NoError(t, repo.Update(ctx, &models.Profile{
			ID:           id,
			WatchedCoins: []string{"bitcoin", "pepe"},
			Holdings:     map[string]string{},
		}, models.ColumnWatchedCoins))

		got, err := repo.Get(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, []string{"bitcoin", "pepe"}, got.WatchedCoins)
		assert.Equal(t, map[string]string{"bitcoin": "2"}, got.Holdings)
	})

	t.Run("update_after_delete_does_not_recreate", func(t *testing.T) {
		id := uuid.New()
		require.NoError(t, repo.Create(ctx, &models.Profile{ID: id, WatchedCoins: []string{}, Holdings: map[string]string{}}))
		require.NoError(t, repo.Delete(ctx, id))

		err := repo.Update(ctx, &models.Profile{
			ID:           id,
			WatchedCoins: []string{"bitcoin"},
			Holdings:     map[string]string{"bitcoin": "12.5"},
		})
		assert.ErrorIs(t, err, errs.ErrNotFound)

		_, err = repo.Get(ctx, id)
		assert.ErrorIs(t, err, errs.ErrNotFound)
	})

	t.Run("delete", func(t *testing.T) {
		id := uuid.New()
		require.NoError(t, repo.Create(ctx, &models.Profile{ID: id, WatchedCoins: []string{}, Holdings: map[string]string{}}))
		require.NoError(t, repo.Delete(ctx, id))

		_, err := repo.Get(ctx, id)
		assert.ErrorIs(t, err, errs.ErrNotFound)
		assert.ErrorIs(t, repo.Delete(ctx, id), errs.ErrNotFound)
	})
}

func TestUsers(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewUsersRepository(setupTestDB(t))

	t.Run("success_create_user", func(t *testing.T) {
		user := &models.User{Email: "ada@example.com", DisplayName: "Ada", PasswordHash: "hash"}
		require.NoError(t, repo.CreateUser(ctx, user))
		require.NotEqual(t, uuid.Nil, user.ID)

		found, err := repo.GetUserByEmail(ctx, "ada@example.com")
		require.NoError(t, err)
		assert.Equal(t, user.ID, found.ID)
		assert.Equal(t, "Ada", found.DisplayName)
	})

	t.Run("duplicate_email", func(t *testing.T) {
		user := &models.User{Email: "dup@example.com", PasswordHash: "hash"}
		require.NoError(t, repo.CreateUser(ctx, user))

		err := repo.CreateUser(ctx, &models.User{Email: "dup@example.com", PasswordHash: "hash"})
		if !errors.Is(err, errs.ErrAlreadyExists) {
			t.Errorf("Expected ErrAlreadyExists, but got %v", err)
		}
	})

	t.Run("update_and_delete", func(t *testing.T) {
		user := &models.User{Email: "upd@example.com", PasswordHash: "hash"}
		require.NoError(t, repo.CreateUser(ctx, user))

		require.NoError(t, repo.UpdateUser(ctx, user.ID, map[string]any{"display_name": "Renamed"}))
		found, err := repo.GetUserByID(ctx, user.ID)
		require.NoError(t, err)
		assert.Equal(t, "Renamed", found.DisplayName)

		require.NoError(t, repo.DeleteUserByID(ctx, user.ID))
		_, err = repo.GetUserByID(ctx, user.ID)
		assert.ErrorIs(t, err, errs.ErrNotFound)
		assert.ErrorIs(t, repo.DeleteUserByID(ctx, user.ID), errs.ErrNotFound)
	})

	t.Run("reset_token_expiry", func(t *testing.T) {
		user := &models.User{Email: "reset@example.com", PasswordHash: "hash"}
		require.NoError(t, repo.CreateUser(ctx, user))

		require.NoError(t, repo.UpdateUser(ctx, user.ID, map[string]any{
			"reset_token_hash": "live",
			"reset_expires_at": time.Now().Add(time.Hour),
		}))
		found, err := repo.GetUserByResetToken(ctx, "live")
		require.NoError(t, err)
		assert.Equal(t, user.ID, found.ID)

		require.NoError(t, repo.UpdateUser(ctx, user.ID, map[string]any{
			"reset_expires_at": time.Now().Add(-time.Minute),
		}))
		_, err = repo.GetUserByResetToken(ctx, "live")
		assert.ErrorIs(t, err, errs.ErrNotFound)
	})
}

func TestTokens(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewTokenRepository(setupTestDB(t))
	userID := uuid.New()

	require.NoError(t, repo.StoreRefreshToken(ctx, &models.RefreshSession{
		UserID: userID, TokenHash: "fresh", ExpiresAt: time.Now().Add(time.Hour),
	}))
	require.NoError(t, repo.StoreRefreshToken(ctx, &models.RefreshSession{
		UserID: userID, TokenHash: "stale", ExpiresAt: time.Now().Add(-time.Hour),
	}))

	removed, err := repo.DeleteExpiredTokens(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, removed)

	session, err := repo.GetByRefreshTokenHash(ctx, "fresh")
	require.NoError(t, err)
	assert.Equal(t, userID, session.UserID)

	require.NoError(t, repo.DeleteAllUserSessions(ctx, userID))
	_, err = repo.GetByRefreshTokenHash(ctx, "fresh")
	assert.ErrorIs(t, err, errs.ErrNotFound)
	assert.ErrorIs(t, repo.DeleteByRefreshTokenHash(ctx, "fresh"), errs.ErrNotFound)
}

func TestPermissionDeniedIsMapped(t *testing.T) {
	db := setupTestDB(t)
	repo := repository.NewProfilesRepository(db)

	db.Callback().Delete().Before("gorm:delete").Register("deny", func(tx *gorm.DB) {
		tx.AddError(&pgconn.PgError{Code: "42501", Message: "permission denied for table profiles"})
	})

	err := repo.Delete(context.Background(), uuid.New())
	assert.ErrorIs(t, err, errs.ErrPermissionDenied)
}
