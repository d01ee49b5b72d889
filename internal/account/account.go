// Package account implements the destructive account-management actions.
package account

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/melihalgin1/CryptoVault/internal/coin"
	"github.com/melihalgin1/CryptoVault/internal/models"
	"github.com/melihalgin1/CryptoVault/lib/errs"
)

type Documents interface {
	Delete(ctx context.Context, userID uuid.UUID) error
	Merge(ctx context.Context, profile *models.Profile, columns ...string) error
}

type Identities interface {
	DeleteUser(ctx context.Context, userID uuid.UUID) error
	NotifyDataCleared(ctx context.Context, userID uuid.UUID)
}

// Reauth asks the user to prove their identity again. It returns
// errs.ErrReauthCancelled when the user declines.
type Reauth func(ctx context.Context) error

type Manager struct {
	docs       Documents
	identities Identities
	log        *slog.Logger

	mu   sync.Mutex
	busy map[uuid.UUID]struct{}
}

func NewManager(docs Documents, identities Identities, log *slog.Logger) *Manager {
	return &Manager{
		docs:       docs,
		identities: identities,
		log:        log,
		busy:       make(map[uuid.UUID]struct{}),
	}
}

// ClearData removes the user's watchlist and holdings but keeps the account.
// Every open session of the user reloads afterwards.
func (m *Manager) ClearData(ctx context.Context, userID uuid.UUID) error {
	const op = "account.ClearData"

	release, err := m.acquire(userID)
	if err != nil {
		return err
	}
	defer release()

	if err := m.removeDocument(ctx, userID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	m.log.Info("account data cleared", "userID", userID)
	m.identities.NotifyDataCleared(ctx, userID)
	return nil
}

// DeleteAccount removes the document on a best-effort basis, then the
// identity. A stale login triggers reauth once and the identity delete is
// retried once.
func (m *Manager) DeleteAccount(ctx context.Context, userID uuid.UUID, reauth Reauth) error {
	const op = "account.DeleteAccount"

	release, err := m.acquire(userID)
	if err != nil {
		return err
	}
	defer release()

	if err := m.removeDocument(ctx, userID); err != nil {
		m.log.Warn("failed to remove account document, deleting identity anyway", "userID", userID, "error", err)
	}

	err = m.identities.DeleteUser(ctx, userID)
	if errors.Is(err, errs.ErrRequiresRecentLogin) {
		if reauth == nil {
			return errs.ErrReauthCancelled
		}
		if err := reauth(ctx); err != nil {
			if errors.Is(err, errs.ErrReauthCancelled) {
				return err
			}
			return fmt.Errorf("%s: reauthenticate: %w", op, err)
		}
		err = m.identities.DeleteUser(ctx, userID)
	}
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	m.log.Info("account deleted", "userID", userID)
	return nil
}

// removeDocument deletes the profile document. When the backend refuses the
// delete, the document is scrubbed to defaults instead.
func (m *Manager) removeDocument(ctx context.Context, userID uuid.UUID) error {
	err := m.docs.Delete(ctx, userID)
	switch {
	case err == nil, errors.Is(err, errs.ErrNotFound):
		return nil
	case errors.Is(err, errs.ErrPermissionDenied):
		m.log.Warn("document delete denied, scrubbing instead", "userID", userID)
		return m.docs.Merge(ctx, &models.Profile{
			ID:           userID,
			WatchedCoins: coin.DefaultWatchlist(),
			Holdings:     map[string]string{},
		}, models.ColumnWatchedCoins, models.ColumnHoldings)
	default:
		return err
	}
}

func (m *Manager) acquire(userID uuid.UUID) (func(), error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.busy[userID]; ok {
		return nil, errs.ErrBusy
	}
	m.busy[userID] = struct{}{}

	return func() {
		m.mu.Lock()
		delete(m.busy, userID)
		m.mu.Unlock()
	}, nil
}
