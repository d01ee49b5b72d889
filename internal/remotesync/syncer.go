// Package remotesync writes a signed-in session's watchlist and holdings back
// to its profile document after edits quiesce.
package remotesync

import (
	"context"
	"errors"
	"log/slog"
	"maps"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/melihalgin1/CryptoVault/internal/models"
	"github.com/melihalgin1/CryptoVault/internal/schedule"
	"github.com/melihalgin1/CryptoVault/lib/errs"
)

// Writer updates an existing document and reports errs.ErrNotFound when it
// is gone; a late write must never recreate a deleted document.
type Writer interface {
	Update(ctx context.Context, profile *models.Profile, columns ...string) error
}

// Syncer is scoped to one session. Rapid edits collapse into a single update
// of the last scheduled values; last writer wins on the document.
type Syncer struct {
	writer    Writer
	debouncer *schedule.Debouncer
	timeout   time.Duration
	log       *slog.Logger
}

func New(writer Writer, delay, timeout time.Duration, log *slog.Logger) *Syncer {
	return &Syncer{
		writer:    writer,
		debouncer: schedule.NewDebouncer(delay),
		timeout:   timeout,
		log:       log,
	}
}

// Schedule copies watched and holdings and writes them once the delay passes
// without another call.
func (s *Syncer) Schedule(userID uuid.UUID, watched []string, holdings map[string]string) {
	profile := &models.Profile{
		ID:           userID,
		WatchedCoins: slices.Clone(watched),
		Holdings:     maps.Clone(holdings),
	}
	if profile.Holdings == nil {
		profile.Holdings = map[string]string{}
	}

	s.debouncer.Trigger(func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()

		err := s.writer.Update(ctx, profile, models.ColumnWatchedCoins, models.ColumnHoldings)
		if errors.Is(err, errs.ErrNotFound) {
			s.log.Warn("profile no longer exists, dropping save", "userID", userID)
			return
		}
		if err != nil {
			s.log.Error("failed to save watchlist", "userID", userID, "error", err)
			return
		}
		s.log.Debug("watchlist saved", "userID", userID, "coins", len(profile.WatchedCoins))
	})
}

// Cancel drops a pending write.
func (s *Syncer) Cancel() bool {
	return s.debouncer.Cancel()
}

func (s *Syncer) Pending() bool {
	return s.debouncer.Pending()
}
