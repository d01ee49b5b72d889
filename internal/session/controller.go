// Package session owns the server-side state of every open dashboard: the
// watchlist, holdings, live prices and the sign-in state machine.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/melihalgin1/CryptoVault/internal/coin"
	"github.com/melihalgin1/CryptoVault/internal/i18n"
	"github.com/melihalgin1/CryptoVault/internal/models"
	"github.com/melihalgin1/CryptoVault/internal/prices"
	"github.com/melihalgin1/CryptoVault/internal/remotesync"
	"github.com/melihalgin1/CryptoVault/internal/watchlist"
	"github.com/melihalgin1/CryptoVault/lib/errs"
	"github.com/shopspring/decimal"
)

type State string

const (
	StateGuest          State = "guest"
	StateLoadingAccount State = "loading_account"
	StateSignedIn       State = "signed_in"
	// StateLoadFailed keeps the identity but shows guest defaults; nothing
	// is written back until a reload succeeds.
	StateLoadFailed State = "load_failed"
)

type Identity struct {
	UserID      uuid.UUID
	Email       string
	DisplayName string
}

type ProfileStore interface {
	Get(ctx context.Context, userID uuid.UUID) (*models.Profile, error)
	Create(ctx context.Context, profile *models.Profile) error
	Update(ctx context.Context, profile *models.Profile, columns ...string) error
}

type Options struct {
	Fetcher      prices.Fetcher
	Profiles     ProfileStore
	Normalizer   *coin.Normalizer
	PollInterval time.Duration
	SyncDelay    time.Duration
	SyncTimeout  time.Duration
	Log          *slog.Logger
}

type Controller struct {
	id       string
	viewID   string
	log      *slog.Logger
	profiles ProfileStore
	norm     *coin.Normalizer
	store    *watchlist.Store
	poller   *prices.Poller
	syncer   *remotesync.Syncer

	mu          sync.Mutex
	state       State
	identity    *Identity
	loadErr     error
	loadGen     uint64
	currency    coin.Currency
	lang        i18n.Lang
	detail      string
	showAccount bool
	lastSeen    time.Time
	subs        map[int]func(models.DashboardView)
	nextSub     int

	cancel context.CancelFunc
}

func New(id string, opts Options) *Controller {
	norm := opts.Normalizer
	if norm == nil {
		norm = coin.Default
	}
	log := opts.Log.With(slog.String("session", id))

	c := &Controller{
		id:       id,
		viewID:   uuid.NewString(),
		log:      log,
		profiles: opts.Profiles,
		norm:     norm,
		store:    watchlist.New(norm),
		syncer:   remotesync.New(opts.Profiles, opts.SyncDelay, opts.SyncTimeout, log),
		state:    StateGuest,
		currency: coin.USD,
		lang:     i18n.Default,
		lastSeen: time.Now(),
		subs:     make(map[int]func(models.DashboardView)),
	}
	c.poller = prices.NewPoller(opts.Fetcher, opts.PollInterval, c.store.Watched, log)
	c.poller.OnUpdate(c.notify)

	return c
}

func (c *Controller) ID() string { return c.id }

// Start launches the price poller. It stops when ctx is done or on Close.
func (c *Controller) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)

	c.mu.Lock()
	c.cancel = cancel
	c.mu.Unlock()

	go c.poller.Run(ctx)
}

// Close stops polling and drops a pending remote write.
func (c *Controller) Close() {
	c.mu.Lock()
	cancel := c.cancel
	c.subs = make(map[int]func(models.DashboardView))
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	c.syncer.Cancel()
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.state
}

// UserID returns the identity attached to the session, if any.
func (c *Controller) UserID() (uuid.UUID, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.identity == nil {
		return uuid.Nil, false
	}
	return c.identity.UserID, true
}

// SignIn loads the account's document and switches the session to it. A
// missing document is created with the default watchlist; legacy coin ids
// are cleaned and written back at once. A sign-out or newer sign-in
// arriving during the load wins and the load result is discarded.
func (c *Controller) SignIn(ctx context.Context, ident Identity) error {
	c.mu.Lock()
	c.loadGen++
	gen := c.loadGen
	c.syncer.Cancel()
	c.state = StateLoadingAccount
	c.identity = &ident
	c.loadErr = nil
	c.mu.Unlock()
	c.notify()

	profile, err := c.loadProfile(ctx, ident.UserID)

	c.mu.Lock()
	if gen != c.loadGen {
		c.mu.Unlock()
		c.log.Debug("discarding stale account load", "userID", ident.UserID)
		return nil
	}
	if err != nil {
		c.state = StateLoadFailed
		c.loadErr = err
		c.store.Reset(nil, nil)
		c.mu.Unlock()

		c.log.Error("failed to load account, showing defaults", "userID", ident.UserID, "error", err)
		c.poller.Refresh()
		c.notify()
		return err
	}
	c.store.Reset(profile.WatchedCoins, profile.Holdings)
	c.state = StateSignedIn
	c.mu.Unlock()

	c.log.Info("account loaded", "userID", ident.UserID, "coins", len(profile.WatchedCoins))
	c.poller.Refresh()
	c.notify()
	return nil
}

// Reload loads the attached account again, e.g. after a failed load or after
// its data was cleared elsewhere.
func (c *Controller) Reload(ctx context.Context) error {
	c.mu.Lock()
	ident := c.identity
	c.mu.Unlock()

	if ident == nil {
		return errs.ErrSignInRequired
	}
	return c.SignIn(ctx, *ident)
}

// SignOut drops the identity, cancels the pending write and resets the
// watchlist and holdings to guest defaults.
func (c *Controller) SignOut() {
	c.mu.Lock()
	c.loadGen++
	c.syncer.Cancel()
	c.state = StateGuest
	c.identity = nil
	c.loadErr = nil
	c.detail = ""
	c.showAccount = false
	c.store.Reset(nil, nil)
	c.mu.Unlock()

	c.poller.Refresh()
	c.notify()
}

func (c *Controller) loadProfile(ctx context.Context, userID uuid.UUID) (*models.Profile, error) {
	const op = "session.loadProfile"

	profile, err := c.profiles.Get(ctx, userID)
	if errors.Is(err, errs.ErrNotFound) {
		profile = &models.Profile{
			ID:           userID,
			WatchedCoins: coin.DefaultWatchlist(),
			Holdings:     map[string]string{},
		}
		err = c.profiles.Create(ctx, profile)
		if errors.Is(err, errs.ErrAlreadyExists) {
			profile, err = c.profiles.Get(ctx, userID)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if cleaned, changed := c.norm.NormalizeList(profile.WatchedCoins); changed {
		profile.WatchedCoins = cleaned
		if profile.Holdings == nil {
			profile.Holdings = map[string]string{}
		}
		if err := c.profiles.Update(ctx, profile, models.ColumnWatchedCoins); err != nil {
			c.log.Warn("failed to write back cleaned watchlist", "userID", userID, "error", err)
		}
	}

	return profile, nil
}

// persist schedules the debounced write. Callers hold c.mu.
func (c *Controller) persist() {
	if c.state != StateSignedIn || c.identity == nil {
		return
	}
	c.syncer.Schedule(c.identity.UserID, c.store.Watched(), c.store.Holdings())
}

// AddCoin adds a user-typed coin and fetches prices at once. It returns the
// canonical id and whether the watchlist changed.
func (c *Controller) AddCoin(raw string) (string, bool) {
	c.mu.Lock()
	id, added := c.store.Add(raw)
	if added {
		c.persist()
	}
	c.mu.Unlock()

	if added {
		c.poller.Refresh()
		c.notify()
	}
	return id, added
}

// RemoveCoin drops the coin and its cached price. The holding is kept.
func (c *Controller) RemoveCoin(id string) bool {
	c.mu.Lock()
	removed := c.store.Remove(id)
	if removed {
		c.persist()
		if c.detail == id {
			c.detail = ""
		}
	}
	c.mu.Unlock()

	if !removed {
		return false
	}
	c.poller.Drop(id)
	c.poller.ClearError()
	c.poller.Refresh()
	c.notify()
	return true
}

func (c *Controller) SetHolding(id, raw string) {
	c.mu.Lock()
	c.store.SetHolding(id, raw)
	c.persist()
	c.mu.Unlock()

	c.notify()
}

func (c *Controller) SetCurrency(cur coin.Currency) {
	c.mu.Lock()
	c.currency = cur
	c.mu.Unlock()

	c.notify()
}

func (c *Controller) SetLanguage(lang i18n.Lang) {
	c.mu.Lock()
	c.lang = lang
	c.mu.Unlock()

	c.notify()
}

func (c *Controller) Language() i18n.Lang {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.lang
}

func (c *Controller) RetryPrices() {
	c.poller.Retry()
}

func (c *Controller) OpenDetail(id string) error {
	c.mu.Lock()
	if c.state != StateSignedIn {
		c.mu.Unlock()
		return errs.ErrSignInRequired
	}
	if !c.store.Contains(id) {
		c.mu.Unlock()
		return errs.ErrNotFound
	}
	c.detail = id
	c.showAccount = false
	c.mu.Unlock()

	c.notify()
	return nil
}

func (c *Controller) CloseDetail() {
	c.mu.Lock()
	c.detail = ""
	c.mu.Unlock()

	c.notify()
}

func (c *Controller) OpenAccount() error {
	c.mu.Lock()
	if c.identity == nil {
		c.mu.Unlock()
		return errs.ErrSignInRequired
	}
	c.showAccount = true
	c.detail = ""
	c.mu.Unlock()

	c.notify()
	return nil
}

func (c *Controller) CloseAccount() {
	c.mu.Lock()
	c.showAccount = false
	c.mu.Unlock()

	c.notify()
}

// Touch marks the session as used now.
func (c *Controller) Touch() {
	c.mu.Lock()
	c.lastSeen = time.Now()
	c.mu.Unlock()
}

// Idle reports whether nobody watches the session and it has not been used
// for ttl.
func (c *Controller) Idle(now time.Time, ttl time.Duration) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.subs) == 0 && now.Sub(c.lastSeen) > ttl
}

// Subscribe calls fn with a fresh view after every change until the returned
// function is called.
func (c *Controller) Subscribe(fn func(models.DashboardView)) func() {
	c.mu.Lock()
	defer c.mu.Unlock()

	id := c.nextSub
	c.nextSub++
	c.subs[id] = fn

	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()

		delete(c.subs, id)
		c.lastSeen = time.Now()
	}
}

func (c *Controller) notify() {
	view := c.View()

	c.mu.Lock()
	subs := make([]func(models.DashboardView), 0, len(c.subs))
	for _, fn := range c.subs {
		subs = append(subs, fn)
	}
	c.mu.Unlock()

	for _, fn := range subs {
		fn(view)
	}
}

func (c *Controller) View() models.DashboardView {
	priceState := c.poller.State()

	c.mu.Lock()
	defer c.mu.Unlock()

	cur := c.currency
	view := models.DashboardView{
		ViewID:         c.viewID,
		State:          string(c.state),
		Guest:          c.identity == nil,
		Language:       string(c.lang),
		Currency:       cur.Code(),
		CurrencySymbol: cur.Symbol(),
		Loading:        priceState.Loading,
		ShowAccount:    c.showAccount,
		Cards:          []models.CoinCard{},
	}
	if c.identity != nil {
		view.User = &models.UserView{
			ID:          c.identity.UserID.String(),
			Email:       c.identity.Email,
			DisplayName: c.identity.DisplayName,
		}
	}
	if priceState.Err != nil {
		view.Error = i18n.Error(c.lang, priceState.Err)
	}
	if c.state == StateLoadFailed {
		view.LoadError = i18n.T(c.lang, i18n.LoadFailed)
	}

	total := decimal.Zero
	for _, id := range c.store.Watched() {
		card := c.card(id, priceState.Snapshot, cur)
		total = total.Add(card.Equity)
		view.Cards = append(view.Cards, card)
		if id == c.detail {
			detail := card
			view.Detail = &detail
		}
	}
	view.TotalEquity = total
	view.TotalEquityText = cur.FormatAmount(total)

	return view
}

func (c *Controller) card(id string, snap prices.Snapshot, cur coin.Currency) models.CoinCard {
	card := models.CoinCard{
		ID:      id,
		Holding: c.store.Holding(id),
	}

	quote, ok := snap[id]
	if !ok {
		return card
	}
	price, ok := quote.Price(cur)
	if !ok {
		return card
	}

	change := quote.Change(cur)
	card.HasData = true
	card.Price = price
	card.PriceText = cur.FormatPrice(price)
	card.Change24h = change
	card.ChangeText = coin.FormatChange(change)

	if qty := c.store.Quantity(id); qty.IsPositive() {
		card.Equity = qty.Mul(price)
		card.EquityText = cur.FormatAmount(card.Equity)
	}
	return card
}
