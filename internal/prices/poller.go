package prices

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// State is a copy of what the poller currently shows.
type State struct {
	Snapshot Snapshot
	Err      error
	Loading  bool
}

// Poller keeps a snapshot for the ids returned by watched. It fetches on
// start, on every tick and right after Refresh. A failed fetch leaves the
// previous snapshot in place and suspends fetching until Retry; the ticker
// itself keeps running.
type Poller struct {
	fetcher  Fetcher
	interval time.Duration
	watched  func() []string
	log      *slog.Logger

	mu       sync.Mutex
	snapshot Snapshot
	err      error
	loading  bool
	gen      uint64
	onUpdate func()

	wake chan struct{}
}

func NewPoller(fetcher Fetcher, interval time.Duration, watched func() []string, log *slog.Logger) *Poller {
	return &Poller{
		fetcher:  fetcher,
		interval: interval,
		watched:  watched,
		log:      log,
		snapshot: Snapshot{},
		wake:     make(chan struct{}, 1),
	}
}

// OnUpdate registers fn to be called after every state change.
func (p *Poller) OnUpdate(fn func()) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.onUpdate = fn
}

// Run blocks until ctx is cancelled.
func (p *Poller) Run(ctx context.Context) {
	p.poll(ctx)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.poll(ctx)
		case <-p.wake:
			ticker.Reset(p.interval)
			p.poll(ctx)
		}
	}
}

// Refresh marks the watchlist as changed: responses to fetches started
// before this call are discarded, and a new fetch runs immediately.
func (p *Poller) Refresh() {
	p.mu.Lock()
	p.gen++
	p.mu.Unlock()

	p.trigger()
}

// Retry clears a sticky error and fetches immediately.
func (p *Poller) Retry() {
	p.mu.Lock()
	p.err = nil
	p.gen++
	p.mu.Unlock()

	p.notify()
	p.trigger()
}

// ClearError drops the error without forcing a fetch; the next tick resumes polling.
func (p *Poller) ClearError() {
	p.mu.Lock()
	cleared := p.err != nil
	p.err = nil
	p.mu.Unlock()

	if cleared {
		p.notify()
	}
}

// Drop removes id from the snapshot so a removed coin never shows a stale
// price. Fetches already in flight may still carry id and are discarded.
func (p *Poller) Drop(id string) {
	p.mu.Lock()
	p.gen++
	_, ok := p.snapshot[id]
	if ok {
		delete(p.snapshot, id)
	}
	p.mu.Unlock()

	if ok {
		p.notify()
	}
}

func (p *Poller) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()

	return State{
		Snapshot: p.snapshot.Clone(),
		Err:      p.err,
		Loading:  p.loading,
	}
}

func (p *Poller) trigger() {
	select {
	case p.wake <- struct{}{}:
	default:
	}
}

func (p *Poller) poll(ctx context.Context) {
	p.mu.Lock()
	gen := p.gen
	p.mu.Unlock()

	ids := p.watched()

	p.mu.Lock()
	if len(ids) == 0 {
		p.snapshot = Snapshot{}
		p.loading = false
		p.mu.Unlock()
		p.notify()
		return
	}
	if p.err != nil {
		p.loading = false
		p.mu.Unlock()
		return
	}
	startedLoading := len(p.snapshot) == 0 && !p.loading
	if len(p.snapshot) == 0 {
		p.loading = true
	}
	p.mu.Unlock()

	if startedLoading {
		p.notify()
	}

	snap, err := p.fetcher.Fetch(ctx, ids)
	if ctx.Err() != nil {
		return
	}

	p.mu.Lock()
	if gen != p.gen {
		p.mu.Unlock()
		p.log.Debug("discarding stale price response", "ids", len(ids))
		return
	}
	p.loading = false
	if err != nil {
		if p.err == nil {
			p.err = err
		}
		p.mu.Unlock()
		p.log.Warn("price fetch failed, polling suspended until retry", "error", err)
		p.notify()
		return
	}
	p.snapshot = snap
	p.err = nil
	p.mu.Unlock()

	p.notify()
}

func (p *Poller) notify() {
	p.mu.Lock()
	fn := p.onUpdate
	p.mu.Unlock()

	if fn != nil {
		fn()
	}
}
