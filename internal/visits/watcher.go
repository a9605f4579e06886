// Package visits tracks the user's visit history and watches pending
// purchases for server-driven status changes.
package visits

import (
	"context"
	"sync"
	"time"

	"github.com/g11-iic2173/frontend-iic2173-g11/internal/domain"
)

// DefaultInterval is the fixed re-fetch interval while purchases are pending.
const DefaultInterval = 5 * time.Second

// FetchFunc loads the current purchase list.
type FetchFunc func(ctx context.Context) ([]domain.Purchase, error)

// UpdateFunc receives every fetch outcome, successful or not.
type UpdateFunc func(purchases []domain.Purchase, err error)

// Watcher re-fetches the purchase list on a fixed interval while at least one
// entry is pending, and stops on its own within one interval of the last
// pending entry resolving. At most one polling loop is active at a time;
// starting an active watcher is a no-op. Stop tears the loop down
// deterministically, leaving no dangling timers.
type Watcher struct {
	fetch    FetchFunc
	onUpdate UpdateFunc
	interval time.Duration

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewWatcher creates a watcher. interval <= 0 selects DefaultInterval.
// onUpdate may be nil.
func NewWatcher(fetch FetchFunc, onUpdate UpdateFunc, interval time.Duration) *Watcher {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Watcher{
		fetch:    fetch,
		onUpdate: onUpdate,
		interval: interval,
	}
}

// Start performs an initial fetch and, when any entry is pending, launches
// the polling loop. Calling Start while a loop is active is a no-op; the
// initial fetch still runs so the caller gets fresh data.
func (w *Watcher) Start(ctx context.Context) ([]domain.Purchase, error) {
	purchases, err := w.fetch(ctx)
	w.deliver(purchases, err)
	if err != nil {
		return nil, err
	}
	if domain.HasPending(purchases) {
		w.startLoop(ctx)
	}
	return purchases, nil
}

// Refresh performs one immediate fetch outside the polling schedule, for
// foreground-focus style triggers. It does not start or reset any timer.
func (w *Watcher) Refresh(ctx context.Context) ([]domain.Purchase, error) {
	purchases, err := w.fetch(ctx)
	w.deliver(purchases, err)
	return purchases, err
}

// Stop cancels the polling loop and waits for it to exit. Safe to call
// multiple times and on a watcher that never started.
func (w *Watcher) Stop() {
	w.mu.Lock()
	cancel, done := w.cancel, w.done
	w.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Active reports whether a polling loop is currently running.
func (w *Watcher) Active() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.cancel != nil
}

func (w *Watcher) startLoop(ctx context.Context) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.cancel != nil {
		return
	}
	loopCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	w.cancel = cancel
	w.done = done
	go w.loop(loopCtx, done)
}

func (w *Watcher) loop(ctx context.Context, done chan struct{}) {
	defer func() {
		w.mu.Lock()
		w.cancel = nil
		w.done = nil
		w.mu.Unlock()
		close(done)
	}()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			purchases, err := w.fetch(ctx)
			w.deliver(purchases, err)
			if err != nil {
				// A failed fetch (including an expired session) does not
				// restart or extend the schedule; keep polling until the
				// list is known to have no pending entries.
				continue
			}
			if !domain.HasPending(purchases) {
				return
			}
		}
	}
}

func (w *Watcher) deliver(purchases []domain.Purchase, err error) {
	if w.onUpdate != nil {
		w.onUpdate(purchases, err)
	}
}
