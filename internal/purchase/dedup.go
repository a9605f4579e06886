package purchase

import (
	"sync"

	"github.com/g11-iic2173/frontend-iic2173-g11/internal/domain"
)

// markerState tracks a commit attempt for one (token_ws, property_id) pair.
type markerState int

const (
	markerStarted markerState = iota + 1
	markerDone
)

type marker struct {
	state  markerState
	result *domain.CommitResult
}

// CommitGuard is the keyed deduplication map for gateway callbacks. The
// callback URL may be hit twice by browser/gateway quirks; the guard makes
// sure at most one commit call reaches the backend per pair, and replays the
// stored result for repeats.
//
// The backend exposes no idempotency for the commit endpoint, so this guard
// is load-bearing.
type CommitGuard struct {
	mu      sync.Mutex
	markers map[string]*marker
}

// NewCommitGuard creates an empty guard.
func NewCommitGuard() *CommitGuard {
	return &CommitGuard{markers: make(map[string]*marker)}
}

// begin atomically claims the key for a new commit attempt.
//
// Returns (nil, true) when the caller owns the attempt and must finish with
// succeed or fail. Returns (result, false) when a previous attempt already
// completed, and (nil, false) when one is still in flight.
func (g *CommitGuard) begin(key string) (*domain.CommitResult, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if m, ok := g.markers[key]; ok {
		if m.state == markerDone {
			return m.result, false
		}
		return nil, false
	}
	g.markers[key] = &marker{state: markerStarted}
	return nil, true
}

// succeed records the result permanently for the key.
func (g *CommitGuard) succeed(key string, result *domain.CommitResult) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.markers[key] = &marker{state: markerDone, result: result}
}

// fail clears the key so a legitimate retry can commit.
func (g *CommitGuard) fail(key string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.markers, key)
}

// Done reports whether the key already committed successfully.
func (g *CommitGuard) Done(key string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	m, ok := g.markers[key]
	return ok && m.state == markerDone
}
