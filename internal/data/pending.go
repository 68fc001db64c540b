package data

import (
	"sync"
	"time"

	"github.com/pinetree-ops/shiftlog/internal/biz/domain"
	"github.com/pinetree-ops/shiftlog/internal/biz/repo"
)

// pendingStatusRepo keeps pending-status markers in memory.
// Markers are short lived, so losing them on restart is acceptable.
type pendingStatusRepo struct {
	mu      sync.Mutex
	pending map[string]domain.PendingStatus
	now     func() time.Time
}

// NewPendingStatusRepo creates an in-memory pending-status store
func NewPendingStatusRepo() repo.PendingStatusRepo {
	return newPendingStatusRepo(time.Now)
}

func newPendingStatusRepo(now func() time.Time) *pendingStatusRepo {
	return &pendingStatusRepo{
		pending: make(map[string]domain.PendingStatus),
		now:     now,
	}
}

// SetPending marks key as pending for ttl
func (r *pendingStatusRepo) SetPending(key string, ttl time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pending[key] = domain.PendingStatus{ExpiresAt: r.now().Add(ttl)}
}

// ConsumeIfPending removes the marker for key and reports whether it was live
func (r *pendingStatusRepo) ConsumeIfPending(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.pending[key]
	if !ok {
		return false
	}
	delete(r.pending, key)
	return !entry.Expired(r.now())
}

// Sweep drops expired markers
func (r *pendingStatusRepo) Sweep() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	removed := 0
	for key, entry := range r.pending {
		if entry.Expired(now) {
			delete(r.pending, key)
			removed++
		}
	}
	return removed
}
