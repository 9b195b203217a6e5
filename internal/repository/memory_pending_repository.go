package repository

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ganatech/academy/internal/models"
)

// MemoryPendingRepository keeps signup challenges in process memory.
// Contents are lost on restart and are not shared between instances, so it only
// suits single-instance deployments and tests. Entries expire passively on read
// once their retention window has passed and are removed by Sweep.
type MemoryPendingRepository struct {
	mu        sync.Mutex
	entries   map[string]models.PendingVerification
	retention time.Duration
	nowF      func() time.Time
	logger    *logrus.Logger
}

func NewMemoryPendingRepository(retention time.Duration, logger *logrus.Logger) *MemoryPendingRepository {
	return &MemoryPendingRepository{
		entries:   make(map[string]models.PendingVerification),
		retention: retention,
		nowF:      time.Now,
		logger:    logger,
	}
}

// SetClock replaces the time source used for retention checks.
func (r *MemoryPendingRepository) SetClock(nowF func() time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nowF = nowF
}

func (r *MemoryPendingRepository) Put(_ context.Context, p *models.PendingVerification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[pendingKey(p.Kind, p.Phone)] = *p
	return nil
}

func (r *MemoryPendingRepository) Get(_ context.Context, kind models.Kind, phone string) (*models.PendingVerification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := pendingKey(kind, phone)
	p, ok := r.entries[key]
	if !ok {
		return nil, nil
	}
	if r.stale(p) {
		delete(r.entries, key)
		return nil, nil
	}
	return &p, nil
}

func (r *MemoryPendingRepository) Consume(_ context.Context, kind models.Kind, phone, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := pendingKey(kind, phone)
	p, ok := r.entries[key]
	if !ok || p.ID != id {
		return false, nil
	}
	delete(r.entries, key)
	return true, nil
}

// Sweep drops every entry past its retention window and returns how many were removed.
func (r *MemoryPendingRepository) Sweep() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	removed := 0
	for key, p := range r.entries {
		if r.stale(p) {
			delete(r.entries, key)
			removed++
		}
	}
	return removed
}

// Run sweeps every interval until ctx is cancelled.
func (r *MemoryPendingRepository) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := r.Sweep(); removed > 0 && r.logger != nil {
				r.logger.WithField("removed", removed).Debug("Swept expired pending verifications")
			}
		}
	}
}

func (r *MemoryPendingRepository) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

func (r *MemoryPendingRepository) stale(p models.PendingVerification) bool {
	return !r.nowF().Before(p.CreatedAt.Add(r.retention))
}
