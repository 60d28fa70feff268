package revokedtokens

import (
	"context"
	"sync"
	"time"

	"github.com/dmitrijs2005/authkeeper/internal/server/models"
)

// MemoryRepository keeps the blacklist in process memory. Contents are lost
// on restart, so it suits single-instance deployments and tests.
type MemoryRepository struct {
	mu      sync.RWMutex
	entries map[string]models.RevokedToken
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{entries: make(map[string]models.RevokedToken)}
}

func (r *MemoryRepository) Revoke(_ context.Context, entry *models.RevokedToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.entries[entry.TokenID]; !ok {
		r.entries[entry.TokenID] = *entry
	}
	return nil
}

func (r *MemoryRepository) IsRevoked(_ context.Context, tokenID string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.entries[tokenID]
	return ok, nil
}

func (r *MemoryRepository) Prune(_ context.Context, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var removed int64
	for id, e := range r.entries {
		if !e.ExpiresAt.After(now) {
			delete(r.entries, id)
			removed++
		}
	}
	return removed, nil
}

// Len returns the number of entries currently held.
func (r *MemoryRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}
