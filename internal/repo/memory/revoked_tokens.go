package memory

import (
	"context"
	"sync"
	"time"
)

// RevokedTokens keeps logged-out token ids until they would have expired.
type RevokedTokens struct {
	mu    sync.Mutex
	items map[string]time.Time
	now   func() time.Time
}

func NewRevokedTokens() *RevokedTokens {
	return &RevokedTokens{
		items: make(map[string]time.Time),
		now:   time.Now,
	}
}

func (r *RevokedTokens) Revoke(ctx context.Context, tokenID string, until time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()

	// drop entries whose tokens have expired on their own
	for id, exp := range r.items {
		if now.After(exp) {
			delete(r.items, id)
		}
	}

	if until.After(now) {
		r.items[tokenID] = until
	}

	return nil
}

func (r *RevokedTokens) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	exp, ok := r.items[tokenID]
	if !ok {
		return false, nil
	}

	if r.now().After(exp) {
		delete(r.items, tokenID)
		return false, nil
	}

	return true, nil
}
