package inmemdb

import (
	"context"
	"sync"
	"time"

	"github.com/trezcool/mradi/core"
)

// TokenBlacklist keeps revoked token IDs in memory until they expire.
type TokenBlacklist struct {
	mutex   sync.Mutex
	revoked map[string]time.Time // {jti: expiresAt}
	nowFunc func() time.Time
}

var _ core.TokenBlacklist = (*TokenBlacklist)(nil)

func NewTokenBlacklist() *TokenBlacklist {
	return &TokenBlacklist{revoked: make(map[string]time.Time), nowFunc: time.Now}
}

func (bl *TokenBlacklist) Revoke(_ context.Context, tokenID string, expiresAt time.Time) error {
	bl.mutex.Lock()
	defer bl.mutex.Unlock()

	bl.purge()
	bl.revoked[tokenID] = expiresAt
	return nil
}

func (bl *TokenBlacklist) IsRevoked(_ context.Context, tokenID string) (bool, error) {
	bl.mutex.Lock()
	defer bl.mutex.Unlock()

	exp, ok := bl.revoked[tokenID]
	if !ok {
		return false, nil
	}
	if !bl.nowFunc().Before(exp) {
		delete(bl.revoked, tokenID)
		return false, nil
	}
	return true, nil
}

// purge drops expired entries. Callers must hold the lock.
func (bl *TokenBlacklist) purge() {
	now := bl.nowFunc()
	for id, exp := range bl.revoked {
		if !now.Before(exp) {
			delete(bl.revoked, id)
		}
	}
}
