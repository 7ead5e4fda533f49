package utils

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const blacklistKeyPrefix = "jwt:blacklist:"

// TokenBlacklist records tokens revoked before their natural expiry, in Redis when a client is
// available and in process memory otherwise.
type TokenBlacklist struct {
	rdb *redis.Client

	mu      sync.RWMutex
	entries map[string]time.Time
	now     func() time.Time
}

// NewTokenBlacklist creates a blacklist. A nil client selects the in-memory store.
func NewTokenBlacklist(rdb *redis.Client) *TokenBlacklist {
	return &TokenBlacklist{rdb: rdb, entries: map[string]time.Time{}, now: time.Now}
}

// Revoke stores token until expiresAt. Tokens that already expired are ignored.
func (b *TokenBlacklist) Revoke(ctx context.Context, token string, expiresAt time.Time) error {
	ttl := expiresAt.Sub(b.now())
	if ttl <= 0 {
		return nil
	}
	if b.rdb != nil {
		ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		return b.rdb.Set(ctx, blacklistKeyPrefix+token, "1", ttl).Err()
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.entries[token] = expiresAt
	b.sweepLocked()
	return nil
}

// IsRevoked reports whether token was revoked. Redis errors count as not revoked so that an outage
// does not log every user out; the signature and expiry checks still apply.
func (b *TokenBlacklist) IsRevoked(ctx context.Context, token string) bool {
	if b.rdb != nil {
		ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		n, err := b.rdb.Exists(ctx, blacklistKeyPrefix+token).Result()
		if err != nil {
			if Sugar != nil {
				Sugar.Warnf("token blacklist lookup failed: %v", err)
			}
			return false
		}
		return n > 0
	}

	b.mu.RLock()
	expiresAt, ok := b.entries[token]
	b.mu.RUnlock()
	if !ok {
		return false
	}
	if b.now().After(expiresAt) {
		b.mu.Lock()
		delete(b.entries, token)
		b.mu.Unlock()
		return false
	}
	return true
}

func (b *TokenBlacklist) sweepLocked() {
	now := b.now()
	for token, expiresAt := range b.entries {
		if now.After(expiresAt) {
			delete(b.entries, token)
		}
	}
}
