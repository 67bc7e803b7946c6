package auth

import (
	"sync"
	"time"
)

// RevocationList tracks signed-out access tokens until their natural expiry,
// so a stateless JWT stops working the moment its owner logs out.
type RevocationList struct {
	mu     sync.RWMutex
	tokens map[string]time.Time
}

func NewRevocationList() *RevocationList {
	return &RevocationList{
		tokens: make(map[string]time.Time),
	}
}

func (rl *RevocationList) Revoke(token string, expiresAt time.Time) {
	if time.Now().After(expiresAt) {
		return
	}
	rl.mu.Lock()
	defer rl.mu.Unlock()
	rl.tokens[token] = expiresAt
}

func (rl *RevocationList) IsRevoked(token string) bool {
	rl.mu.RLock()
	expiresAt, exists := rl.tokens[token]
	rl.mu.RUnlock()

	return exists && time.Now().Before(expiresAt)
}

// PurgeExpired drops entries whose token has expired on its own; invoked
// periodically from the scheduler.
func (rl *RevocationList) PurgeExpired() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	purged := 0
	for token, expiresAt := range rl.tokens {
		if time.Now().After(expiresAt) {
			delete(rl.tokens, token)
			purged++
		}
	}
	return purged
}
