package revoke

import (
	"context"
	"sync"
	"time"
)

// Memory implements Ledger with an in-process map. A record is evicted only
// once the token it revokes has itself expired, so under-retention cannot
// occur; between sweeps expired entries merely take up space.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]time.Time // token -> embedded expiry
	now     func() time.Time
}

var _ Ledger = (*Memory)(nil)

// NewMemory creates an empty ledger.
func NewMemory() *Memory {
	return &Memory{
		entries: make(map[string]time.Time),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

func (m *Memory) Revoke(ctx context.Context, token string, expiresAt time.Time) error {
	if token == "" {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.entries[token]; ok {
		// Keep the later horizon when revoked twice with differing expiries.
		if expiresAt.After(existing) {
			m.entries[token] = expiresAt
		}
		return nil
	}
	m.entries[token] = expiresAt
	return nil
}

func (m *Memory) IsRevoked(ctx context.Context, token string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.entries[token]
	return ok, nil
}

// Sweep drops records whose tokens have expired and returns how many were
// removed.
func (m *Memory) Sweep() int {
	now := m.now()
	m.mu.Lock()
	defer m.mu.Unlock()
	removed := 0
	for token, expiresAt := range m.entries {
		if now.After(expiresAt) {
			delete(m.entries, token)
			removed++
		}
	}
	return removed
}

// StartSweeper runs Sweep at the given interval until the returned stop
// function is called.
func (m *Memory) StartSweeper(interval time.Duration) func() {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.Sweep()
			}
		}
	}()
	return cancel
}
