package lease

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryLease is the single-process implementation used in development and
// tests.
type MemoryLease struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

type memoryEntry struct {
	token     string
	expiresAt time.Time
}

func NewMemoryLease() *MemoryLease {
	return &MemoryLease{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

func (l *MemoryLease) Acquire(_ context.Context, key string, ttl time.Duration) (string, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry, held := l.entries[key]
	if held && entry.expiresAt.After(l.now()) {
		return "", false, nil
	}

	token := uuid.New().String()
	l.entries[key] = memoryEntry{token: token, expiresAt: l.now().Add(ttl)}

	return token, true, nil
}

func (l *MemoryLease) Release(_ context.Context, key, token string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry, held := l.entries[key]
	if held && entry.token == token {
		delete(l.entries, key)
	}

	return nil
}
