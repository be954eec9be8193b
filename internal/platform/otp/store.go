// Package otp issues and checks one-time phone verification codes.
package otp

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrNoCode is returned by Store.Consume when no live code exists for the key.
var ErrNoCode = errors.New("no active code")

// Store keeps codes with an expiry. Consume deletes the code only when it
// matches, so a wrong guess does not burn a valid code.
type Store interface {
	Save(ctx context.Context, key, code string, ttl time.Duration) error
	Consume(ctx context.Context, key, code string) (bool, error)
}

type memoryEntry struct {
	code      string
	expiresAt time.Time
}

// MemoryStore is an in-process Store for development and tests. Codes are
// lost on restart and not shared between instances.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]memoryEntry), now: time.Now}
}

func (m *MemoryStore) Save(_ context.Context, key, code string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = memoryEntry{code: code, expiresAt: m.now().Add(ttl)}
	return nil
}

func (m *MemoryStore) Consume(_ context.Context, key, code string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[key]
	if !ok {
		return false, ErrNoCode
	}
	if !m.now().Before(e.expiresAt) {
		delete(m.entries, key)
		return false, ErrNoCode
	}
	if e.code != code {
		return false, nil
	}
	delete(m.entries, key)
	return true, nil
}
