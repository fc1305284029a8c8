// Package blacklist tracks users barred from starting calculations across
// all guilds. The gateway consults it before any session-creating command.
package blacklist

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Entry is one blacklisted user.
type Entry struct {
	UserID    string    `json:"user_id"`
	Reason    string    `json:"reason,omitempty"`
	AddedBy   string    `json:"added_by,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Store provides global blacklist storage.
type Store interface {
	// Add blacklists a user. Re-adding updates the reason.
	Add(ctx context.Context, entry Entry) error

	// Remove unlists a user. Removing an absent user is not an error.
	Remove(ctx context.Context, userID string) error

	// Contains reports whether the user is blacklisted.
	Contains(ctx context.Context, userID string) (bool, error)

	// List returns every entry, newest first.
	List(ctx context.Context) ([]Entry, error)
}

// Memory is an in-process Store used in tests and configurations without a
// database. Safe for concurrent use.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]Entry
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{entries: make(map[string]Entry)}
}

// Add blacklists a user.
func (m *Memory) Add(_ context.Context, entry Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	m.entries[entry.UserID] = entry
	return nil
}

// Remove unlists a user.
func (m *Memory) Remove(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.entries, userID)
	return nil
}

// Contains reports whether the user is blacklisted.
func (m *Memory) Contains(_ context.Context, userID string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	_, ok := m.entries[userID]
	return ok, nil
}

// List returns every entry, newest first.
func (m *Memory) List(_ context.Context) ([]Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Entry, 0, len(m.entries))
	for _, e := range m.entries {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

var _ Store = (*Memory)(nil)
