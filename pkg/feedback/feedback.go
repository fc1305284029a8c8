// Package feedback collects free-form user feedback submitted through the
// bot and stores it for later review.
package feedback

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"
)

// MaxContentLen bounds a single feedback message.
const MaxContentLen = 2000

// ErrEmptyContent is returned for feedback with no usable text.
var ErrEmptyContent = errors.New("feedback: empty content")

// ErrTooLong is returned for feedback beyond MaxContentLen.
var ErrTooLong = errors.New("feedback: content too long")

// Entry is one submitted feedback message.
type Entry struct {
	ID        int64     `json:"id"`
	GuildID   string    `json:"guild_id,omitempty"`
	UserID    string    `json:"user_id"`
	UserName  string    `json:"user_name,omitempty"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// Validate normalizes and checks the entry's content.
func (e *Entry) Validate() error {
	e.Content = strings.TrimSpace(e.Content)
	if e.Content == "" {
		return ErrEmptyContent
	}
	if len(e.Content) > MaxContentLen {
		return ErrTooLong
	}
	return nil
}

// Store provides feedback persistence.
type Store interface {
	// Add stores a feedback entry.
	Add(ctx context.Context, entry Entry) error

	// Recent returns the latest entries, newest first.
	Recent(ctx context.Context, limit int) ([]Entry, error)
}

// Memory is an in-process Store used in tests and configurations without a
// database. Safe for concurrent use.
type Memory struct {
	mu      sync.RWMutex
	nextID  int64
	entries []Entry
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{nextID: 1}
}

// Add stores a feedback entry.
func (m *Memory) Add(_ context.Context, entry Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry.ID = m.nextID
	m.nextID++
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	m.entries = append(m.entries, entry)
	return nil
}

// Recent returns the latest entries, newest first.
func (m *Memory) Recent(_ context.Context, limit int) ([]Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Entry, len(m.entries))
	copy(out, m.entries)
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

var _ Store = (*Memory)(nil)
