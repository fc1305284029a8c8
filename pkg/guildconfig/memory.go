package guildconfig

import (
	"context"
	"sync"
)

// Memory is an in-process Store used in tests and configurations without a
// database. Safe for concurrent use.
type Memory struct {
	mu     sync.RWMutex
	guilds map[string]map[string]string
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{guilds: make(map[string]map[string]string)}
}

// Get returns the guild's assembled settings.
func (m *Memory) Get(_ context.Context, guildID string) (Config, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	values := make(map[string]string, len(m.guilds[guildID]))
	for k, v := range m.guilds[guildID] {
		values[k] = v
	}
	return FromValues(values), nil
}

// Set writes one raw setting.
func (m *Memory) Set(_ context.Context, guildID, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.guilds[guildID] == nil {
		m.guilds[guildID] = make(map[string]string)
	}
	m.guilds[guildID][key] = value
	return nil
}

// Unset removes one raw setting.
func (m *Memory) Unset(_ context.Context, guildID, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.guilds[guildID], key)
	return nil
}

var _ Store = (*Memory)(nil)
