// Package postgres provides a PostgreSQL-backed guild settings store.
package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pennantware/warbot/pkg/guildconfig"
)

// Store persists guild settings as key/value rows in PostgreSQL.
type Store struct {
	db *sql.DB
}

// New creates a store on top of an open database handle.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Get returns the guild's assembled settings. Guilds without rows yield the
// default configuration.
func (s *Store) Get(ctx context.Context, guildID string) (guildconfig.Config, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT key, value FROM guild_configs WHERE guild_id = $1`,
		guildID,
	)
	if err != nil {
		return guildconfig.Config{}, fmt.Errorf("querying guild settings: %w", err)
	}
	defer func() { _ = rows.Close() }()

	values := make(map[string]string)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return guildconfig.Config{}, fmt.Errorf("scanning guild setting: %w", err)
		}
		values[key] = value
	}
	if err := rows.Err(); err != nil {
		return guildconfig.Config{}, fmt.Errorf("iterating guild settings: %w", err)
	}
	return guildconfig.FromValues(values), nil
}

// Set upserts one raw setting.
func (s *Store) Set(ctx context.Context, guildID, key, value string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO guild_configs (guild_id, key, value, updated_at)
		 VALUES ($1, $2, $3, NOW())
		 ON CONFLICT (guild_id, key) DO UPDATE SET value = $3, updated_at = NOW()`,
		guildID, key, value,
	)
	if err != nil {
		return fmt.Errorf("upserting guild setting: %w", err)
	}
	return nil
}

// Unset removes one raw setting.
func (s *Store) Unset(ctx context.Context, guildID, key string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM guild_configs WHERE guild_id = $1 AND key = $2`,
		guildID, key,
	)
	if err != nil {
		return fmt.Errorf("deleting guild setting: %w", err)
	}
	return nil
}

var _ guildconfig.Store = (*Store)(nil)
