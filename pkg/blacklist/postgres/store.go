// Package postgres provides the PostgreSQL-backed global blacklist.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/pennantware/warbot/pkg/blacklist"
)

// Store persists blacklist entries in PostgreSQL.
type Store struct {
	db *sql.DB
}

// New creates a store on top of an open database handle.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Add blacklists a user, updating the reason if already listed.
func (s *Store) Add(ctx context.Context, entry blacklist.Entry) error {
	createdAt := entry.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO global_blacklist (user_id, reason, added_by, created_at)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (user_id) DO UPDATE SET reason = $2, added_by = $3`,
		entry.UserID, entry.Reason, entry.AddedBy, createdAt,
	)
	if err != nil {
		return fmt.Errorf("inserting blacklist entry: %w", err)
	}
	return nil
}

// Remove unlists a user.
func (s *Store) Remove(ctx context.Context, userID string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM global_blacklist WHERE user_id = $1`,
		userID,
	)
	if err != nil {
		return fmt.Errorf("deleting blacklist entry: %w", err)
	}
	return nil
}

// Contains reports whether the user is blacklisted.
func (s *Store) Contains(ctx context.Context, userID string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM global_blacklist WHERE user_id = $1)`,
		userID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("checking blacklist: %w", err)
	}
	return exists, nil
}

// List returns every entry, newest first.
func (s *Store) List(ctx context.Context) ([]blacklist.Entry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT user_id, reason, added_by, created_at
		 FROM global_blacklist
		 ORDER BY created_at DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("querying blacklist: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var entries []blacklist.Entry
	for rows.Next() {
		var e blacklist.Entry
		if err := rows.Scan(&e.UserID, &e.Reason, &e.AddedBy, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning blacklist entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating blacklist entries: %w", err)
	}
	return entries, nil
}

var _ blacklist.Store = (*Store)(nil)
