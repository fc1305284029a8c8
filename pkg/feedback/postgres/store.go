// Package postgres provides the PostgreSQL-backed feedback store.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/pennantware/warbot/pkg/feedback"
)

// defaultLimit bounds Recent when the caller passes no limit.
const defaultLimit = 50

// Store persists feedback entries in PostgreSQL.
type Store struct {
	db *sql.DB
}

// New creates a store on top of an open database handle.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Add stores a feedback entry.
func (s *Store) Add(ctx context.Context, entry feedback.Entry) error {
	createdAt := entry.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO feedbacks (guild_id, user_id, user_name, content, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		entry.GuildID, entry.UserID, entry.UserName, entry.Content, createdAt,
	)
	if err != nil {
		return fmt.Errorf("inserting feedback: %w", err)
	}
	return nil
}

// Recent returns the latest entries, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]feedback.Entry, error) {
	if limit <= 0 {
		limit = defaultLimit
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, guild_id, user_id, user_name, content, created_at
		 FROM feedbacks
		 ORDER BY created_at DESC
		 LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying feedback: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var entries []feedback.Entry
	for rows.Next() {
		var e feedback.Entry
		if err := rows.Scan(&e.ID, &e.GuildID, &e.UserID, &e.UserName, &e.Content, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning feedback: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating feedback: %w", err)
	}
	return entries, nil
}

var _ feedback.Store = (*Store)(nil)
