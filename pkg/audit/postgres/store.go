// Package postgres provides PostgreSQL storage for session audit events.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/pennantware/warbot/pkg/audit"
)

const (
	defaultRetentionDays = 90
	defaultQueryCapacity = 100
	maxQueryLimit        = 1000
	cleanupInterval      = 24 * time.Hour
)

// psq is the PostgreSQL statement builder with dollar placeholders.
var psq = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// auditColumns lists columns returned by audit SELECT queries.
var auditColumns = []string{
	"id", "timestamp", "action", "session_id", "channel_id", "guild_id",
	"user_id", "kind", "step", "detail", "success", "error_message",
}

// Store implements audit.Logger using PostgreSQL.
type Store struct {
	db            *sql.DB
	retentionDays int
	cancel        context.CancelFunc
	done          chan struct{}
}

// Config configures the PostgreSQL audit store.
type Config struct {
	RetentionDays int
}

// New creates a new PostgreSQL audit store.
func New(db *sql.DB, cfg Config) *Store {
	if cfg.RetentionDays == 0 {
		cfg.RetentionDays = defaultRetentionDays
	}
	return &Store{
		db:            db,
		retentionDays: cfg.RetentionDays,
	}
}

// Log records an audit event.
func (s *Store) Log(ctx context.Context, event audit.Event) error {
	query, args, err := psq.Insert("session_audit").
		Columns(auditColumns...).
		Values(
			event.ID,
			event.Timestamp,
			string(event.Action),
			event.SessionID,
			event.ChannelID,
			event.GuildID,
			event.UserID,
			event.Kind,
			event.Step,
			event.Detail,
			event.Success,
			event.ErrorMessage,
		).ToSql()
	if err != nil {
		return fmt.Errorf("building audit insert: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("inserting audit event: %w", err)
	}
	return nil
}

// Query retrieves audit events matching the filter, newest first.
func (s *Store) Query(ctx context.Context, filter audit.QueryFilter) ([]audit.Event, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = defaultQueryCapacity
	}
	if limit > maxQueryLimit {
		limit = maxQueryLimit
	}

	qb := psq.Select(auditColumns...).
		From("session_audit").
		OrderBy("timestamp DESC").
		Limit(uint64(limit))

	if filter.Offset > 0 {
		qb = qb.Offset(uint64(filter.Offset))
	}
	if filter.StartTime != nil {
		qb = qb.Where(sq.GtOrEq{"timestamp": *filter.StartTime})
	}
	if filter.EndTime != nil {
		qb = qb.Where(sq.LtOrEq{"timestamp": *filter.EndTime})
	}
	if filter.GuildID != "" {
		qb = qb.Where(sq.Eq{"guild_id": filter.GuildID})
	}
	if filter.UserID != "" {
		qb = qb.Where(sq.Eq{"user_id": filter.UserID})
	}
	if filter.Action != "" {
		qb = qb.Where(sq.Eq{"action": string(filter.Action)})
	}

	query, args, err := qb.ToSql()
	if err != nil {
		return nil, fmt.Errorf("building audit query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying audit events: %w", err)
	}
	defer func() { _ = rows.Close() }()

	events := make([]audit.Event, 0, limit)
	for rows.Next() {
		var e audit.Event
		var action string
		if err := rows.Scan(
			&e.ID, &e.Timestamp, &action, &e.SessionID, &e.ChannelID,
			&e.GuildID, &e.UserID, &e.Kind, &e.Step, &e.Detail,
			&e.Success, &e.ErrorMessage,
		); err != nil {
			return nil, fmt.Errorf("scanning audit event: %w", err)
		}
		e.Action = audit.Action(action)
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating audit events: %w", err)
	}
	return events, nil
}

// DeleteExpired removes events older than the retention window and returns
// how many were removed.
func (s *Store) DeleteExpired(ctx context.Context) (int64, error) {
	cutoff := time.Now().AddDate(0, 0, -s.retentionDays)

	query, args, err := psq.Delete("session_audit").
		Where(sq.Lt{"timestamp": cutoff}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("building retention delete: %w", err)
	}

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("deleting expired audit events: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// StartRetention starts a background goroutine that enforces the retention
// window once a day. Stopped by Close.
func (s *Store) StartRetention() {
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan struct{})

	go func() {
		defer close(s.done)

		ticker := time.NewTicker(cleanupInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n, err := s.DeleteExpired(ctx); err != nil {
					slog.Error("audit: retention cleanup failed", "error", err)
				} else if n > 0 {
					slog.Info("audit: retention cleanup removed events", "count", n)
				}
			}
		}
	}()
}

// Close stops the retention goroutine. The database handle is owned by the
// caller and is not closed here.
func (s *Store) Close() error {
	if s.cancel != nil {
		s.cancel()
		<-s.done
	}
	return nil
}

var _ audit.Logger = (*Store)(nil)
