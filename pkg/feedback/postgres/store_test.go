package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pennantware/warbot/pkg/feedback"
)

func newTestStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return New(db), mock
}

func TestAdd(t *testing.T) {
	store, mock := newTestStore(t)
	createdAt := time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectExec("INSERT INTO feedbacks").
		WithArgs("guild-1", "user-1", "tester", "便利です", createdAt).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := store.Add(context.Background(), feedback.Entry{
		GuildID:   "guild-1",
		UserID:    "user-1",
		UserName:  "tester",
		Content:   "便利です",
		CreatedAt: createdAt,
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecent(t *testing.T) {
	store, mock := newTestStore(t)
	createdAt := time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC)

	rows := sqlmock.NewRows([]string{"id", "guild_id", "user_id", "user_name", "content", "created_at"}).
		AddRow(2, "guild-1", "user-2", "b", "second", createdAt.Add(time.Hour)).
		AddRow(1, "guild-1", "user-1", "a", "first", createdAt)
	mock.ExpectQuery("SELECT id, guild_id, user_id, user_name, content, created_at").
		WithArgs(10).
		WillReturnRows(rows)

	entries, err := store.Recent(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "second", entries[0].Content)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecent_DefaultLimit(t *testing.T) {
	store, mock := newTestStore(t)

	mock.ExpectQuery("SELECT id, guild_id, user_id, user_name, content, created_at").
		WithArgs(defaultLimit).
		WillReturnRows(sqlmock.NewRows([]string{"id", "guild_id", "user_id", "user_name", "content", "created_at"}))

	entries, err := store.Recent(context.Background(), 0)
	require.NoError(t, err)
	assert.Empty(t, entries)
	assert.NoError(t, mock.ExpectationsWereMet())
}
