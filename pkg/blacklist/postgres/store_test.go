package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pennantware/warbot/pkg/blacklist"
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

	mock.ExpectExec("INSERT INTO global_blacklist").
		WithArgs("user-1", "spam", "admin-1", createdAt).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := store.Add(context.Background(), blacklist.Entry{
		UserID:    "user-1",
		Reason:    "spam",
		AddedBy:   "admin-1",
		CreatedAt: createdAt,
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestContains(t *testing.T) {
	store, mock := newTestStore(t)

	mock.ExpectQuery("SELECT EXISTS").
		WithArgs("user-1").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	ok, err := store.Contains(context.Background(), "user-1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestContains_DBError(t *testing.T) {
	store, mock := newTestStore(t)

	mock.ExpectQuery("SELECT EXISTS").
		WillReturnError(errors.New("connection refused"))

	_, err := store.Contains(context.Background(), "user-1")
	require.Error(t, err)
}

func TestRemove(t *testing.T) {
	store, mock := newTestStore(t)

	mock.ExpectExec("DELETE FROM global_blacklist").
		WithArgs("user-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, store.Remove(context.Background(), "user-1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestList(t *testing.T) {
	store, mock := newTestStore(t)
	createdAt := time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC)

	rows := sqlmock.NewRows([]string{"user_id", "reason", "added_by", "created_at"}).
		AddRow("user-2", "abuse", "admin-1", createdAt.Add(time.Hour)).
		AddRow("user-1", "spam", "admin-1", createdAt)
	mock.ExpectQuery("SELECT user_id, reason, added_by, created_at").
		WillReturnRows(rows)

	entries, err := store.List(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "user-2", entries[0].UserID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
