package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pennantware/warbot/pkg/audit"
)

func newTestStore(t *testing.T, cfg Config) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return New(db, cfg), mock
}

func TestLog(t *testing.T) {
	store, mock := newTestStore(t, Config{})

	event := audit.NewEvent(audit.ActionSessionStarted).
		WithSession("sess-1", "chan-1", "guild-1", "user-1").
		WithKind("pitcher", 0)

	mock.ExpectExec("INSERT INTO session_audit").
		WithArgs(
			event.ID, event.Timestamp, "session_started",
			"sess-1", "chan-1", "guild-1", "user-1",
			"pitcher", 0, "", true, "",
		).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, store.Log(context.Background(), event))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLog_DBError(t *testing.T) {
	store, mock := newTestStore(t, Config{})

	mock.ExpectExec("INSERT INTO session_audit").
		WillReturnError(errors.New("connection refused"))

	err := store.Log(context.Background(), audit.NewEvent(audit.ActionSessionEnded))
	require.Error(t, err)
}

func TestQuery(t *testing.T) {
	store, mock := newTestStore(t, Config{})
	ts := time.Date(2025, 9, 1, 12, 0, 0, 0, time.UTC)

	rows := sqlmock.NewRows(auditColumns).
		AddRow("evt-1", ts, "calculation_succeeded", "sess-1", "chan-1",
			"guild-1", "user-1", "pitcher", 9, "", true, "")
	mock.ExpectQuery("SELECT .+ FROM session_audit").
		WithArgs("guild-1").
		WillReturnRows(rows)

	events, err := store.Query(context.Background(), audit.QueryFilter{GuildID: "guild-1"})
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, audit.ActionCalcSucceeded, events[0].Action)
	assert.Equal(t, "sess-1", events[0].SessionID)
	assert.Equal(t, 9, events[0].Step)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestQuery_LimitClamped(t *testing.T) {
	store, mock := newTestStore(t, Config{})

	mock.ExpectQuery("SELECT .+ FROM session_audit .*LIMIT 1000").
		WillReturnRows(sqlmock.NewRows(auditColumns))

	_, err := store.Query(context.Background(), audit.QueryFilter{Limit: 5000})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteExpired(t *testing.T) {
	store, mock := newTestStore(t, Config{RetentionDays: 30})

	mock.ExpectExec("DELETE FROM session_audit").
		WillReturnResult(sqlmock.NewResult(0, 7))

	n, err := store.DeleteExpired(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(7), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClose_WithoutRetention(t *testing.T) {
	store, _ := newTestStore(t, Config{})
	require.NoError(t, store.Close())
}

func TestRetentionLifecycle(t *testing.T) {
	store, _ := newTestStore(t, Config{})
	store.StartRetention()
	require.NoError(t, store.Close())
}
