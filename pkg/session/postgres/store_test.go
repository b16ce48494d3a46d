package postgres

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/txn2/mcp-fabric/pkg/session"
)

const testSessionID = "sess-1"

var errTestDB = errors.New("db unavailable")

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return New(db, Config{TTL: time.Minute}), mock
}

func TestNew_DefaultTTL(t *testing.T) {
	store := New(nil, Config{})
	assert.Equal(t, session.DefaultTTL, store.ttl)
}

func TestStore_Get(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("SELECT value FROM session_context").
		WithArgs(testSessionID, "workspace").
		WillReturnRows(sqlmock.NewRows([]string{"value"}).AddRow("Sales"))

	got, ok, err := store.Get(context.Background(), testSessionID, session.KeyWorkspace)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "Sales", got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_Get_NotFound(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("SELECT value FROM session_context").
		WithArgs(testSessionID, "table").
		WillReturnError(sql.ErrNoRows)

	_, ok, err := store.Get(context.Background(), testSessionID, session.KeyTable)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStore_Get_Error(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("SELECT value FROM session_context").WillReturnError(errTestDB)

	_, _, err := store.Get(context.Background(), testSessionID, session.KeyTable)
	require.ErrorIs(t, err, errTestDB)
}

func TestStore_Set(t *testing.T) {
	store, mock := newMockStore(t)
	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	store.now = func() time.Time { return fixed }

	mock.ExpectExec("INSERT INTO session_context").
		WithArgs(testSessionID, "lakehouse", "Bronze", fixed.Add(time.Minute)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, store.Set(context.Background(), testSessionID, session.KeyLakehouse, "Bronze"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_Set_Error(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("INSERT INTO session_context").WillReturnError(errTestDB)

	err := store.Set(context.Background(), testSessionID, session.KeyLakehouse, "Bronze")
	require.ErrorIs(t, err, errTestDB)
}

func TestStore_Snapshot(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("SELECT key, value FROM session_context").
		WithArgs(testSessionID).
		WillReturnRows(sqlmock.NewRows([]string{"key", "value"}).
			AddRow("workspace", "Sales").
			AddRow("warehouse", "Gold"))

	snap, err := store.Snapshot(context.Background(), testSessionID)
	require.NoError(t, err)
	assert.Equal(t, map[session.Key]string{
		session.KeyWorkspace: "Sales",
		session.KeyWarehouse: "Gold",
	}, snap)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_Snapshot_Error(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("SELECT key, value FROM session_context").WillReturnError(errTestDB)

	_, err := store.Snapshot(context.Background(), testSessionID)
	require.ErrorIs(t, err, errTestDB)
}

func TestStore_Clear(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("DELETE FROM session_context WHERE session_id").
		WithArgs(testSessionID).
		WillReturnResult(sqlmock.NewResult(0, 3))

	require.NoError(t, store.Clear(context.Background(), testSessionID))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_Cleanup(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("DELETE FROM session_context WHERE expires_at").
		WillReturnResult(sqlmock.NewResult(0, 2))

	require.NoError(t, store.Cleanup(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_CleanupRoutine(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("DELETE FROM session_context WHERE expires_at").
		WillReturnResult(sqlmock.NewResult(0, 0))

	store.StartCleanupRoutine(10 * time.Millisecond)
	assert.Eventually(t, func() bool {
		return mock.ExpectationsWereMet() == nil
	}, time.Second, 5*time.Millisecond)
	require.NoError(t, store.Close())
}

func TestStore_CloseWithoutRoutine(t *testing.T) {
	store, _ := newMockStore(t)
	assert.NoError(t, store.Close())
}
