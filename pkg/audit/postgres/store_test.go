package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/txn2/mcp-fabric/pkg/audit"
)

const (
	testDurationMS    = 42
	testResponseChars = 512
	testFilterLimit   = 10
	testFilterOffset  = 5
	testCountResult   = 42
	testCountFiltered = 7
)

func newTestEvent() audit.Event {
	return audit.Event{
		ID:            "evt-123",
		Timestamp:     time.Date(2026, 6, 15, 10, 30, 0, 0, time.UTC),
		DurationMS:    testDurationMS,
		RequestID:     "req-456",
		SessionID:     "sess-789",
		ToolName:      "list_lakehouses",
		ToolkitKind:   "fabric",
		ToolkitName:   "default",
		Workspace:     "Sales",
		Parameters:    map[string]any{"workspace": "Sales"},
		Success:       true,
		ResponseChars: testResponseChars,
		Transport:     "http",
	}
}

func newMockStore(t *testing.T, cfg Config) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return New(db, cfg), mock
}

func eventRows(events ...audit.Event) *sqlmock.Rows {
	rows := sqlmock.NewRows(auditColumns)
	for _, event := range events {
		params, _ := json.Marshal(event.Parameters)
		rows.AddRow(
			event.ID, event.Timestamp, event.DurationMS,
			event.RequestID, event.SessionID,
			event.ToolName, event.ToolkitKind, event.ToolkitName,
			event.Workspace, params,
			event.Success, event.ErrorMessage,
			event.ResponseChars, event.Transport,
		)
	}
	return rows
}

func TestNew(t *testing.T) {
	t.Run("custom retention", func(t *testing.T) {
		store, _ := newMockStore(t, Config{RetentionDays: 30})
		assert.Equal(t, 30, store.retentionDays)
	})

	t.Run("default retention when zero", func(t *testing.T) {
		store, _ := newMockStore(t, Config{})
		assert.Equal(t, defaultRetentionDays, store.retentionDays)
	})
}

func TestStore_Log(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		store, mock := newMockStore(t, Config{})
		event := newTestEvent()
		params, err := json.Marshal(event.Parameters)
		require.NoError(t, err)

		mock.ExpectExec("INSERT INTO audit_logs").WithArgs(
			event.ID, event.Timestamp, event.DurationMS,
			event.RequestID, event.SessionID,
			event.ToolName, event.ToolkitKind, event.ToolkitName,
			event.Workspace, params,
			event.Success, event.ErrorMessage,
			event.ResponseChars, event.Transport,
			"2026-06-15",
		).WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, store.Log(context.Background(), event))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("nil parameters stored as empty object", func(t *testing.T) {
		store, mock := newMockStore(t, Config{})
		event := newTestEvent()
		event.Parameters = nil

		mock.ExpectExec("INSERT INTO audit_logs").WithArgs(
			sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(),
			sqlmock.AnyArg(), sqlmock.AnyArg(),
			sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(),
			sqlmock.AnyArg(), []byte("{}"),
			sqlmock.AnyArg(), sqlmock.AnyArg(),
			sqlmock.AnyArg(), sqlmock.AnyArg(),
			sqlmock.AnyArg(),
		).WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, store.Log(context.Background(), event))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("db error", func(t *testing.T) {
		store, mock := newMockStore(t, Config{})
		mock.ExpectExec("INSERT INTO audit_logs").
			WillReturnError(errors.New("connection refused"))

		err := store.Log(context.Background(), newTestEvent())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "inserting audit log")
		assert.Contains(t, err.Error(), "connection refused")
	})
}

func TestStore_Query(t *testing.T) {
	t.Run("no filter", func(t *testing.T) {
		store, mock := newMockStore(t, Config{})
		event := newTestEvent()
		mock.ExpectQuery(`SELECT .+ FROM audit_logs ORDER BY timestamp DESC`).
			WillReturnRows(eventRows(event))

		got, err := store.Query(context.Background(), audit.QueryFilter{})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, event, got[0])
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("all filters", func(t *testing.T) {
		store, mock := newMockStore(t, Config{})
		start := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
		end := start.Add(24 * time.Hour)
		success := false

		mock.ExpectQuery(`SELECT .+ FROM audit_logs WHERE timestamp >= \$1 AND timestamp <= \$2 AND session_id = \$3 AND tool_name = \$4 AND workspace = \$5 AND success = \$6 ORDER BY timestamp DESC LIMIT 10 OFFSET 5`).
			WithArgs(start, end, "sess-789", "get_item", "Sales", false).
			WillReturnRows(sqlmock.NewRows(auditColumns))

		got, err := store.Query(context.Background(), audit.QueryFilter{
			StartTime: &start,
			EndTime:   &end,
			SessionID: "sess-789",
			ToolName:  "get_item",
			Workspace: "Sales",
			Success:   &success,
			Limit:     testFilterLimit,
			Offset:    testFilterOffset,
		})
		require.NoError(t, err)
		assert.Empty(t, got)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("multiple rows keep order", func(t *testing.T) {
		store, mock := newMockStore(t, Config{})
		first := newTestEvent()
		second := newTestEvent()
		second.ID = "evt-124"
		second.Success = false
		second.ErrorMessage = `workspace "Nope" not found`
		mock.ExpectQuery("SELECT .+ FROM audit_logs").WillReturnRows(eventRows(first, second))

		got, err := store.Query(context.Background(), audit.QueryFilter{})
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, "evt-123", got[0].ID)
		assert.Equal(t, `workspace "Nope" not found`, got[1].ErrorMessage)
	})

	t.Run("db error", func(t *testing.T) {
		store, mock := newMockStore(t, Config{})
		mock.ExpectQuery("SELECT .+ FROM audit_logs").WillReturnError(errors.New("boom"))

		_, err := store.Query(context.Background(), audit.QueryFilter{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "querying audit logs")
	})

	t.Run("scan error", func(t *testing.T) {
		store, mock := newMockStore(t, Config{})
		mock.ExpectQuery("SELECT .+ FROM audit_logs").
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("only-one"))

		_, err := store.Query(context.Background(), audit.QueryFilter{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "scanning audit log row")
	})
}

func TestStore_Count(t *testing.T) {
	t.Run("no filter", func(t *testing.T) {
		store, mock := newMockStore(t, Config{})
		mock.ExpectQuery(`SELECT COUNT\(\*\) FROM audit_logs`).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(testCountResult))

		n, err := store.Count(context.Background(), audit.QueryFilter{})
		require.NoError(t, err)
		assert.Equal(t, testCountResult, n)
	})

	t.Run("with filters", func(t *testing.T) {
		store, mock := newMockStore(t, Config{})
		mock.ExpectQuery(`SELECT COUNT\(\*\) FROM audit_logs WHERE tool_name = \$1 AND workspace = \$2`).
			WithArgs("list_items", "Sales").
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(testCountFiltered))

		n, err := store.Count(context.Background(), audit.QueryFilter{ToolName: "list_items", Workspace: "Sales"})
		require.NoError(t, err)
		assert.Equal(t, testCountFiltered, n)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("db error", func(t *testing.T) {
		store, mock := newMockStore(t, Config{})
		mock.ExpectQuery(`SELECT COUNT`).WillReturnError(errors.New("timeout"))

		_, err := store.Count(context.Background(), audit.QueryFilter{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "counting audit logs")
	})
}

func TestStore_Cleanup(t *testing.T) {
	t.Run("uses retention cutoff", func(t *testing.T) {
		store, mock := newMockStore(t, Config{RetentionDays: 30})
		now := time.Date(2026, 7, 31, 0, 0, 0, 0, time.UTC)
		store.now = func() time.Time { return now }

		mock.ExpectExec("DELETE FROM audit_logs WHERE timestamp").
			WithArgs(time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)).
			WillReturnResult(sqlmock.NewResult(0, 5))

		require.NoError(t, store.Cleanup(context.Background()))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("db error", func(t *testing.T) {
		store, mock := newMockStore(t, Config{RetentionDays: 30})
		mock.ExpectExec("DELETE FROM audit_logs WHERE timestamp").
			WillReturnError(errors.New("cleanup failed"))

		err := store.Cleanup(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "cleaning up audit logs")
	})
}

func TestStore_Close(t *testing.T) {
	t.Run("without cleanup routine", func(t *testing.T) {
		store, _ := newMockStore(t, Config{})
		assert.NoError(t, store.Close())
	})

	t.Run("stops cleanup routine", func(t *testing.T) {
		store, mock := newMockStore(t, Config{RetentionDays: 7})
		mock.ExpectExec("DELETE FROM audit_logs").WillReturnResult(sqlmock.NewResult(0, 0))

		store.StartCleanupRoutine(10 * time.Millisecond)
		assert.Eventually(t, func() bool {
			return mock.ExpectationsWereMet() == nil
		}, time.Second, 5*time.Millisecond)
		assert.NoError(t, store.Close())
	})
}

func TestStore_ImplementsLogger(t *testing.T) {
	var _ audit.Logger = (*Store)(nil)
}
