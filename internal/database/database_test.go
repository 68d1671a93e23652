package database

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestDB opens a migrated database in a temporary directory
func newTestDB(t *testing.T) *DB {
	t.Helper()

	db, err := New(NewDefaultOptions(filepath.Join(t.TempDir(), "test.db")))
	require.NoError(t, err, "Failed to open test database")
	t.Cleanup(func() {
		require.NoError(t, db.Close())
	})

	require.NoError(t, db.MigrateDatabase(), "Failed to migrate test database")
	return db
}

func TestNew_AppliesOptionsAndPings(t *testing.T) {
	db := newTestDB(t)

	var journalMode string
	err := db.Conn().QueryRow("PRAGMA journal_mode").Scan(&journalMode)
	require.NoError(t, err)
	assert.Equal(t, "wal", journalMode)

	var foreignKeys int
	err = db.Conn().QueryRow("PRAGMA foreign_keys").Scan(&foreignKeys)
	require.NoError(t, err)
	assert.Equal(t, 1, foreignKeys)
}

func TestMigrateDatabase_CreatesTables(t *testing.T) {
	db := newTestDB(t)

	for _, table := range []string{"oauth_credentials", "calendar_targets"} {
		var name string
		err := db.Conn().QueryRow(
			"SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?", table,
		).Scan(&name)
		require.NoError(t, err, "expected table %s to exist", table)
		assert.Equal(t, table, name)
	}
}

func TestMigrateDatabase_Idempotent(t *testing.T) {
	db := newTestDB(t)

	require.NoError(t, db.MigrateDatabase())
}

func TestWithTransaction_CommitsOnSuccess(t *testing.T) {
	db := newTestDB(t)

	err := db.WithTransaction(context.Background(), func(tx *sql.Tx) error {
		_, err := tx.Exec(
			"INSERT INTO calendar_targets (user_id, provider, calendar_id) VALUES (?, ?, ?)",
			"user-1", "google", "cal-1")
		return err
	})
	require.NoError(t, err)

	var count int
	require.NoError(t, db.Conn().QueryRow("SELECT COUNT(*) FROM calendar_targets").Scan(&count))
	assert.Equal(t, 1, count)
}

func TestWithTransaction_RollsBackOnError(t *testing.T) {
	db := newTestDB(t)

	err := db.WithTransaction(context.Background(), func(tx *sql.Tx) error {
		_, err := tx.Exec(
			"INSERT INTO calendar_targets (user_id, provider, calendar_id) VALUES (?, ?, ?)",
			"user-1", "google", "cal-1")
		require.NoError(t, err)
		return fmt.Errorf("boom")
	})
	require.Error(t, err)

	var count int
	require.NoError(t, db.Conn().QueryRow("SELECT COUNT(*) FROM calendar_targets").Scan(&count))
	assert.Equal(t, 0, count)
}

func TestBuildConnectionString(t *testing.T) {
	tests := []struct {
		name string
		opts SQLiteOptions
		want string
	}{
		{
			name: "path only",
			opts: SQLiteOptions{Path: "state.db"},
			want: "file:state.db",
		},
		{
			name: "mode and cache",
			opts: SQLiteOptions{Path: "state.db", Mode: "rwc", Cache: CacheShared},
			want: "file:state.db?cache=shared&mode=rwc",
		},
		{
			name: "immutable",
			opts: SQLiteOptions{Path: "state.db", Immutable: true},
			want: "file:state.db?immutable=true",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.opts.buildConnectionString())
		})
	}
}
