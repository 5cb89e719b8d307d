package database

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testMigrations = []Migration{
	{Version: 1, Name: "create_notes", SQL: `CREATE TABLE IF NOT EXISTS notes (id INTEGER PRIMARY KEY, body TEXT NOT NULL)`},
	{Version: 2, Name: "add_notes_index", SQL: `CREATE INDEX IF NOT EXISTS idx_notes_body ON notes (body)`},
}

func TestOpen_SQLite(t *testing.T) {
	db, dialect, err := Open("", filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	defer db.Close()

	assert.Equal(t, SQLite, dialect)

	var mode string
	require.NoError(t, db.QueryRow("PRAGMA journal_mode").Scan(&mode))
	assert.Equal(t, "wal", mode)
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, _, err := Open("mongodb", "mongodb://localhost")
	assert.Error(t, err)
}

func TestRunMigrations(t *testing.T) {
	db, dialect, err := Open("sqlite", filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, RunMigrations(db, dialect, testMigrations))
	version, err := CurrentVersion(db)
	require.NoError(t, err)
	assert.Equal(t, 2, version)

	// Idempotent
	require.NoError(t, RunMigrations(db, dialect, testMigrations))
	var count int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&count))
	assert.Equal(t, 2, count)

	_, err = db.Exec("INSERT INTO notes (body) VALUES (?)", "hello")
	assert.NoError(t, err)
}

func TestRunMigrations_FailureRollsBack(t *testing.T) {
	db, dialect, err := Open("sqlite", filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	defer db.Close()

	bad := append(testMigrations[:1:1], Migration{Version: 2, Name: "broken", SQL: "CREATE TABLE"})
	require.Error(t, RunMigrations(db, dialect, bad))

	version, err := CurrentVersion(db)
	require.NoError(t, err)
	assert.Equal(t, 1, version)
}

func TestRebind(t *testing.T) {
	q := "INSERT INTO chats (a, b, c) VALUES (?, ?, ?)"
	assert.Equal(t, q, SQLite.Rebind(q))
	assert.Equal(t, "INSERT INTO chats (a, b, c) VALUES ($1, $2, $3)", Postgres.Rebind(q))
}
