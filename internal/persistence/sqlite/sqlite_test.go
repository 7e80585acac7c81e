package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen_EnablesWAL(t *testing.T) {
	db, err := Open(filepath.Join(t.TempDir(), "wal.sqlite"), DefaultConfig())
	require.NoError(t, err)
	defer db.Close()

	var mode string
	require.NoError(t, db.QueryRow("PRAGMA journal_mode").Scan(&mode))
	assert.Equal(t, "wal", mode)
}

func TestMigrate_IsIdempotent(t *testing.T) {
	db, err := Open(filepath.Join(t.TempDir(), "m.sqlite"), DefaultConfig())
	require.NoError(t, err)
	defer db.Close()

	ctx := context.Background()
	schema := `CREATE TABLE t (id INTEGER PRIMARY KEY);`
	require.NoError(t, Migrate(ctx, db, 1, schema))
	// A second run must not re-execute the CREATE TABLE.
	require.NoError(t, Migrate(ctx, db, 1, schema))

	var v int
	require.NoError(t, db.QueryRow("PRAGMA user_version").Scan(&v))
	assert.Equal(t, 1, v)
}

func TestVerifyIntegrity_Healthy(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ok.sqlite")
	db, err := Open(path, DefaultConfig())
	require.NoError(t, err)
	_, err = db.Exec(`CREATE TABLE t (id INTEGER PRIMARY KEY, v TEXT)`)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	issues, err := VerifyIntegrity(path, "full")
	require.NoError(t, err)
	assert.Nil(t, issues)
}
