// Package dbtest opens migrated SQLite stores for tests in other packages.
package dbtest

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/solatis/groundskeeper/internal/core/db"
)

// NewStore returns a Store over a fresh, migrated SQLite file in t.TempDir().
func NewStore(t testing.TB, opts ...db.StoreOption) *db.Store {
	t.Helper()

	conn, err := db.Open("sqlite://" + filepath.Join(t.TempDir(), "groundskeeper.db"))
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	require.NoError(t, db.MigrateUp(conn))

	q, err := db.LoadQueries(conn)
	require.NoError(t, err)
	return db.NewStore(q, opts...)
}
