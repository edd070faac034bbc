package db

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen_UnsupportedScheme(t *testing.T) {
	_, err := Open("mysql://localhost/db")
	assert.ErrorContains(t, err, "unsupported database scheme")
}

func TestMigrateUp_Idempotent(t *testing.T) {
	conn, err := Open("sqlite://" + filepath.Join(t.TempDir(), "m.db"))
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, MigrateUp(conn))
	require.NoError(t, MigrateUp(conn))

	statuses, err := MigrateStatus(conn)
	require.NoError(t, err)
	require.NotEmpty(t, statuses)
	for _, s := range statuses {
		assert.True(t, s.Applied, "migration %s", s.ID)
		assert.NotNil(t, s.AppliedAt)
		assert.Len(t, s.Checksum, 64)
	}

	var tables []string
	require.NoError(t, conn.Select(&tables,
		"SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name"))
	assert.Equal(t, []string{"api_keys", "migrations", "territories", "territory_assignments", "territory_rules"}, tables)
}

func TestMigrateStatus_Pending(t *testing.T) {
	conn, err := Open("sqlite://" + filepath.Join(t.TempDir(), "m.db"))
	require.NoError(t, err)
	defer conn.Close()

	statuses, err := MigrateStatus(conn)
	require.NoError(t, err)
	require.NotEmpty(t, statuses)
	assert.False(t, statuses[0].Applied)
	assert.Nil(t, statuses[0].AppliedAt)
}

func TestMigrateUp_ChecksumMismatch(t *testing.T) {
	conn, err := Open("sqlite://" + filepath.Join(t.TempDir(), "m.db"))
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, MigrateUp(conn))
	_, err = conn.Exec("UPDATE migrations SET checksum = 'tampered'")
	require.NoError(t, err)

	err = MigrateUp(conn)
	assert.ErrorContains(t, err, "checksum mismatch")
}

func TestMigrateUp_UnknownAppliedMigration(t *testing.T) {
	conn, err := Open("sqlite://" + filepath.Join(t.TempDir(), "m.db"))
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, MigrateUp(conn))
	_, err = conn.Exec(`INSERT INTO migrations (migration_id, checksum, applied_at, execution_ms)
		VALUES ('999_from_the_future.sql', 'x', '2026-01-01T00:00:00Z', 1)`)
	require.NoError(t, err)

	err = MigrateUp(conn)
	assert.ErrorContains(t, err, "999_from_the_future.sql exists in database but not in embedded files")

	statuses, err := MigrateStatus(conn)
	require.NoError(t, err)
	for _, s := range statuses {
		assert.NotEqual(t, "999_from_the_future.sql", s.ID, "status lists embedded migrations only")
	}
}

func TestStripComments(t *testing.T) {
	sql := "-- header\nCREATE TABLE a (x TEXT);\n  -- inline note\nCREATE TABLE b (y TEXT)"
	got := stripComments(sql)
	assert.NotContains(t, got, "header")
	assert.NotContains(t, got, "inline note")
	assert.Contains(t, got, "CREATE TABLE a")
	assert.Contains(t, got, "CREATE TABLE b")
}
