// Package migrations embeds the schema for each supported driver.
package migrations

import "embed"

// SqliteMigrations holds the SQLite schema, applied in file name order by db.MigrateUp.
//
//go:embed sqlite/*.sql
var SqliteMigrations embed.FS

// PostgresMigrations holds the PostgreSQL schema.
//
//go:embed postgres/*.sql
var PostgresMigrations embed.FS
