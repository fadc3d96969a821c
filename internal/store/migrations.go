package store

import "embed"

// EmbeddedMigrations contains all SQL migration files embedded into the
// binary, so upwatch never depends on migration files being present on
// disk at runtime.
//
//go:embed migrations/*.sql
var EmbeddedMigrations embed.FS
