// Package migrations embeds the PostgreSQL schema for rfp-shredder.
package migrations

import "embed"

// FS holds every *.up.sql and *.down.sql migration, applied by database.RunMigrations.
//
//go:embed *.sql
var FS embed.FS
