package db

import "embed"

// MigrationFS embeds the token store schema from internal/db/migrations.
// cmd/migrate applies it, and the server applies it on start when TOKEN_STORE=postgres.
//
//go:embed migrations/*.sql
var MigrationFS embed.FS
