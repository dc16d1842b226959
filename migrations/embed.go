// Package migrations embeds the per-store SQL schema so the binary is self-contained.
// Layout: <driver>/<store>/NNN_name.sql, applied in lexical order.
package migrations

import "embed"

// FS contains all migration files embedded at compile time.
//
//go:embed sqlite postgres
var FS embed.FS
