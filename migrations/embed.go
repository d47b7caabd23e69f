// Package migrations embeds the bridge core's SQL schema into the binary.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS

// Dir is the directory within FS holding the migration files.
const Dir = "."
