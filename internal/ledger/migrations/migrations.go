// Package migrations embeds the goose SQL migrations that define the ledger
// schema.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
