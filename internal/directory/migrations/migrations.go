// Package migrations embeds the directory's goose migrations.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
