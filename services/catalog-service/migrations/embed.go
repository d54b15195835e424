// Package migrations embeds the catalog schema applied at startup.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
