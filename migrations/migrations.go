// Package migrations embeds the SQL migrations of the application.
// Files are applied in lexical order, never rename or remove a file
// once it has been released.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
