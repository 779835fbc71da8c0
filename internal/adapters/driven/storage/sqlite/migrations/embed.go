// Package migrations holds the tracking schema, applied in file-name order.
package migrations

import "embed"

// FS holds the numbered *.up.sql files.
//
//go:embed *.up.sql
var FS embed.FS
