// Package migrations embeds the SQL migrations of every supported driver.
package migrations

import "embed"

// FS holds one directory of migrations per database driver.
//
//go:embed postgres/*.sql sqlite/*.sql
var FS embed.FS
