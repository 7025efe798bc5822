package appfs

import "embed"

// FS holds the app's embedded files: the database migrations.
//go:embed migrations/*.sql
var FS embed.FS
