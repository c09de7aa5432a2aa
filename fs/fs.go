package appfs

import "embed"

// FS holds the files shipped inside the binaries: migrations, templates and assets.
//go:embed migrations all:templates assets
var FS embed.FS
