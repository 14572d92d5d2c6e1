package migrations

import "embed"

// FS contains the embedded ledger store migrations.
//
//go:embed *.sql
var FS embed.FS
