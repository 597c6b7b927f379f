// Package migrations embeds SQL migration files.
package migrations

import "embed"

// FS contains the notifier's own schema migrations. The academic tables
// (students, courses, enrollments, attendance) belong to the backing store
// and are not managed here; only the notification ledger is ours.
//
//go:embed sql/*.sql
var FS embed.FS

// Dir is the directory within FS where migrations live.
const Dir = "sql"
