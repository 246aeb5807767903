package migrations

import "github.com/uptrace/bun/migrate"

// Migrations holds every schema change, registered by the numbered files in
// this package. The file name of each registration is its migration name.
var Migrations = migrate.NewMigrations()
