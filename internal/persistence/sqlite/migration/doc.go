// Package migration applies versioned SQLite schema changes.
//
// Migration files follow the naming convention {version}_{description}.sql
// (e.g. "001_sessions.sql") and are read from an fs.FS, normally an embedded
// directory compiled into the binary. Applied versions and their checksums are
// tracked in the schema_migrations table; every pending file runs in its own
// transaction, in ascending version order.
//
// Example usage:
//
//	db, err := migration.Open(migration.DefaultSQLiteConfig("data/scheduler.db"))
//	manager := migration.NewManager(migration.NewScanner(schemaFS), migration.NewSQLiteExecutor(db), logger)
//	if _, err := manager.Run(ctx); err != nil {
//		return err
//	}
package migration
