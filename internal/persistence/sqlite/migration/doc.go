// Package migration applies versioned schema changes to SQLite databases.
//
// Migrations are SQL files named {version}_{description}.sql, read from an
// fs.FS (usually an embedded directory). Applied versions are tracked in the
// schema_migrations table and each file runs inside its own transaction.
//
// Example usage:
//
//	migrations, err := migration.Scan(schemaFS, "schema")
//	if err != nil {
//		return err
//	}
//	manager := migration.NewManager(migration.NewSQLiteExecutor(db), migrations, logger)
//	if err := manager.Run(ctx); err != nil {
//		return err
//	}
package migration
