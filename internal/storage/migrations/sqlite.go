package migrations

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
)

// RunSqliteMigrations applies all embedded SQLite files in lexical order.
func RunSqliteMigrations(ctx context.Context, db *sql.DB) error {
	files, err := sqlFiles(SqliteFS, "sqlite")
	if err != nil {
		return err
	}

	for _, file := range files {
		data, err := fs.ReadFile(SqliteFS, "sqlite/"+file)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", file, err)
		}
		for _, stmt := range splitStatements(string(data)) {
			if _, err := db.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("apply migration %s: %w", file, err)
			}
		}
	}

	return nil
}
