package implementations

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"strings"

	"github.com/sse-simulator/stock-trading-simulator/src/internal/logger"
)

//go:embed migrations
var embeddedMigrations embed.FS

// RunMigrations applies every pending .sql file in name order. When
// migrationsDir is empty the files embedded for the connection's driver are
// used.
func RunMigrations(ctx context.Context, db *Database, migrationsDir string) error {
	source, err := migrationSource(db.Driver(), migrationsDir)
	if err != nil {
		return err
	}

	if err := ensureSchemaMigrationsTable(ctx, db); err != nil {
		return err
	}

	files, err := migrationFiles(source)
	if err != nil {
		return err
	}

	for _, file := range files {
		applied, err := isApplied(ctx, db, file)
		if err != nil {
			return err
		}
		if applied {
			continue
		}

		sqlBytes, err := fs.ReadFile(source, file)
		if err != nil {
			return fmt.Errorf("read migration %q: %w", file, err)
		}

		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin tx for migration %q: %w", file, err)
		}

		if _, err := tx.ExecContext(ctx, string(sqlBytes)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("execute migration %q: %w", file, err)
		}

		if _, err := tx.ExecContext(ctx, db.Rebind(`INSERT INTO schema_migrations(version) VALUES (?)`), file); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("record migration %q: %w", file, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %q: %w", file, err)
		}

		logger.Info("migration applied", logger.Fields{"version": file, "driver": db.Driver()})
	}

	return nil
}

func migrationSource(driver, migrationsDir string) (fs.FS, error) {
	if strings.TrimSpace(migrationsDir) != "" {
		return os.DirFS(migrationsDir), nil
	}

	sub, err := fs.Sub(embeddedMigrations, "migrations/"+driver)
	if err != nil {
		return nil, fmt.Errorf("embedded migrations for %q: %w", driver, err)
	}
	// fs.Sub does not check the directory exists
	if _, err := fs.ReadDir(sub, "."); err != nil {
		return nil, fmt.Errorf("embedded migrations for %q: %w", driver, err)
	}
	return sub, nil
}

func ensureSchemaMigrationsTable(ctx context.Context, db *Database) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS schema_migrations (
	version TEXT PRIMARY KEY,
	applied_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
)`

	if _, err := db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("ensure schema_migrations table: %w", err)
	}

	return nil
}

func migrationFiles(source fs.FS) ([]string, error) {
	entries, err := fs.ReadDir(source, ".")
	if err != nil {
		return nil, fmt.Errorf("read migrations directory: %w", err)
	}

	files := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if strings.HasSuffix(strings.ToLower(entry.Name()), ".sql") {
			files = append(files, entry.Name())
		}
	}

	sort.Strings(files)
	return files, nil
}

func isApplied(ctx context.Context, db *Database, version string) (bool, error) {
	var count int
	if err := db.QueryRowContext(ctx, db.Rebind(`SELECT COUNT(1) FROM schema_migrations WHERE version = ?`), version).Scan(&count); err != nil {
		return false, fmt.Errorf("check migration %q status: %w", version, err)
	}

	return count > 0, nil
}
