package database

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/jmoiron/sqlx"
)

// RunMigrations applies every *.up.sql file in dir, in file name order, each in its own transaction
func RunMigrations(db *sqlx.DB, dir string) ([]string, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.up.sql"))
	if err != nil {
		return nil, fmt.Errorf("failed to list migrations in %s: %w", dir, err)
	}
	if len(paths) == 0 {
		absPath, _ := filepath.Abs(dir)
		return nil, fmt.Errorf("no migrations found in %s (absolute: %s)", dir, absPath)
	}
	sort.Strings(paths)

	applied := make([]string, 0, len(paths))
	for _, path := range paths {
		sql, err := os.ReadFile(path)
		if err != nil {
			return applied, fmt.Errorf("failed to read migration %s: %w", path, err)
		}

		if strings.TrimSpace(string(sql)) == "" {
			continue
		}

		if err := executeMigration(db, string(sql)); err != nil {
			return applied, fmt.Errorf("migration %s failed: %w", path, err)
		}
		applied = append(applied, filepath.Base(path))
	}

	return applied, nil
}

func executeMigration(db *sqlx.DB, sql string) error {
	tx, err := db.Beginx()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(sql); err != nil {
		return fmt.Errorf("failed to execute SQL: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}
