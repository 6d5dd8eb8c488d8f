package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "github.com/lib/pq"

	"bizbooks-backend/internal/infrastructure/config"
)

const migrationsDir = "migrations"

var steps = flag.Int("steps", 0, "number of migrations to run (0 = all)")

func usage() {
	fmt.Fprintf(os.Stderr, "usage: migrate [-steps n] up|down|status|new <name>\n")
	flag.PrintDefaults()
	os.Exit(2)
}

func main() {
	flag.Usage = usage
	flag.Parse()
	if flag.NArg() < 1 {
		usage()
	}

	// "new" only touches the filesystem, no database needed.
	if flag.Arg(0) == "new" {
		if flag.NArg() < 2 {
			usage()
		}
		if err := createMigration(flag.Arg(1)); err != nil {
			slog.Error("failed to create migration", "error", err)
			os.Exit(1)
		}
		return
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	db, err := sql.Open("postgres", cfg.Database.URL)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	m := &migrator{db: db}
	ctx := context.Background()

	switch flag.Arg(0) {
	case "up":
		err = m.up(ctx, *steps)
	case "down":
		err = m.down(ctx, *steps)
	case "status":
		err = m.status(ctx)
	default:
		usage()
	}

	if err != nil {
		slog.Error("migration failed", "error", err)
		os.Exit(1)
	}
}

type migration struct {
	ID        string
	Filename  string
	AppliedAt time.Time
}

type migrator struct {
	db *sql.DB
}

func (m *migrator) applied(ctx context.Context) (map[string]migration, error) {
	_, err := m.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			id VARCHAR(255) PRIMARY KEY,
			filename VARCHAR(255) NOT NULL,
			applied_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
		)
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to ensure migrations table: %w", err)
	}

	rows, err := m.db.QueryContext(ctx, `SELECT id, filename, applied_at FROM schema_migrations ORDER BY applied_at`)
	if err != nil {
		return nil, fmt.Errorf("failed to query applied migrations: %w", err)
	}
	defer rows.Close()

	applied := make(map[string]migration)
	for rows.Next() {
		var mg migration
		if err := rows.Scan(&mg.ID, &mg.Filename, &mg.AppliedAt); err != nil {
			return nil, fmt.Errorf("failed to scan migration row: %w", err)
		}
		applied[mg.ID] = mg
	}
	return applied, rows.Err()
}

func (m *migrator) pending(ctx context.Context) ([]string, error) {
	applied, err := m.applied(ctx)
	if err != nil {
		return nil, err
	}

	files, err := filepath.Glob(filepath.Join(migrationsDir, "*.sql"))
	if err != nil {
		return nil, fmt.Errorf("failed to list migration files: %w", err)
	}
	sort.Strings(files)

	var pending []string
	for _, file := range files {
		if _, ok := applied[migrationID(file)]; !ok {
			pending = append(pending, file)
		}
	}
	return pending, nil
}

func (m *migrator) up(ctx context.Context, steps int) error {
	pending, err := m.pending(ctx)
	if err != nil {
		return err
	}
	if len(pending) == 0 {
		slog.Info("no pending migrations")
		return nil
	}
	if steps > 0 && steps < len(pending) {
		pending = pending[:steps]
	}

	for _, file := range pending {
		if err := m.apply(ctx, file); err != nil {
			return fmt.Errorf("failed to apply migration %s: %w", file, err)
		}
		slog.Info("applied migration", "file", file)
	}

	slog.Info("migrations completed", "count", len(pending))
	return nil
}

func (m *migrator) down(ctx context.Context, steps int) error {
	applied, err := m.applied(ctx)
	if err != nil {
		return err
	}
	if len(applied) == 0 {
		slog.Info("no migrations to rollback")
		return nil
	}

	migrations := make([]migration, 0, len(applied))
	for _, mg := range applied {
		migrations = append(migrations, mg)
	}
	sort.Slice(migrations, func(i, j int) bool {
		return migrations[i].AppliedAt.After(migrations[j].AppliedAt)
	})
	if steps > 0 && steps < len(migrations) {
		migrations = migrations[:steps]
	}

	for _, mg := range migrations {
		if _, err := m.db.ExecContext(ctx, `DELETE FROM schema_migrations WHERE id = $1`, mg.ID); err != nil {
			return fmt.Errorf("failed to remove migration record %s: %w", mg.ID, err)
		}
		// Migration files carry no down SQL; the record is dropped so
		// the file can be re-applied after the schema is fixed by hand.
		slog.Warn("rolled back migration record, schema unchanged", "file", mg.Filename)
	}

	slog.Info("rollback completed", "count", len(migrations))
	return nil
}

func (m *migrator) status(ctx context.Context) error {
	applied, err := m.applied(ctx)
	if err != nil {
		return err
	}
	pending, err := m.pending(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("Applied migrations: %d\n", len(applied))
	for _, mg := range applied {
		fmt.Printf("  %s (applied at %s)\n", mg.Filename, mg.AppliedAt.Format(time.RFC3339))
	}

	fmt.Printf("\nPending migrations: %d\n", len(pending))
	for _, file := range pending {
		fmt.Printf("  %s\n", filepath.Base(file))
	}
	return nil
}

func (m *migrator) apply(ctx context.Context, file string) error {
	content, err := os.ReadFile(file)
	if err != nil {
		return fmt.Errorf("failed to read migration file: %w", err)
	}

	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, string(content)); err != nil {
		return fmt.Errorf("failed to execute migration SQL: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO schema_migrations (id, filename) VALUES ($1, $2)`,
		migrationID(file), filepath.Base(file)); err != nil {
		return fmt.Errorf("failed to record migration: %w", err)
	}
	return tx.Commit()
}

func createMigration(name string) error {
	id := fmt.Sprintf("%s_%s", time.Now().Format("20060102150405"), name)
	path := filepath.Join(migrationsDir, id+".sql")

	if err := os.MkdirAll(migrationsDir, 0o755); err != nil {
		return fmt.Errorf("failed to create migrations directory: %w", err)
	}

	content := fmt.Sprintf("-- Migration: %s\n-- Created at: %s\n\n", name, time.Now().Format(time.RFC3339))
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("failed to create migration file: %w", err)
	}

	slog.Info("created migration", "file", path)
	return nil
}

func migrationID(file string) string {
	return strings.TrimSuffix(filepath.Base(file), ".sql")
}
