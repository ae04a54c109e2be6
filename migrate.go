package framewire

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/AndrewDonelson/framewire/internal/l3"
	"github.com/jackc/pgx/v5"
)

const migrationTable = "_framewire_migrations"

// MigrationRecord describes a single applied migration.
type MigrationRecord struct {
	ID        int
	Target    string
	FileName  string
	AppliedAt time.Time
}

// Migrate creates the frames table and the migration ledger (idempotent).
// Without L3 it does nothing.
func (s *Store) Migrate(ctx context.Context) error {
	if s.l3 == nil {
		return nil
	}
	if err := s.ensureMigrationTable(ctx); err != nil {
		return err
	}
	if err := s.l3.Migrate(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrL3Unavailable, err)
	}
	marker := "create_table:" + s.tableName()
	applied, err := s.isMigrationApplied(ctx, marker)
	if err != nil || applied {
		return err
	}
	_, err = s.l3.Pool().Exec(ctx,
		fmt.Sprintf("INSERT INTO %s (target, file_name) VALUES ($1, $2)", migrationTable),
		s.tableName(), marker,
	)
	if err == nil {
		s.logger.Info("framewire: created frames table", "table", s.tableName())
	}
	return err
}

// MigrateFrom applies SQL migration files from dir in NNN_description.sql
// order, each in its own transaction, skipping files already applied.
func (s *Store) MigrateFrom(ctx context.Context, dir string) error {
	if s.l3 == nil {
		return ErrL3Unavailable
	}
	if err := s.ensureMigrationTable(ctx); err != nil {
		return err
	}
	files, err := migrationFiles(dir)
	if err != nil {
		return err
	}

	for _, fname := range files {
		applied, err := s.isMigrationApplied(ctx, fname)
		if err != nil {
			return err
		}
		if applied {
			continue
		}
		content, err := os.ReadFile(filepath.Join(dir, fname))
		if err != nil {
			return fmt.Errorf("migrate-from read %q: %w", fname, err)
		}
		tx, err := s.l3.Pool().Begin(ctx)
		if err != nil {
			return fmt.Errorf("migrate-from begin tx %q: %w", fname, err)
		}
		if _, err := tx.Exec(ctx, string(content)); err != nil {
			_ = tx.Rollback(ctx)
			return fmt.Errorf("migrate-from exec %q: %w", fname, err)
		}
		if err := recordMigration(ctx, tx, "file", fname); err != nil {
			_ = tx.Rollback(ctx)
			return err
		}
		if err := tx.Commit(ctx); err != nil {
			return fmt.Errorf("migrate-from commit %q: %w", fname, err)
		}
		s.logger.Info("framewire: applied migration", "file", fname)
	}
	return nil
}

// MigrationStatus returns applied migrations in order.
func (s *Store) MigrationStatus(ctx context.Context) ([]MigrationRecord, error) {
	if s.l3 == nil {
		return nil, ErrL3Unavailable
	}
	rows, err := s.l3.Pool().Query(ctx,
		fmt.Sprintf("SELECT id, target, file_name, applied_at FROM %s ORDER BY id", migrationTable))
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (MigrationRecord, error) {
		var r MigrationRecord
		err := row.Scan(&r.ID, &r.Target, &r.FileName, &r.AppliedAt)
		return r, err
	})
}

// migrationFiles lists the .sql files in dir, sorted by name.
func migrationFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("migrate-from readdir %q: %w", dir, err)
	}
	var files []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".sql") {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)
	return files, nil
}

func (s *Store) tableName() string {
	if s.cfg.Table == "" {
		return l3.DefaultTable
	}
	return s.cfg.Table
}

func (s *Store) ensureMigrationTable(ctx context.Context) error {
	sql := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
id          SERIAL PRIMARY KEY,
target      TEXT NOT NULL,
file_name   TEXT NOT NULL DEFAULT '',
applied_at  TIMESTAMPTZ NOT NULL DEFAULT now()
)`, migrationTable)
	if _, err := s.l3.Pool().Exec(ctx, sql); err != nil {
		return fmt.Errorf("%w: migration table: %v", ErrL3Unavailable, err)
	}
	return nil
}

func recordMigration(ctx context.Context, tx pgx.Tx, target, fileName string) error {
	_, err := tx.Exec(ctx,
		fmt.Sprintf("INSERT INTO %s (target, file_name) VALUES ($1, $2)", migrationTable),
		target, fileName,
	)
	return err
}

func (s *Store) isMigrationApplied(ctx context.Context, fileName string) (bool, error) {
	sql := fmt.Sprintf("SELECT 1 FROM %s WHERE file_name=$1 LIMIT 1", migrationTable)
	var dummy int
	err := s.l3.Pool().QueryRow(ctx, sql, fileName).Scan(&dummy)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
