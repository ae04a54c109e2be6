// Copyright (c) 2026 Nlaak Studios (https://nlaak.com)
// Author: Andrew Donelson (https://www.linkedin.com/in/andrew-donelson/)
//
// l3.go — PostgreSQL persistence tier for encoded frames: idempotent table
// migration, upsert, batched upsert, point reads, prefix listing and counts,
// with optional read-replica routing via a secondary pgxpool.

// Package l3 provides the PostgreSQL persistence tier adapter.
package l3

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DefaultTable is the table frames are stored in when none is configured.
const DefaultTable = "framewire_frames"

// ErrNoRows is returned by Get when the key is not stored.
var ErrNoRows = errors.New("l3: no rows")

// Record is one stored frame payload.
type Record struct {
	Key       string
	Codec     string
	Payload   []byte
	Rows      int
	Cols      int
	UpdatedAt time.Time
}

// Summary describes a stored frame without its payload.
type Summary struct {
	Key       string
	Codec     string
	Rows      int
	Cols      int
	Size      int
	UpdatedAt time.Time
}

// Store is the L3 PostgreSQL adapter.
type Store struct {
	pool    *pgxpool.Pool
	replica *pgxpool.Pool
	table   string // sanitized identifier
}

// New creates a new L3 Store from an existing pool. An empty table name
// selects DefaultTable.
func New(pool *pgxpool.Pool, replica *pgxpool.Pool, table string) *Store {
	if table == "" {
		table = DefaultTable
	}
	return &Store{pool: pool, replica: replica, table: pgx.Identifier{table}.Sanitize()}
}

// readPool returns the read replica if available, otherwise the primary.
func (s *Store) readPool() *pgxpool.Pool {
	if s.replica != nil {
		return s.replica
	}
	return s.pool
}

// Ping verifies the primary pool is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Migrate creates the frames table and its prefix index if missing.
func (s *Store) Migrate(ctx context.Context) error {
	stmts := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	key        TEXT PRIMARY KEY,
	codec      TEXT        NOT NULL,
	payload    BYTEA       NOT NULL,
	num_rows   INTEGER     NOT NULL DEFAULT 0,
	num_cols   INTEGER     NOT NULL DEFAULT 0,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`, s.table),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s ON %s (key text_pattern_ops)`,
			pgx.Identifier{strings.Trim(s.table, `"`) + "_key_prefix"}.Sanitize(), s.table),
	}
	for _, stmt := range stmts {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("l3 migrate %s: %w", s.table, err)
		}
	}
	return nil
}

func (s *Store) upsertSQL() string {
	return fmt.Sprintf(`INSERT INTO %s (key, codec, payload, num_rows, num_cols, updated_at)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (key) DO UPDATE SET
	codec = EXCLUDED.codec, payload = EXCLUDED.payload,
	num_rows = EXCLUDED.num_rows, num_cols = EXCLUDED.num_cols, updated_at = EXCLUDED.updated_at`, s.table)
}

// Upsert inserts or replaces one record.
func (s *Store) Upsert(ctx context.Context, r Record) error {
	_, err := s.pool.Exec(ctx, s.upsertSQL(), r.Key, r.Codec, r.Payload, r.Rows, r.Cols, r.UpdatedAt)
	if err != nil {
		return fmt.Errorf("l3 upsert %s: %w", r.Key, err)
	}
	return nil
}

// UpsertMany writes all records in one transaction using a pgx batch.
func (s *Store) UpsertMany(ctx context.Context, records []Record) error {
	if len(records) == 0 {
		return nil
	}
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("l3 begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	batch := &pgx.Batch{}
	sql := s.upsertSQL()
	for _, r := range records {
		batch.Queue(sql, r.Key, r.Codec, r.Payload, r.Rows, r.Cols, r.UpdatedAt)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("l3 upsert batch: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("l3 commit: %w", err)
	}
	return nil
}

// Get reads one record. Returns ErrNoRows when the key is absent.
func (s *Store) Get(ctx context.Context, key string) (Record, error) {
	sql := fmt.Sprintf(`SELECT key, codec, payload, num_rows, num_cols, updated_at FROM %s WHERE key = $1`, s.table)
	var r Record
	err := s.readPool().QueryRow(ctx, sql, key).Scan(&r.Key, &r.Codec, &r.Payload, &r.Rows, &r.Cols, &r.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Record{}, ErrNoRows
		}
		return Record{}, fmt.Errorf("l3 get %s: %w", key, err)
	}
	return r, nil
}

// Delete removes a record; deleting a missing key is not an error.
func (s *Store) Delete(ctx context.Context, key string) error {
	sql := fmt.Sprintf(`DELETE FROM %s WHERE key = $1`, s.table)
	if _, err := s.pool.Exec(ctx, sql, key); err != nil {
		return fmt.Errorf("l3 delete %s: %w", key, err)
	}
	return nil
}

// Exists checks if a record exists.
func (s *Store) Exists(ctx context.Context, key string) (bool, error) {
	sql := fmt.Sprintf(`SELECT EXISTS (SELECT 1 FROM %s WHERE key = $1)`, s.table)
	var ok bool
	if err := s.readPool().QueryRow(ctx, sql, key).Scan(&ok); err != nil {
		return false, fmt.Errorf("l3 exists %s: %w", key, err)
	}
	return ok, nil
}

// List returns summaries of records whose key starts with prefix, ordered by
// key. limit <= 0 means no limit.
func (s *Store) List(ctx context.Context, prefix string, limit int) ([]Summary, error) {
	sql := fmt.Sprintf(`SELECT key, codec, num_rows, num_cols, octet_length(payload), updated_at
FROM %s WHERE key LIKE $1 ESCAPE '\' ORDER BY key`, s.table)
	args := []any{likePrefix(prefix)}
	if limit > 0 {
		sql += " LIMIT $2"
		args = append(args, limit)
	}
	rows, err := s.readPool().Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("l3 list: %w", err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Summary, error) {
		var sm Summary
		err := row.Scan(&sm.Key, &sm.Codec, &sm.Rows, &sm.Cols, &sm.Size, &sm.UpdatedAt)
		return sm, err
	})
	if err != nil {
		return nil, fmt.Errorf("l3 list: %w", err)
	}
	return out, nil
}

// Count returns the number of stored records whose key starts with prefix.
func (s *Store) Count(ctx context.Context, prefix string) (int64, error) {
	sql := fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE key LIKE $1 ESCAPE '\'`, s.table)
	var n int64
	if err := s.readPool().QueryRow(ctx, sql, likePrefix(prefix)).Scan(&n); err != nil {
		return 0, fmt.Errorf("l3 count: %w", err)
	}
	return n, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func likePrefix(prefix string) string {
	return likeEscaper.Replace(prefix) + "%"
}

// Pool returns the underlying primary connection pool.
func (s *Store) Pool() *pgxpool.Pool { return s.pool }

// Close shuts down the underlying connection pools.
func (s *Store) Close() {
	s.pool.Close()
	if s.replica != nil {
		s.replica.Close()
	}
}
