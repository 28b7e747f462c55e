// Package postgres provides a Postgres-backed snapshot store.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JakeFAU/hn-dataset-sync/internal/dataset"
	"github.com/JakeFAU/hn-dataset-sync/internal/store"
)

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// undefinedTable is the SQLSTATE for a missing relation.
const undefinedTable = "42P01"

// Config controls the Postgres connection pool used for the snapshot table.
type Config struct {
	DSN      string
	Table    string
	MaxConns int32
}

type pool interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Close()
}

// Store keeps one row per record: (id BIGINT PRIMARY KEY, record JSONB).
type Store struct {
	pool  pool
	table string
	dsn   string
}

// New connects a pool and pings the server.
func New(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("store.postgres.dsn is required")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	p, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := p.Ping(ctx); err != nil {
		p.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	s, err := NewWithPool(p, cfg.Table)
	if err != nil {
		p.Close()
		return nil, err
	}
	s.dsn = fmt.Sprintf("%s/%s", poolCfg.ConnConfig.Host, poolCfg.ConnConfig.Database)
	return s, nil
}

// NewWithPool constructs a store from an existing pool (primarily for testing).
func NewWithPool(p pool, table string) (*Store, error) {
	if p == nil {
		return nil, fmt.Errorf("pool is required")
	}
	if table == "" {
		table = "stories"
	}
	if !validTableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	return &Store{pool: p, table: table}, nil
}

func (s *Store) ident() string {
	return pgx.Identifier{s.table}.Sanitize()
}

// Load reads every row ordered by identifier descending. A missing table
// means no snapshot has been published.
func (s *Store) Load(ctx context.Context) (dataset.Snapshot, error) {
	rows, err := s.pool.Query(ctx, fmt.Sprintf("SELECT record FROM %s ORDER BY id DESC", s.ident()))
	if err != nil {
		return dataset.Snapshot{}, s.queryErr(err)
	}
	defer rows.Close()

	var records []dataset.Record
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return dataset.Snapshot{}, fmt.Errorf("scan %s: %w", s.table, err)
		}
		var rec dataset.Record
		if err := json.Unmarshal(raw, &rec); err != nil {
			return dataset.Snapshot{}, fmt.Errorf("decode %s row: %w", s.table, err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return dataset.Snapshot{}, s.queryErr(err)
	}
	return dataset.Snapshot{Records: records}, nil
}

func (s *Store) queryErr(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == undefinedTable {
		return fmt.Errorf("table %s: %w", s.table, store.ErrNotFound)
	}
	return fmt.Errorf("query %s: %w", s.table, err)
}

// Publish replaces the table contents in a single transaction.
func (s *Store) Publish(ctx context.Context, snap dataset.Snapshot, _ string) error {
	rows := make([][]any, 0, snap.Len())
	for _, rec := range snap.Records {
		data, err := rec.MarshalJSON()
		if err != nil {
			return err
		}
		rows = append(rows, []any{rec.ID, data})
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback(ctx)
		}
	}()

	ident := s.ident()
	create := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	id BIGINT PRIMARY KEY,
	record JSONB NOT NULL,
	synced_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`, ident)
	if _, err := tx.Exec(ctx, create); err != nil {
		return fmt.Errorf("create %s: %w", s.table, err)
	}
	if _, err := tx.Exec(ctx, "TRUNCATE "+ident); err != nil {
		return fmt.Errorf("truncate %s: %w", s.table, err)
	}
	copied, err := tx.CopyFrom(ctx, pgx.Identifier{s.table}, []string{"id", "record"}, pgx.CopyFromRows(rows))
	if err != nil {
		return fmt.Errorf("copy into %s: %w", s.table, err)
	}
	if copied != int64(len(rows)) {
		return fmt.Errorf("copy into %s: wrote %d of %d rows", s.table, copied, len(rows))
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	committed = true
	return nil
}

// URI identifies the table.
func (s *Store) URI() string {
	if s.dsn == "" {
		return fmt.Sprintf("postgres:///%s", s.table)
	}
	return fmt.Sprintf("postgres://%s/%s", strings.TrimSuffix(s.dsn, "/"), s.table)
}

// Close releases the underlying pool resources.
func (s *Store) Close() error {
	if s == nil || s.pool == nil {
		return nil
	}
	s.pool.Close()
	return nil
}
