// Package postgres implements jobs.Gateway on Postgres through pgx.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JakeFAU/jobscout/internal/jobs"
	"github.com/JakeFAU/jobscout/internal/store"
)

const defaultTable = "jobs"

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

var columns = []string{
	"id", "title", "company", "location", "experience", "salary", "description",
	"url", "source", "keyword", "scraped_at", "domain", "is_active", "created_at",
}

var selectList = strings.Join(columns, ", ")

// Config controls the connection pool.
type Config struct {
	DSN             string
	Table           string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

type pgxIface interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	CopyFrom(ctx context.Context, table pgx.Identifier, columns []string, src pgx.CopyFromSource) (int64, error)
	Close()
}

// Gateway stores jobs in a single Postgres table.
type Gateway struct {
	pool  pgxIface
	table string
	ids   jobs.IDGenerator
	clock jobs.Clock
}

// New connects a pool and makes sure the table exists.
func New(ctx context.Context, cfg Config, ids jobs.IDGenerator, clock jobs.Clock) (*Gateway, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("db.dsn is required")
	}
	table, err := tableName(cfg.Table)
	if err != nil {
		return nil, err
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	g := &Gateway{pool: pool, table: table, ids: ids, clock: clock}
	if err := g.Migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return g, nil
}

// NewWithPool constructs a gateway from an existing pool (primarily for testing).
func NewWithPool(pool pgxIface, table string, ids jobs.IDGenerator, clock jobs.Clock) (*Gateway, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	name, err := tableName(table)
	if err != nil {
		return nil, err
	}
	return &Gateway{pool: pool, table: name, ids: ids, clock: clock}, nil
}

func tableName(table string) (string, error) {
	if table == "" {
		table = defaultTable
	}
	if !validTableName.MatchString(table) {
		return "", fmt.Errorf("invalid table name %q", table)
	}
	return table, nil
}

// Migrate creates the jobs table and its indexes if they are missing.
func (g *Gateway) Migrate(ctx context.Context) error {
	ddl := fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %[1]s (
	id          TEXT PRIMARY KEY,
	title       TEXT NOT NULL,
	company     TEXT NOT NULL,
	location    TEXT NOT NULL,
	experience  TEXT NOT NULL,
	salary      TEXT NOT NULL,
	description TEXT NOT NULL,
	url         TEXT NOT NULL,
	source      TEXT NOT NULL,
	keyword     TEXT NOT NULL,
	scraped_at  TIMESTAMPTZ NOT NULL,
	domain      TEXT,
	is_active   BOOLEAN NOT NULL DEFAULT TRUE,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS %[1]s_active_created_idx ON %[1]s (is_active, created_at DESC);
CREATE INDEX IF NOT EXISTS %[1]s_source_idx ON %[1]s (source);`, g.table)
	if _, err := g.pool.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("migrate %s: %w", g.table, err)
	}
	return nil
}

// BulkInsert copies batch into the table in one round trip.
func (g *Gateway) BulkInsert(ctx context.Context, batch []jobs.Job) (int, error) {
	if len(batch) == 0 {
		return 0, nil
	}
	prepared, err := store.Prepare(batch, g.ids, g.clock.Now().UTC())
	if err != nil {
		return 0, &jobs.PersistenceError{Op: "bulk insert", Err: err}
	}
	rows := make([][]any, len(prepared))
	for i, j := range prepared {
		rows[i] = []any{
			j.ID, j.Title, j.Company, j.Location, j.Experience, j.Salary, j.Description,
			j.URL, string(j.Source), j.Keyword, j.ScrapedAt, j.Domain, j.IsActive, j.CreatedAt,
		}
	}
	n, err := g.pool.CopyFrom(ctx, pgx.Identifier{g.table}, columns, pgx.CopyFromRows(rows))
	if err != nil {
		return 0, &jobs.PersistenceError{Op: "bulk insert", Err: err}
	}
	return int(n), nil
}

// Search implements jobs.Gateway.
func (g *Gateway) Search(ctx context.Context, filter jobs.SearchFilter) ([]jobs.Job, error) {
	query, args := buildSearch(g.table, filter)
	return g.list(ctx, "search", query, args...)
}

func buildSearch(table string, filter jobs.SearchFilter) (string, []any) {
	conds := []string{"is_active = TRUE"}
	var args []any
	next := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if filter.Keyword != "" {
		p := next(store.LikePattern(filter.Keyword))
		conds = append(conds, fmt.Sprintf("(title ILIKE %[1]s OR description ILIKE %[1]s)", p))
	}
	if filter.Location != "" {
		conds = append(conds, "location ILIKE "+next(store.LikePattern(filter.Location)))
	}
	if filter.Domain != "" {
		conds = append(conds, "domain = "+next(filter.Domain))
	}
	if filter.Source != "" {
		conds = append(conds, "source = "+next(string(filter.Source)))
	}
	limit := next(store.SearchLimit(filter.Limit))
	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s ORDER BY created_at DESC LIMIT %s",
		selectList, table, strings.Join(conds, " AND "), limit)
	return query, args
}

// ListRecent implements jobs.Gateway.
func (g *Gateway) ListRecent(ctx context.Context, limit int) ([]jobs.Job, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE is_active = TRUE ORDER BY created_at DESC LIMIT $1",
		selectList, g.table)
	return g.list(ctx, "list recent", query, store.RecentLimit(limit))
}

// CountBySource implements jobs.Gateway.
func (g *Gateway) CountBySource(ctx context.Context) (map[jobs.Source]int, error) {
	query := fmt.Sprintf("SELECT source, COUNT(*) FROM %s WHERE is_active = TRUE GROUP BY source", g.table)
	rows, err := g.pool.Query(ctx, query)
	if err != nil {
		return nil, &jobs.PersistenceError{Op: "count by source", Err: err}
	}
	defer rows.Close()

	counts := map[jobs.Source]int{}
	for rows.Next() {
		var (
			source string
			n      int64
		)
		if err := rows.Scan(&source, &n); err != nil {
			return nil, &jobs.PersistenceError{Op: "count by source", Err: err}
		}
		counts[jobs.Source(source)] = int(n)
	}
	if err := rows.Err(); err != nil {
		return nil, &jobs.PersistenceError{Op: "count by source", Err: err}
	}
	return counts, nil
}

// DeactivateOlderThan implements jobs.Gateway.
func (g *Gateway) DeactivateOlderThan(ctx context.Context, days int) (int64, error) {
	query := fmt.Sprintf("UPDATE %s SET is_active = FALSE WHERE is_active = TRUE AND created_at < $1", g.table)
	tag, err := g.pool.Exec(ctx, query, store.Cutoff(g.clock.Now().UTC(), days))
	if err != nil {
		return 0, &jobs.PersistenceError{Op: "deactivate", Err: err}
	}
	return tag.RowsAffected(), nil
}

// GetByID implements jobs.Gateway.
func (g *Gateway) GetByID(ctx context.Context, id string) (jobs.Job, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE id = $1", selectList, g.table)
	job, err := scanJob(g.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return jobs.Job{}, jobs.ErrJobNotFound
	}
	if err != nil {
		return jobs.Job{}, &jobs.PersistenceError{Op: "get by id", Err: err}
	}
	return job, nil
}

// Close releases the pool.
func (g *Gateway) Close() error {
	if g == nil || g.pool == nil {
		return nil
	}
	g.pool.Close()
	return nil
}

func (g *Gateway) list(ctx context.Context, op, query string, args ...any) ([]jobs.Job, error) {
	rows, err := g.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, &jobs.PersistenceError{Op: op, Err: err}
	}
	defer rows.Close()

	out := []jobs.Job{}
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, &jobs.PersistenceError{Op: op, Err: err}
		}
		out = append(out, job)
	}
	if err := rows.Err(); err != nil {
		return nil, &jobs.PersistenceError{Op: op, Err: err}
	}
	return out, nil
}

func scanJob(row pgx.Row) (jobs.Job, error) {
	var (
		j      jobs.Job
		source string
	)
	err := row.Scan(
		&j.ID, &j.Title, &j.Company, &j.Location, &j.Experience, &j.Salary, &j.Description,
		&j.URL, &source, &j.Keyword, &j.ScrapedAt, &j.Domain, &j.IsActive, &j.CreatedAt,
	)
	if err != nil {
		return jobs.Job{}, err
	}
	j.Source = jobs.Source(source)
	return j, nil
}
