// Package sqlite implements jobs.Gateway on an embedded SQLite database
// using the pure-Go modernc driver.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"github.com/JakeFAU/jobscout/internal/jobs"
	"github.com/JakeFAU/jobscout/internal/store"
)

const (
	defaultTable = "jobs"
	memoryPath   = ":memory:"
)

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

const selectList = "id, title, company, location, experience, salary, description, " +
	"url, source, keyword, scraped_at, domain, is_active, created_at"

// Config selects the database file. ":memory:" keeps everything in process.
type Config struct {
	Path  string
	Table string
}

// Gateway stores jobs in one SQLite table. Timestamps are unix nanoseconds.
type Gateway struct {
	db    *sql.DB
	table string
	ids   jobs.IDGenerator
	clock jobs.Clock
}

// Open opens (or creates) the database and its schema.
func Open(ctx context.Context, cfg Config, ids jobs.IDGenerator, clock jobs.Clock) (*Gateway, error) {
	if strings.TrimSpace(cfg.Path) == "" {
		return nil, fmt.Errorf("db.dsn is required")
	}
	table := cfg.Table
	if table == "" {
		table = defaultTable
	}
	if !validTableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}

	dsn := cfg.Path
	if dsn != memoryPath {
		dsn = fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)", cfg.Path)
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// One connection: a single writer, and an in-memory database lives only as
	// long as its connection.
	db.SetMaxOpenConns(1)

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	g := &Gateway{db: db, table: table, ids: ids, clock: clock}
	if err := g.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return g, nil
}

func (g *Gateway) migrate(ctx context.Context) error {
	stmts := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
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
	scraped_at  INTEGER NOT NULL,
	domain      TEXT,
	is_active   INTEGER NOT NULL DEFAULT 1,
	created_at  INTEGER NOT NULL
)`, g.table),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %[1]s_active_created_idx ON %[1]s (is_active, created_at)`, g.table),
	}
	for _, stmt := range stmts {
		if _, err := g.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate %s: %w", g.table, err)
		}
	}
	return nil
}

// BulkInsert writes batch in one transaction through a prepared statement.
func (g *Gateway) BulkInsert(ctx context.Context, batch []jobs.Job) (n int, err error) {
	if len(batch) == 0 {
		return 0, nil
	}
	prepared, err := store.Prepare(batch, g.ids, g.clock.Now().UTC())
	if err != nil {
		return 0, &jobs.PersistenceError{Op: "bulk insert", Err: err}
	}

	tx, err := g.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, &jobs.PersistenceError{Op: "bulk insert", Err: err}
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)", g.table, selectList))
	if err != nil {
		return 0, &jobs.PersistenceError{Op: "bulk insert", Err: err}
	}
	defer stmt.Close()

	for _, j := range prepared {
		if _, err = stmt.ExecContext(ctx,
			j.ID, j.Title, j.Company, j.Location, j.Experience, j.Salary, j.Description,
			j.URL, string(j.Source), j.Keyword, j.ScrapedAt.UnixNano(), j.Domain, j.IsActive, j.CreatedAt.UnixNano(),
		); err != nil {
			return 0, &jobs.PersistenceError{Op: "bulk insert", Err: err}
		}
	}
	if err = tx.Commit(); err != nil {
		return 0, &jobs.PersistenceError{Op: "bulk insert", Err: err}
	}
	return len(prepared), nil
}

// Search implements jobs.Gateway.
func (g *Gateway) Search(ctx context.Context, filter jobs.SearchFilter) ([]jobs.Job, error) {
	conds := []string{"is_active = 1"}
	var args []any
	if filter.Keyword != "" {
		p := store.LikePattern(filter.Keyword)
		conds = append(conds, `(title LIKE ? ESCAPE '\' OR description LIKE ? ESCAPE '\')`)
		args = append(args, p, p)
	}
	if filter.Location != "" {
		conds = append(conds, `location LIKE ? ESCAPE '\'`)
		args = append(args, store.LikePattern(filter.Location))
	}
	if filter.Domain != "" {
		conds = append(conds, "domain = ?")
		args = append(args, filter.Domain)
	}
	if filter.Source != "" {
		conds = append(conds, "source = ?")
		args = append(args, string(filter.Source))
	}
	args = append(args, store.SearchLimit(filter.Limit))
	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s ORDER BY created_at DESC, rowid ASC LIMIT ?",
		selectList, g.table, strings.Join(conds, " AND "))
	return g.list(ctx, "search", query, args...)
}

// ListRecent implements jobs.Gateway.
func (g *Gateway) ListRecent(ctx context.Context, limit int) ([]jobs.Job, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE is_active = 1 ORDER BY created_at DESC, rowid ASC LIMIT ?",
		selectList, g.table)
	return g.list(ctx, "list recent", query, store.RecentLimit(limit))
}

// CountBySource implements jobs.Gateway.
func (g *Gateway) CountBySource(ctx context.Context) (map[jobs.Source]int, error) {
	rows, err := g.db.QueryContext(ctx,
		fmt.Sprintf("SELECT source, COUNT(*) FROM %s WHERE is_active = 1 GROUP BY source", g.table))
	if err != nil {
		return nil, &jobs.PersistenceError{Op: "count by source", Err: err}
	}
	defer rows.Close()

	counts := map[jobs.Source]int{}
	for rows.Next() {
		var (
			source string
			n      int
		)
		if err := rows.Scan(&source, &n); err != nil {
			return nil, &jobs.PersistenceError{Op: "count by source", Err: err}
		}
		counts[jobs.Source(source)] = n
	}
	if err := rows.Err(); err != nil {
		return nil, &jobs.PersistenceError{Op: "count by source", Err: err}
	}
	return counts, nil
}

// DeactivateOlderThan implements jobs.Gateway.
func (g *Gateway) DeactivateOlderThan(ctx context.Context, days int) (int64, error) {
	cutoff := store.Cutoff(g.clock.Now().UTC(), days)
	res, err := g.db.ExecContext(ctx,
		fmt.Sprintf("UPDATE %s SET is_active = 0 WHERE is_active = 1 AND created_at < ?", g.table),
		cutoff.UnixNano())
	if err != nil {
		return 0, &jobs.PersistenceError{Op: "deactivate", Err: err}
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, &jobs.PersistenceError{Op: "deactivate", Err: err}
	}
	return n, nil
}

// GetByID implements jobs.Gateway.
func (g *Gateway) GetByID(ctx context.Context, id string) (jobs.Job, error) {
	row := g.db.QueryRowContext(ctx, fmt.Sprintf("SELECT %s FROM %s WHERE id = ?", selectList, g.table), id)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return jobs.Job{}, jobs.ErrJobNotFound
	}
	if err != nil {
		return jobs.Job{}, &jobs.PersistenceError{Op: "get by id", Err: err}
	}
	return job, nil
}

// Close closes the database.
func (g *Gateway) Close() error {
	if err := g.db.Close(); err != nil {
		return fmt.Errorf("close sqlite: %w", err)
	}
	return nil
}

func (g *Gateway) list(ctx context.Context, op, query string, args ...any) ([]jobs.Job, error) {
	rows, err := g.db.QueryContext(ctx, query, args...)
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

type scanner interface {
	Scan(dest ...any) error
}

func scanJob(row scanner) (jobs.Job, error) {
	var (
		j                  jobs.Job
		source             string
		scraped, createdAt int64
	)
	err := row.Scan(
		&j.ID, &j.Title, &j.Company, &j.Location, &j.Experience, &j.Salary, &j.Description,
		&j.URL, &source, &j.Keyword, &scraped, &j.Domain, &j.IsActive, &createdAt,
	)
	if err != nil {
		return jobs.Job{}, err
	}
	j.Source = jobs.Source(source)
	j.ScrapedAt = time.Unix(0, scraped).UTC()
	j.CreatedAt = time.Unix(0, createdAt).UTC()
	return j, nil
}
