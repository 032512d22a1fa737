package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/jobscout/internal/jobs"
)

type fixedIDs struct{}

func (fixedIDs) NewID() (string, error) { return "job-1", nil }

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

var now = time.Date(2024, 4, 10, 9, 0, 0, 0, time.UTC)

func newMockGateway(t *testing.T) (*Gateway, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)

	gw, err := NewWithPool(mock, "jobs", fixedIDs{}, fixedClock{t: now})
	require.NoError(t, err)
	return gw, mock
}

func jobRows(mock pgxmock.PgxPoolIface) *pgxmock.Rows {
	domain := "tech"
	return mock.NewRows(columns).
		AddRow("job-1", "Go Developer", "Acme", "Pune", "2-5 Yrs", "N/A", "Build services",
			"https://example.com/1", "naukri", "golang", now, &domain, true, now)
}

func TestNewWithPoolValidatesTable(t *testing.T) {
	t.Parallel()

	_, err := NewWithPool(nil, "jobs", fixedIDs{}, fixedClock{})
	require.Error(t, err)

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	_, err = NewWithPool(mock, "jobs; DROP TABLE users", fixedIDs{}, fixedClock{})
	require.ErrorContains(t, err, "invalid table name")

	gw, err := NewWithPool(mock, "", fixedIDs{}, fixedClock{})
	require.NoError(t, err)
	require.Equal(t, "jobs", gw.table)
}

func TestNewRequiresDSN(t *testing.T) {
	t.Parallel()

	_, err := New(context.Background(), Config{}, fixedIDs{}, fixedClock{})
	require.ErrorContains(t, err, "db.dsn")
}

func TestMigrate(t *testing.T) {
	t.Parallel()

	gw, mock := newMockGateway(t)
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS jobs").WillReturnResult(pgxmock.NewResult("CREATE", 0))

	require.NoError(t, gw.Migrate(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestBulkInsertCopiesRows(t *testing.T) {
	t.Parallel()

	gw, mock := newMockGateway(t)
	mock.ExpectCopyFrom(pgx.Identifier{"jobs"}, columns).WillReturnResult(1)

	n, err := gw.BulkInsert(context.Background(), []jobs.Job{{Title: "Go Developer", Source: jobs.SourceNaukri}})
	require.NoError(t, err)
	require.Equal(t, 1, n)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestBulkInsertEmptyBatch(t *testing.T) {
	t.Parallel()

	gw, mock := newMockGateway(t)
	n, err := gw.BulkInsert(context.Background(), nil)
	require.NoError(t, err)
	require.Zero(t, n)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestBulkInsertWrapsErrors(t *testing.T) {
	t.Parallel()

	gw, mock := newMockGateway(t)
	boom := errors.New("connection reset")
	mock.ExpectCopyFrom(pgx.Identifier{"jobs"}, columns).WillReturnError(boom)

	_, err := gw.BulkInsert(context.Background(), []jobs.Job{{Title: "x"}})
	var perr *jobs.PersistenceError
	require.ErrorAs(t, err, &perr)
	require.Equal(t, "bulk insert", perr.Op)
	require.ErrorIs(t, err, boom)
}

func TestSearchBuildsFilter(t *testing.T) {
	t.Parallel()

	gw, mock := newMockGateway(t)
	mock.ExpectQuery(`SELECT .* FROM jobs WHERE is_active = TRUE AND \(title ILIKE \$1 OR description ILIKE \$1\) AND location ILIKE \$2 AND domain = \$3 AND source = \$4 ORDER BY created_at DESC LIMIT \$5`).
		WithArgs("%go%", "%pune%", "tech", "naukri", 50).
		WillReturnRows(jobRows(mock))

	got, err := gw.Search(context.Background(), jobs.SearchFilter{
		Keyword:  "go",
		Location: "pune",
		Domain:   "tech",
		Source:   jobs.SourceNaukri,
	})
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, "Go Developer", got[0].Title)
	require.Equal(t, jobs.SourceNaukri, got[0].Source)
	require.Equal(t, "tech", *got[0].Domain)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestBuildSearchWithoutFilters(t *testing.T) {
	t.Parallel()

	query, args := buildSearch("jobs", jobs.SearchFilter{Limit: 5})
	require.Contains(t, query, "WHERE is_active = TRUE ORDER BY created_at DESC LIMIT $1")
	require.Equal(t, []any{5}, args)
}

func TestListRecentDefaultsLimit(t *testing.T) {
	t.Parallel()

	gw, mock := newMockGateway(t)
	mock.ExpectQuery(`SELECT .* FROM jobs WHERE is_active = TRUE ORDER BY created_at DESC LIMIT \$1`).
		WithArgs(20).
		WillReturnRows(jobRows(mock))

	got, err := gw.ListRecent(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCountBySource(t *testing.T) {
	t.Parallel()

	gw, mock := newMockGateway(t)
	mock.ExpectQuery(`SELECT source, COUNT\(\*\) FROM jobs WHERE is_active = TRUE GROUP BY source`).
		WillReturnRows(mock.NewRows([]string{"source", "count"}).
			AddRow("naukri", int64(3)).
			AddRow("unstop", int64(1)))

	counts, err := gw.CountBySource(context.Background())
	require.NoError(t, err)
	require.Equal(t, map[jobs.Source]int{jobs.SourceNaukri: 3, jobs.SourceUnstop: 1}, counts)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDeactivateOlderThan(t *testing.T) {
	t.Parallel()

	gw, mock := newMockGateway(t)
	mock.ExpectExec(`UPDATE jobs SET is_active = FALSE WHERE is_active = TRUE AND created_at < \$1`).
		WithArgs(now.Add(-30 * 24 * time.Hour)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 7))

	n, err := gw.DeactivateOlderThan(context.Background(), 30)
	require.NoError(t, err)
	require.Equal(t, int64(7), n)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetByID(t *testing.T) {
	t.Parallel()

	gw, mock := newMockGateway(t)
	mock.ExpectQuery(`SELECT .* FROM jobs WHERE id = \$1`).
		WithArgs("job-1").
		WillReturnRows(jobRows(mock))
	mock.ExpectQuery(`SELECT .* FROM jobs WHERE id = \$1`).
		WithArgs("missing").
		WillReturnError(pgx.ErrNoRows)

	job, err := gw.GetByID(context.Background(), "job-1")
	require.NoError(t, err)
	require.Equal(t, "Acme", job.Company)

	_, err = gw.GetByID(context.Background(), "missing")
	require.ErrorIs(t, err, jobs.ErrJobNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}
