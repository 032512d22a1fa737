package store

import (
	"context"
	"fmt"

	"github.com/JakeFAU/jobscout/internal/jobs"
)

// Unavailable stands in for a gateway whose backend could not be configured.
// Every call fails fast with an error wrapping jobs.ErrGatewayUnavailable.
type Unavailable struct {
	// Missing names the setting that was not provided, e.g. "db.dsn".
	Missing string
}

// NewUnavailable returns an Unavailable gateway naming the missing setting.
func NewUnavailable(missing string) *Unavailable {
	return &Unavailable{Missing: missing}
}

func (u *Unavailable) fail(op string) error {
	return &jobs.PersistenceError{
		Op:  op,
		Err: fmt.Errorf("%w: %s is not set", jobs.ErrGatewayUnavailable, u.Missing),
	}
}

// BulkInsert implements jobs.Gateway.
func (u *Unavailable) BulkInsert(context.Context, []jobs.Job) (int, error) {
	return 0, u.fail("bulk insert")
}

// Search implements jobs.Gateway.
func (u *Unavailable) Search(context.Context, jobs.SearchFilter) ([]jobs.Job, error) {
	return nil, u.fail("search")
}

// ListRecent implements jobs.Gateway.
func (u *Unavailable) ListRecent(context.Context, int) ([]jobs.Job, error) {
	return nil, u.fail("list recent")
}

// CountBySource implements jobs.Gateway.
func (u *Unavailable) CountBySource(context.Context) (map[jobs.Source]int, error) {
	return nil, u.fail("count by source")
}

// DeactivateOlderThan implements jobs.Gateway.
func (u *Unavailable) DeactivateOlderThan(context.Context, int) (int64, error) {
	return 0, u.fail("deactivate")
}

// GetByID implements jobs.Gateway.
func (u *Unavailable) GetByID(context.Context, string) (jobs.Job, error) {
	return jobs.Job{}, u.fail("get by id")
}

// Close implements jobs.Gateway.
func (u *Unavailable) Close() error {
	return nil
}

// Stats wraps CountBySource with a total.
func Stats(ctx context.Context, gw jobs.Gateway) (jobs.Stats, error) {
	counts, err := gw.CountBySource(ctx)
	if err != nil {
		return jobs.Stats{}, err
	}
	stats := jobs.Stats{JobsBySource: counts}
	if stats.JobsBySource == nil {
		stats.JobsBySource = map[jobs.Source]int{}
	}
	for _, n := range counts {
		stats.TotalJobs += n
	}
	return stats, nil
}
