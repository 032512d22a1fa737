// Package memory provides an in-process jobs.Gateway for development and tests.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/JakeFAU/jobscout/internal/jobs"
	"github.com/JakeFAU/jobscout/internal/store"
)

// Gateway keeps jobs in memory. Reads return copies.
type Gateway struct {
	mu    sync.RWMutex
	rows  []jobs.Job
	byID  map[string]int
	ids   jobs.IDGenerator
	clock jobs.Clock
}

// New constructs an empty Gateway.
func New(ids jobs.IDGenerator, clock jobs.Clock) *Gateway {
	return &Gateway{
		byID:  make(map[string]int),
		ids:   ids,
		clock: clock,
	}
}

// BulkInsert stores batch after applying defaults.
func (g *Gateway) BulkInsert(_ context.Context, batch []jobs.Job) (int, error) {
	if len(batch) == 0 {
		return 0, nil
	}
	prepared, err := store.Prepare(batch, g.ids, g.clock.Now().UTC())
	if err != nil {
		return 0, &jobs.PersistenceError{Op: "bulk insert", Err: err}
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, job := range prepared {
		if _, dup := g.byID[job.ID]; dup {
			return 0, &jobs.PersistenceError{Op: "bulk insert", Err: fmt.Errorf("duplicate id %q", job.ID)}
		}
	}
	for _, job := range prepared {
		g.byID[job.ID] = len(g.rows)
		g.rows = append(g.rows, job)
	}
	return len(prepared), nil
}

// Search implements jobs.Gateway.
func (g *Gateway) Search(_ context.Context, filter jobs.SearchFilter) ([]jobs.Job, error) {
	return g.newest(store.SearchLimit(filter.Limit), func(j jobs.Job) bool {
		return store.Matches(j, filter)
	}), nil
}

// ListRecent implements jobs.Gateway.
func (g *Gateway) ListRecent(_ context.Context, limit int) ([]jobs.Job, error) {
	return g.newest(store.RecentLimit(limit), func(j jobs.Job) bool { return j.IsActive }), nil
}

// CountBySource implements jobs.Gateway.
func (g *Gateway) CountBySource(context.Context) (map[jobs.Source]int, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	counts := map[jobs.Source]int{}
	for _, job := range g.rows {
		if job.IsActive {
			counts[job.Source]++
		}
	}
	return counts, nil
}

// DeactivateOlderThan implements jobs.Gateway.
func (g *Gateway) DeactivateOlderThan(_ context.Context, days int) (int64, error) {
	cutoff := store.Cutoff(g.clock.Now().UTC(), days)
	g.mu.Lock()
	defer g.mu.Unlock()
	var n int64
	for i := range g.rows {
		if g.rows[i].IsActive && g.rows[i].CreatedAt.Before(cutoff) {
			g.rows[i].IsActive = false
			n++
		}
	}
	return n, nil
}

// GetByID implements jobs.Gateway.
func (g *Gateway) GetByID(_ context.Context, id string) (jobs.Job, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	idx, ok := g.byID[id]
	if !ok {
		return jobs.Job{}, jobs.ErrJobNotFound
	}
	return copyJob(g.rows[idx]), nil
}

// Close implements jobs.Gateway.
func (g *Gateway) Close() error {
	return nil
}

func (g *Gateway) newest(limit int, keep func(jobs.Job) bool) []jobs.Job {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]jobs.Job, 0, min(limit, len(g.rows)))
	for _, job := range g.rows {
		if keep(job) {
			out = append(out, copyJob(job))
		}
	}
	// Stable keeps insertion order among rows sharing a timestamp, newest batch first.
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

func copyJob(job jobs.Job) jobs.Job {
	if job.Domain != nil {
		d := *job.Domain
		job.Domain = &d
	}
	return job
}
