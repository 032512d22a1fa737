package store

import (
	"fmt"
	"strings"
	"time"

	"github.com/JakeFAU/jobscout/internal/jobs"
)

// UnknownSource is stored for jobs that arrive without a source.
const UnknownSource jobs.Source = "unknown"

// Default result sizes.
const (
	DefaultSearchLimit = 50
	DefaultRecentLimit = 20
)

// Prepare fills defaults on a copy of batch before insertion: empty text
// fields become N/A, a missing source becomes unknown, every row is active
// and gets an id and a created_at stamp.
func Prepare(batch []jobs.Job, ids jobs.IDGenerator, now time.Time) ([]jobs.Job, error) {
	out := make([]jobs.Job, len(batch))
	for i, job := range batch {
		job.Title = orNA(job.Title)
		job.Company = orNA(job.Company)
		job.Location = orNA(job.Location)
		job.Experience = orNA(job.Experience)
		job.Salary = orNA(job.Salary)
		job.Description = orNA(job.Description)
		job.URL = orNA(job.URL)
		if strings.TrimSpace(string(job.Source)) == "" {
			job.Source = UnknownSource
		}
		if job.ID == "" {
			id, err := ids.NewID()
			if err != nil {
				return nil, fmt.Errorf("assign id: %w", err)
			}
			job.ID = id
		}
		if job.ScrapedAt.IsZero() {
			job.ScrapedAt = now
		}
		job.IsActive = true
		job.CreatedAt = now
		out[i] = job
	}
	return out, nil
}

// SearchLimit applies the default search limit.
func SearchLimit(limit int) int {
	if limit <= 0 {
		return DefaultSearchLimit
	}
	return limit
}

// RecentLimit applies the default recent-list limit.
func RecentLimit(limit int) int {
	if limit <= 0 {
		return DefaultRecentLimit
	}
	return limit
}

// Cutoff returns the created_at bound below which rows are pruned.
func Cutoff(now time.Time, days int) time.Time {
	return now.Add(-time.Duration(days) * 24 * time.Hour)
}

// Matches reports whether job satisfies filter, with the same semantics the
// SQL backends apply: active only, case-insensitive substring on keyword
// (title or description) and location, exact domain and source.
func Matches(job jobs.Job, filter jobs.SearchFilter) bool {
	if !job.IsActive {
		return false
	}
	if kw := strings.ToLower(filter.Keyword); kw != "" {
		if !strings.Contains(strings.ToLower(job.Title), kw) &&
			!strings.Contains(strings.ToLower(job.Description), kw) {
			return false
		}
	}
	if loc := strings.ToLower(filter.Location); loc != "" &&
		!strings.Contains(strings.ToLower(job.Location), loc) {
		return false
	}
	if filter.Domain != "" && (job.Domain == nil || *job.Domain != filter.Domain) {
		return false
	}
	if filter.Source != "" && job.Source != filter.Source {
		return false
	}
	return true
}

// LikePattern wraps s for a substring LIKE match, escaping wildcards with '\'.
func LikePattern(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(s) + "%"
}

func orNA(s string) string {
	if strings.TrimSpace(s) == "" {
		return jobs.NotAvailable
	}
	return s
}
