package normalize

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/jobscout/internal/jobs"
)

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

func newTestNormalizer() (*Normalizer, time.Time) {
	now := time.Date(2025, 3, 4, 5, 6, 7, 0, time.FixedZone("IST", 19800))
	return New(fixedClock{now: now}), now.UTC()
}

func TestNormalizeNaukriFillsSentinels(t *testing.T) {
	t.Parallel()

	n, now := newTestNormalizer()
	job := n.Normalize(jobs.RawPosting{
		jobs.FieldTitle:   "  Senior\n  Go   Engineer ",
		jobs.FieldCompany: "Acme",
		jobs.FieldURL:     "https://www.naukri.com/job/1",
		jobs.FieldSalary:  "",
	}, "go-developer", jobs.SourceNaukri)

	require.Equal(t, "Senior Go Engineer", job.Title)
	require.Equal(t, "Acme", job.Company)
	require.Equal(t, jobs.NotAvailable, job.Location)
	require.Equal(t, jobs.NotAvailable, job.Experience)
	require.Equal(t, jobs.NotAvailable, job.Salary)
	require.Equal(t, jobs.NotAvailable, job.Description)
	require.Equal(t, "go-developer", job.Keyword)
	require.Equal(t, jobs.SourceNaukri, job.Source)
	require.Equal(t, now, job.ScrapedAt)
	require.Equal(t, time.UTC, job.ScrapedAt.Location())
	require.Empty(t, job.ID)
	require.Nil(t, job.Domain)
}

func TestNormalizeLinkedIn(t *testing.T) {
	t.Parallel()

	n, _ := newTestNormalizer()
	job := n.Normalize(jobs.RawPosting{
		jobs.FieldTitle:    "Data Analyst",
		jobs.FieldLocation: "Bengaluru, Karnataka, India",
		jobs.FieldPosted:   "2 days ago",
	}, "data analyst", jobs.SourceLinkedIn)

	require.Equal(t, "Job posted 2 days ago", job.Description)
	require.Equal(t, jobs.NotAvailable, job.Experience)
	require.Equal(t, jobs.NotAvailable, job.Salary)
	require.Equal(t, jobs.NotAvailable, job.Company)
	require.Equal(t, jobs.NotAvailable, job.URL)

	bare := n.Normalize(jobs.RawPosting{jobs.FieldTitle: "X"}, "k", jobs.SourceLinkedIn)
	require.Equal(t, "Job posted N/A", bare.Description)
}

func TestNormalizeUnstopDefaults(t *testing.T) {
	t.Parallel()

	n, _ := newTestNormalizer()
	job := n.Normalize(jobs.RawPosting{jobs.FieldTitle: "Campus Hiring"}, "sde", jobs.SourceUnstop)
	require.Equal(t, UnstopCompany, job.Company)
	require.Equal(t, UnstopLocation, job.Location)
	require.Equal(t, UnstopNoDeadline, job.Description)
	require.Equal(t, jobs.NotAvailable, job.Salary)

	withDeadline := n.Normalize(jobs.RawPosting{
		jobs.FieldTitle:    "Intern",
		jobs.FieldDeadline: "12 Mar",
		jobs.FieldStipend:  "₹ 20,000",
	}, "sde", jobs.SourceUnstop)
	require.Equal(t, "Deadline: 12 Mar", withDeadline.Description)
	require.Equal(t, "₹ 20,000", withDeadline.Salary)
}

func TestText(t *testing.T) {
	t.Parallel()

	require.Equal(t, "a b c", Text("\ta \n b  c "))
	// "e" followed by a combining acute accent composes to a single rune.
	require.Equal(t, "caf\u00e9", Text("cafe\u0301"))
	require.Empty(t, Text("   "))
}
