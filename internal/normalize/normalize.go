// Package normalize turns raw card fields into Job records.
package normalize

import (
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/JakeFAU/jobscout/internal/jobs"
)

// Placeholders used when a source's card omits a field.
const (
	UnstopCompany     = "Unstop"
	UnstopLocation    = "Remote/Various"
	UnstopNoDeadline  = "Check Unstop for details"
	linkedInPostedFmt = "Job posted "
	unstopDeadlineFmt = "Deadline: "
)

// Normalizer maps RawPosting values onto the common Job shape.
type Normalizer struct {
	clock jobs.Clock
}

// New returns a Normalizer stamping ScrapedAt from clock.
func New(clock jobs.Clock) *Normalizer {
	return &Normalizer{clock: clock}
}

// Normalize builds a Job from raw. Every text field is cleaned and any
// missing field falls back to its sentinel, so the result never carries an
// empty title, company, location, experience, salary or url.
func (n *Normalizer) Normalize(raw jobs.RawPosting, keyword string, source jobs.Source) jobs.Job {
	job := jobs.Job{
		Title:      field(raw, jobs.FieldTitle, jobs.NotAvailable),
		Company:    field(raw, jobs.FieldCompany, jobs.NotAvailable),
		Location:   field(raw, jobs.FieldLocation, jobs.NotAvailable),
		Experience: jobs.NotAvailable,
		Salary:     jobs.NotAvailable,
		URL:        field(raw, jobs.FieldURL, jobs.NotAvailable),
		Source:     source,
		Keyword:    keyword,
		ScrapedAt:  n.clock.Now().UTC(),
	}

	switch source {
	case jobs.SourceNaukri:
		job.Experience = field(raw, jobs.FieldExperience, jobs.NotAvailable)
		job.Salary = field(raw, jobs.FieldSalary, jobs.NotAvailable)
		job.Description = field(raw, jobs.FieldDescription, jobs.NotAvailable)
	case jobs.SourceLinkedIn:
		job.Description = linkedInPostedFmt + field(raw, jobs.FieldPosted, jobs.NotAvailable)
	case jobs.SourceUnstop:
		job.Company = field(raw, jobs.FieldCompany, UnstopCompany)
		job.Location = field(raw, jobs.FieldLocation, UnstopLocation)
		job.Salary = field(raw, jobs.FieldStipend, jobs.NotAvailable)
		job.Description = UnstopNoDeadline
		if deadline, ok := clean(raw, jobs.FieldDeadline); ok {
			job.Description = unstopDeadlineFmt + deadline
		}
	default:
		job.Description = field(raw, jobs.FieldDescription, "")
	}
	return job
}

// Text collapses internal whitespace and applies NFC normalization.
func Text(s string) string {
	return strings.Join(strings.Fields(norm.NFC.String(s)), " ")
}

func clean(raw jobs.RawPosting, f jobs.Field) (string, bool) {
	v, ok := raw.Get(f)
	if !ok {
		return "", false
	}
	v = Text(v)
	return v, v != ""
}

func field(raw jobs.RawPosting, f jobs.Field, fallback string) string {
	if v, ok := clean(raw, f); ok {
		return v
	}
	return fallback
}
