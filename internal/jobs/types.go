package jobs

import (
	"strings"
	"time"
)

// NotAvailable is the sentinel stored for any field a card did not carry.
const NotAvailable = "N/A"

// Source identifies one of the supported job boards.
type Source string

// Supported sources.
const (
	SourceNaukri   Source = "naukri"
	SourceLinkedIn Source = "linkedin"
	SourceUnstop   Source = "unstop"
)

// Catalog is the full set of sources in canonical order.
var Catalog = []Source{SourceNaukri, SourceLinkedIn, SourceUnstop}

var sourceLabels = map[Source]string{
	SourceNaukri:   "Naukri",
	SourceLinkedIn: "LinkedIn",
	SourceUnstop:   "Unstop",
}

// Label returns the display name of the source.
func (s Source) Label() string {
	if label, ok := sourceLabels[s]; ok {
		return label
	}
	return string(s)
}

// ParseSource resolves an identifier or display label, case-insensitively.
func ParseSource(name string) (Source, bool) {
	candidate := Source(strings.ToLower(strings.TrimSpace(name)))
	if _, ok := sourceLabels[candidate]; ok {
		return candidate, true
	}
	return "", false
}

// Field names a value extracted from a posting card.
type Field string

// Fields a card may carry. Which ones a source emits is listed in SourceFields.
const (
	FieldTitle       Field = "title"
	FieldURL         Field = "url"
	FieldCompany     Field = "company"
	FieldLocation    Field = "location"
	FieldExperience  Field = "experience"
	FieldSalary      Field = "salary"
	FieldDescription Field = "description"
	FieldPosted      Field = "posted"
	FieldDeadline    Field = "deadline"
	FieldStipend     Field = "stipend"
)

// SourceFields documents the optional field set each source may emit.
var SourceFields = map[Source][]Field{
	SourceNaukri: {
		FieldTitle, FieldURL, FieldCompany, FieldLocation,
		FieldExperience, FieldSalary, FieldDescription,
	},
	SourceLinkedIn: {FieldTitle, FieldURL, FieldCompany, FieldLocation, FieldPosted},
	SourceUnstop:   {FieldTitle, FieldURL, FieldCompany, FieldLocation, FieldDeadline, FieldStipend},
}

// RawPosting holds the fields scraped from a single card, before normalization.
// A missing key means the card did not carry that field.
type RawPosting map[Field]string

// Get returns the trimmed value of a field and whether it was present and non-empty.
func (r RawPosting) Get(f Field) (string, bool) {
	v, ok := r[f]
	if !ok {
		return "", false
	}
	v = strings.TrimSpace(v)
	return v, v != ""
}

// SearchRequest is the input to a single agent run.
type SearchRequest struct {
	Keyword    string
	Location   string
	MaxResults int
}

// Job is the normalized, source-independent posting record.
type Job struct {
	ID          string    `json:"id,omitempty"`
	Title       string    `json:"title"`
	Company     string    `json:"company"`
	Location    string    `json:"location"`
	Experience  string    `json:"experience"`
	Salary      string    `json:"salary"`
	Description string    `json:"description"`
	URL         string    `json:"url"`
	Source      Source    `json:"source"`
	Keyword     string    `json:"keyword"`
	ScrapedAt   time.Time `json:"scraped_at"`
	Domain      *string   `json:"domain,omitempty"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
}

// SearchFilter narrows a gateway search. Zero values mean "no filter".
type SearchFilter struct {
	Keyword  string
	Location string
	Domain   string
	Source   Source
	Limit    int
}

// Stats summarizes the active rows held by a gateway.
type Stats struct {
	TotalJobs    int            `json:"total_jobs"`
	JobsBySource map[Source]int `json:"jobs_by_source"`
}

// SweepTask is a detached background sweep waiting on the queue.
type SweepTask struct {
	ID           string
	Keywords     []string
	MaxPerSource int
	Submitted    time.Time
}
