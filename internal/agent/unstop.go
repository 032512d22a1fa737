package agent

import (
	"fmt"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/JakeFAU/jobscout/internal/jobs"
)

var unstopBase = mustParse("https://unstop.com")

// Unstop listing categories.
const (
	UnstopJobs         = "jobs"
	UnstopInternships  = "internships"
	UnstopCompetitions = "competitions"
)

// Unstop reads unstop.com opportunity listings for one category.
type Unstop struct {
	category string
}

// NewUnstop returns the Unstop site for category; empty means jobs.
func NewUnstop(category string) (Unstop, error) {
	switch category {
	case "":
		return Unstop{category: UnstopJobs}, nil
	case UnstopJobs, UnstopInternships, UnstopCompetitions:
		return Unstop{category: category}, nil
	default:
		return Unstop{}, fmt.Errorf("unknown unstop category %q", category)
	}
}

// Source implements Site.
func (Unstop) Source() jobs.Source { return jobs.SourceUnstop }

// SearchURL implements Site.
func (u Unstop) SearchURL(keyword, _ string) string {
	category := u.category
	if category == "" {
		category = UnstopJobs
	}
	return fmt.Sprintf("%s/%s?search=%s", unstopBase, category, queryEscape(keyword))
}

// CardSelectors lists the card markups seen across Unstop page revisions.
func (Unstop) CardSelectors() []string {
	return []string{"div.opportunity_card", "div.card", "article"}
}

// DefaultTiming implements Site.
func (Unstop) DefaultTiming() Timing {
	return Timing{Settle: 8 * time.Second, ScrollCount: 3, ScrollWait: 2 * time.Second}
}

// Extract implements Site.
func (Unstop) Extract(card *goquery.Selection) (jobs.RawPosting, error) {
	raw := jobs.RawPosting{}
	put(raw, jobs.FieldTitle, firstText(card, "h3", "h2", "h4"))
	put(raw, jobs.FieldCompany, firstText(card, "p.company", "div.organizer", "span.company-name"))
	put(raw, jobs.FieldLocation, firstText(card, "span.location", "div.location"))
	put(raw, jobs.FieldDeadline, firstText(card, "span.deadline", "div.deadline"))
	put(raw, jobs.FieldStipend, firstText(card, "span.stipend", "div.salary"))
	if href, ok := card.Find("a[href]").First().Attr("href"); ok {
		abs, err := resolveHref(unstopBase, href)
		if err != nil {
			return nil, err
		}
		put(raw, jobs.FieldURL, abs)
	}
	return raw, nil
}
