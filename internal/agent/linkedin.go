package agent

import (
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/JakeFAU/jobscout/internal/jobs"
)

var linkedInBase = mustParse("https://www.linkedin.com")

// LinkedIn reads the public guest job search, limited to the last 24 hours.
type LinkedIn struct{}

// Source implements Site.
func (LinkedIn) Source() jobs.Source { return jobs.SourceLinkedIn }

// SearchURL implements Site. The location parameter is dropped when empty.
func (LinkedIn) SearchURL(keyword, location string) string {
	u := linkedInBase.String() + "/jobs/search?keywords=" + queryEscape(keyword)
	if loc := queryEscape(location); loc != "" {
		u += "&location=" + loc
	}
	return u + "&f_TPR=r86400"
}

// CardSelectors implements Site.
func (LinkedIn) CardSelectors() []string {
	return []string{"div.base-card"}
}

// DefaultTiming scrolls three times to trigger the lazy result loader.
func (LinkedIn) DefaultTiming() Timing {
	return Timing{Settle: 5 * time.Second, ScrollCount: 3, ScrollWait: 2 * time.Second}
}

// Extract implements Site.
func (LinkedIn) Extract(card *goquery.Selection) (jobs.RawPosting, error) {
	raw := jobs.RawPosting{}
	put(raw, jobs.FieldTitle, firstText(card, "h3.base-search-card__title"))
	put(raw, jobs.FieldCompany, firstText(card, "h4.base-search-card__subtitle"))
	put(raw, jobs.FieldLocation, firstText(card, "span.job-search-card__location"))
	put(raw, jobs.FieldPosted, firstText(card, "time"))
	if href, ok := card.Find("a.base-card__full-link").First().Attr("href"); ok {
		abs, err := resolveHref(linkedInBase, href)
		if err != nil {
			return nil, err
		}
		put(raw, jobs.FieldURL, abs)
	}
	return raw, nil
}
