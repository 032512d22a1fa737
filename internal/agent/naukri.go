package agent

import (
	"net/url"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/JakeFAU/jobscout/internal/jobs"
)

var naukriBase = mustParse("https://www.naukri.com")

// Naukri reads the naukri.com search results page.
type Naukri struct{}

// Source implements Site.
func (Naukri) Source() jobs.Source { return jobs.SourceNaukri }

// SearchURL builds /{keyword}-jobs or /{keyword}-jobs-in-{location}, with
// spaces turned into hyphens.
func (Naukri) SearchURL(keyword, location string) string {
	path := url.PathEscape(slug(keyword)) + "-jobs"
	if loc := slug(location); loc != "" {
		path += "-in-" + url.PathEscape(loc)
	}
	return naukriBase.String() + "/" + path
}

// CardSelectors implements Site.
func (Naukri) CardSelectors() []string {
	return []string{"div.srp-jobtuple-wrapper"}
}

// DefaultTiming waits for the server-rendered list; Naukri needs no scrolling.
func (Naukri) DefaultTiming() Timing {
	return Timing{Settle: 10 * time.Second}
}

// Extract implements Site.
func (Naukri) Extract(card *goquery.Selection) (jobs.RawPosting, error) {
	raw := jobs.RawPosting{}
	link := card.Find("div.row1 a").First()
	put(raw, jobs.FieldTitle, link.Text())
	if href, ok := link.Attr("href"); ok {
		abs, err := resolveHref(naukriBase, href)
		if err != nil {
			return nil, err
		}
		put(raw, jobs.FieldURL, abs)
	}
	put(raw, jobs.FieldCompany, card.Find("div.row2 span a").First().Text())

	details := card.Find("div.row3 div.job-details").First()
	put(raw, jobs.FieldLocation, details.Find("span.loc-wrap.ver-line span span").First().Text())
	put(raw, jobs.FieldExperience, details.Find("span.exp-wrap.ver-line span").First().Text())
	put(raw, jobs.FieldSalary, details.Find("span.sal-wrap.ver-line span").First().Text())
	put(raw, jobs.FieldDescription, card.Find("div.job-desc").First().Text())
	return raw, nil
}
