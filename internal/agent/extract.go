package agent

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/JakeFAU/jobscout/internal/jobs"
)

// firstText returns the text of the first element matched by the first
// selector that matches anything.
func firstText(card *goquery.Selection, selectors ...string) string {
	for _, sel := range selectors {
		if found := card.Find(sel).First(); found.Length() > 0 {
			return strings.TrimSpace(found.Text())
		}
	}
	return ""
}

func put(raw jobs.RawPosting, f jobs.Field, v string) {
	if v = strings.TrimSpace(v); v != "" {
		raw[f] = v
	}
}

// resolveHref makes href absolute against base.
func resolveHref(base *url.URL, href string) (string, error) {
	href = strings.TrimSpace(href)
	if href == "" {
		return "", nil
	}
	ref, err := url.Parse(href)
	if err != nil {
		return "", fmt.Errorf("parse card link %q: %w", href, err)
	}
	return base.ResolveReference(ref).String(), nil
}

// queryEscape encodes spaces as %20 rather than '+'.
func queryEscape(s string) string {
	return strings.ReplaceAll(url.QueryEscape(strings.TrimSpace(s)), "+", "%20")
}

// slug joins whitespace-separated words with hyphens.
func slug(s string) string {
	return strings.Join(strings.Fields(s), "-")
}

func mustParse(raw string) *url.URL {
	u, err := url.Parse(raw)
	if err != nil {
		panic(err)
	}
	return u
}
