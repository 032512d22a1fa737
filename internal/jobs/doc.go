// Package jobs holds the domain types shared across jobscout: sources, raw and
// normalized postings, the error taxonomy and the small interfaces the
// scraping pipeline is assembled from.
package jobs
