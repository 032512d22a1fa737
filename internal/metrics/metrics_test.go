package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestSanitizeHost(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		expected string
	}{
		{"standard https", "https://www.Naukri.com/go-jobs", "www.naukri.com"},
		{"no scheme", "unstop.com/jobs?search=go", "unstop.com"},
		{"host with port", "localhost:8080", "localhost"},
		{"invalid url", "http://%", "unknown"},
		{"empty string", "", "unknown"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := SanitizeHost(tc.input); got != tc.expected {
				t.Errorf("SanitizeHost(%q) = %q; want %q", tc.input, got, tc.expected)
			}
		})
	}
}

func TestObserveSourceRun(t *testing.T) {
	Init()
	Init()

	before := testutil.ToFloat64(sourceRunsTotal.WithLabelValues("metrics-test", "success"))
	ObserveSourceRun("metrics-test", "success", 3, 2*time.Second)
	ObserveSourceRun("metrics-test", "success", 0, time.Second)

	if got := testutil.ToFloat64(sourceRunsTotal.WithLabelValues("metrics-test", "success")); got != before+2 {
		t.Errorf("expected %v runs, got %v", before+2, got)
	}
	if got := testutil.ToFloat64(jobsEmittedTotal.WithLabelValues("metrics-test")); got != 3 {
		t.Errorf("expected 3 emitted jobs, got %v", got)
	}
}

func TestObserveCardSkippedAndSweeps(t *testing.T) {
	ObserveCardSkipped("metrics-skip", SkipNoTitle)
	if got := testutil.ToFloat64(cardsSkippedTotal.WithLabelValues("metrics-skip", SkipNoTitle)); got != 1 {
		t.Errorf("expected 1 skipped card, got %v", got)
	}

	IncActiveSweeps()
	IncActiveSweeps()
	DecActiveSweeps()
	if got := testutil.ToFloat64(activeSweeps); got < 1 {
		t.Errorf("expected at least one active sweep, got %v", got)
	}
	DecActiveSweeps()
}

func FuzzSanitizeHost(f *testing.F) {
	for _, tc := range []string{"https://www.linkedin.com/jobs", "unstop.com", "::"} {
		f.Add(tc)
	}
	f.Fuzz(func(t *testing.T, in string) {
		if SanitizeHost(in) == "" {
			t.Errorf("SanitizeHost(%q) returned empty string", in)
		}
	})
}
