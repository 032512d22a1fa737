package agent

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/JakeFAU/jobscout/internal/jobs"
	"github.com/JakeFAU/jobscout/internal/session"
	snapshotmem "github.com/JakeFAU/jobscout/internal/snapshot/memory"
)

type fakeSession struct {
	html        string
	navigateErr error
	scrollErr   error
	htmlErr     error

	mu      sync.Mutex
	visited []string
	scrolls int
	closed  int
}

func (s *fakeSession) Navigate(_ context.Context, url string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.visited = append(s.visited, url)
	return s.navigateErr
}

func (s *fakeSession) ScrollToBottom(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scrolls++
	return s.scrollErr
}

func (s *fakeSession) HTML(context.Context) (string, error) {
	return s.html, s.htmlErr
}

func (s *fakeSession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed++
	return nil
}

type fakeFactory struct {
	sess  *fakeSession
	err   error
	calls int
}

func (f *fakeFactory) NewSession(context.Context) (session.Session, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.sess, nil
}

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

type recordingWaiter struct {
	urls []string
	err  error
}

func (w *recordingWaiter) Wait(_ context.Context, url string) error {
	w.urls = append(w.urls, url)
	return w.err
}

const naukriPage = `<html><body>
<div class="srp-jobtuple-wrapper">
  <div class="row1"><a href="https://www.naukri.com/job-1">Go Developer</a></div>
  <div class="row2"><span><a>Acme</a></span></div>
  <div class="row3"><div class="job-details">
    <span class="exp-wrap ver-line"><span>2-5 Yrs</span></span>
    <span class="sal-wrap ver-line"><span>10 LPA</span></span>
    <span class="loc-wrap ver-line"><span><span>Pune</span></span></span>
  </div></div>
  <div class="job-desc">Build services</div>
</div>
<div class="srp-jobtuple-wrapper">
  <div class="row1"><a href="/job-2">Backend Engineer</a></div>
  <div class="row2"><span><a>Globex</a></span></div>
  <div class="row3"><div class="job-details"></div></div>
</div>
<div class="srp-jobtuple-wrapper">
  <div class="row1"><a href="/job-3">Third</a></div>
</div>
</body></html>`

func noWait() Option {
	return WithTiming(Timing{})
}

func TestRunStopsAtMaxResults(t *testing.T) {
	t.Parallel()

	sess := &fakeSession{html: naukriPage}
	factory := &fakeFactory{sess: sess}
	a := New(Naukri{}, factory, zap.NewNop(), noWait())

	got, err := a.Run(context.Background(), jobs.SearchRequest{Keyword: "golang", MaxResults: 2})
	require.NoError(t, err)
	require.Len(t, got, 2)

	require.Equal(t, "Go Developer", got[0][jobs.FieldTitle])
	require.Equal(t, "Pune", got[0][jobs.FieldLocation])
	require.Equal(t, "2-5 Yrs", got[0][jobs.FieldExperience])
	require.Equal(t, "10 LPA", got[0][jobs.FieldSalary])
	require.Equal(t, "Build services", got[0][jobs.FieldDescription])

	require.Equal(t, "Backend Engineer", got[1][jobs.FieldTitle])
	require.Equal(t, "https://www.naukri.com/job-2", got[1][jobs.FieldURL])
	_, ok := got[1].Get(jobs.FieldLocation)
	require.False(t, ok)

	require.Equal(t, []string{"https://www.naukri.com/golang-jobs"}, sess.visited)
	require.Equal(t, 1, sess.closed)
}

func TestRunNonPositiveMaxSkipsSession(t *testing.T) {
	t.Parallel()

	factory := &fakeFactory{sess: &fakeSession{html: naukriPage}}
	a := New(Naukri{}, factory, zap.NewNop(), noWait())

	got, err := a.Run(context.Background(), jobs.SearchRequest{Keyword: "go", MaxResults: 0})
	require.NoError(t, err)
	require.Empty(t, got)
	require.Zero(t, factory.calls)
}

func TestRunNoCardsIsEmptySuccess(t *testing.T) {
	t.Parallel()

	sess := &fakeSession{html: "<html><body><p>nothing</p></body></html>"}
	a := New(LinkedIn{}, &fakeFactory{sess: sess}, zap.NewNop(), noWait())

	got, err := a.Run(context.Background(), jobs.SearchRequest{Keyword: "go", MaxResults: 5})
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Empty(t, got)
}

func TestRunWarnsOnClientRenderedShell(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.WarnLevel)
	sess := &fakeSession{html: `<html ng-version="16.0.0"><body><app-root></app-root></body></html>`}
	a := New(Unstop{}, &fakeFactory{sess: sess}, zap.New(core), noWait())

	got, err := a.Run(context.Background(), jobs.SearchRequest{Keyword: "go", MaxResults: 5})
	require.NoError(t, err)
	require.Empty(t, got)
	require.Equal(t, 1, logs.FilterMessageSnippet("client-rendered").Len())
}

func TestRunFailureStages(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	cases := map[string]struct {
		factory *fakeFactory
		stage   jobs.Stage
	}{
		"session":  {factory: &fakeFactory{err: boom}, stage: jobs.StageSession},
		"navigate": {factory: &fakeFactory{sess: &fakeSession{navigateErr: boom}}, stage: jobs.StageNavigate},
		"scroll":   {factory: &fakeFactory{sess: &fakeSession{scrollErr: boom}}, stage: jobs.StageScroll},
		"capture":  {factory: &fakeFactory{sess: &fakeSession{htmlErr: boom}}, stage: jobs.StageCapture},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			a := New(LinkedIn{}, tc.factory, zap.NewNop(), WithTiming(Timing{ScrollCount: 1}))
			got, err := a.Run(context.Background(), jobs.SearchRequest{Keyword: "go", MaxResults: 3})
			require.Nil(t, got)

			var sf *jobs.ScrapeFailure
			require.ErrorAs(t, err, &sf)
			require.Equal(t, tc.stage, sf.Stage)
			require.Equal(t, jobs.SourceLinkedIn, sf.Source)
			require.ErrorIs(t, err, boom)
			if tc.factory.sess != nil {
				require.Equal(t, 1, tc.factory.sess.closed)
			}
		})
	}
}

func TestRunSettleHonorsContext(t *testing.T) {
	t.Parallel()

	sess := &fakeSession{html: naukriPage}
	a := New(Naukri{}, &fakeFactory{sess: sess}, zap.NewNop(),
		WithTiming(Timing{Settle: time.Hour}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := a.Run(ctx, jobs.SearchRequest{Keyword: "go", MaxResults: 1})
	var sf *jobs.ScrapeFailure
	require.ErrorAs(t, err, &sf)
	require.Equal(t, jobs.StageSettle, sf.Stage)
	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, 1, sess.closed)
}

func TestRunScrollsConfiguredTimes(t *testing.T) {
	t.Parallel()

	sess := &fakeSession{html: "<html></html>"}
	a := New(Unstop{}, &fakeFactory{sess: sess}, zap.NewNop(),
		WithTiming(Timing{ScrollCount: 3}))

	_, err := a.Run(context.Background(), jobs.SearchRequest{Keyword: "go", MaxResults: 1})
	require.NoError(t, err)
	require.Equal(t, 3, sess.scrolls)
}

func TestRunWaitsOnLimiterAndArchives(t *testing.T) {
	t.Parallel()

	sess := &fakeSession{html: naukriPage}
	waiter := &recordingWaiter{}
	snaps := snapshotmem.New()
	clock := fixedClock{t: time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)}
	a := New(Naukri{}, &fakeFactory{sess: sess}, zap.NewNop(), noWait(),
		WithLimiter(waiter), WithSnapshots(snaps, clock))

	_, err := a.Run(context.Background(), jobs.SearchRequest{Keyword: "data scientist", MaxResults: 1})
	require.NoError(t, err)
	require.Equal(t, []string{"https://www.naukri.com/data-scientist-jobs"}, waiter.urls)
	require.Equal(t, 1, snaps.Len())
	page, ok := snaps.Get("naukri/data-scientist/20240301T100000.000000000Z.html")
	require.True(t, ok)
	require.Equal(t, naukriPage, string(page))
}

func TestRunLimiterErrorIsSessionFailure(t *testing.T) {
	t.Parallel()

	factory := &fakeFactory{sess: &fakeSession{}}
	a := New(Naukri{}, factory, zap.NewNop(), noWait(),
		WithLimiter(&recordingWaiter{err: context.DeadlineExceeded}))

	_, err := a.Run(context.Background(), jobs.SearchRequest{Keyword: "go", MaxResults: 1})
	var sf *jobs.ScrapeFailure
	require.ErrorAs(t, err, &sf)
	require.Equal(t, jobs.StageSession, sf.Stage)
	require.Zero(t, factory.calls)
}

type brokenSite struct{ LinkedIn }

func (brokenSite) Extract(card *goquery.Selection) (jobs.RawPosting, error) {
	switch card.AttrOr("data-mode", "") {
	case "panic":
		panic("selector exploded")
	case "error":
		return nil, errors.New("bad markup")
	}
	return LinkedIn{}.Extract(card)
}

func TestRunIsolatesBrokenCards(t *testing.T) {
	t.Parallel()

	page := `<html><body>
<div class="base-card" data-mode="panic"><h3 class="base-search-card__title">A</h3></div>
<div class="base-card" data-mode="error"><h3 class="base-search-card__title">B</h3></div>
<div class="base-card"><h3 class="base-search-card__title"> </h3></div>
<div class="base-card"><h3 class="base-search-card__title">Kept</h3></div>
</body></html>`
	a := New(brokenSite{}, &fakeFactory{sess: &fakeSession{html: page}}, zap.NewNop(), noWait())

	got, err := a.Run(context.Background(), jobs.SearchRequest{Keyword: "go", MaxResults: 10})
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, "Kept", got[0][jobs.FieldTitle])
}

// Swaps the global tracer provider, so it must not run in parallel.
func TestRunRecordsSpan(t *testing.T) {
	prev := otel.GetTracerProvider()
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(prev)
		_ = tp.Shutdown(context.Background())
	})

	ok := New(Naukri{}, &fakeFactory{sess: &fakeSession{html: naukriPage}}, zap.NewNop(), noWait())
	_, err := ok.Run(context.Background(), jobs.SearchRequest{Keyword: "golang", MaxResults: 2})
	require.NoError(t, err)

	broken := New(LinkedIn{}, &fakeFactory{err: errors.New("no browser")}, zap.NewNop(), noWait())
	_, err = broken.Run(context.Background(), jobs.SearchRequest{Keyword: "golang", MaxResults: 2})
	require.Error(t, err)

	spans := rec.Ended()
	require.Len(t, spans, 2)

	attrs := map[attribute.Key]attribute.Value{}
	for _, kv := range spans[0].Attributes() {
		attrs[kv.Key] = kv.Value
	}
	require.Equal(t, "agent.Run", spans[0].Name())
	require.Equal(t, "naukri", attrs["jobscout.source"].AsString())
	require.Equal(t, "golang", attrs["jobscout.keyword"].AsString())
	require.EqualValues(t, 2, attrs["jobscout.postings"].AsInt64())
	require.Equal(t, codes.Unset, spans[0].Status().Code)

	require.Equal(t, codes.Error, spans[1].Status().Code)
	require.Contains(t, spans[1].Status().Description, "no browser")
}
