package static

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSessionFetchesPage(t *testing.T) {
	t.Parallel()

	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		_, _ = w.Write([]byte(`<html><body><div class="base-card">x</div></body></html>`))
	}))
	defer srv.Close()

	f := New(Config{UserAgent: "jobscout-test"})
	sess, err := f.NewSession(context.Background())
	require.NoError(t, err)
	defer sess.Close()

	_, err = sess.HTML(context.Background())
	require.Error(t, err)

	require.NoError(t, sess.Navigate(context.Background(), srv.URL+"/jobs"))
	require.NoError(t, sess.ScrollToBottom(context.Background()))
	html, err := sess.HTML(context.Background())
	require.NoError(t, err)
	require.Contains(t, html, "base-card")
	require.Equal(t, "jobscout-test", gotUA)
}

func TestSessionReportsHTTPErrors(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "blocked", http.StatusForbidden)
	}))
	defer srv.Close()

	sess, err := New(Config{}).NewSession(context.Background())
	require.NoError(t, err)
	require.Error(t, sess.Navigate(context.Background(), srv.URL))
}

func TestClosedSessionRejectsNavigation(t *testing.T) {
	t.Parallel()

	sess, err := New(Config{}).NewSession(context.Background())
	require.NoError(t, err)
	require.NoError(t, sess.Close())
	require.ErrorContains(t, sess.Navigate(context.Background(), "http://127.0.0.1:1"), "session closed")
}
