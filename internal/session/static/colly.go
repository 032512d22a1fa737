// Package static opens plain HTTP sessions backed by gocolly. Pages are not
// executed, so lazily loaded content never appears and scrolling is a no-op.
package static

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gocolly/colly/v2"

	"github.com/JakeFAU/jobscout/internal/session"
)

const defaultTimeout = 15 * time.Second

// Config controls the collector each session is cloned from.
type Config struct {
	UserAgent string
	Timeout   time.Duration
}

// Factory clones a configured collector per session.
type Factory struct {
	cfg  Config
	base *colly.Collector
}

// New builds a Factory sharing one pooled HTTP transport.
func New(cfg Config) *Factory {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	c := colly.NewCollector(colly.Async(false), colly.AllowURLRevisit())
	c.IgnoreRobotsTxt = true
	c.WithTransport(newHTTPTransport())
	return &Factory{cfg: cfg, base: c}
}

// NewSession returns a session with its own collector.
func (f *Factory) NewSession(_ context.Context) (session.Session, error) {
	c := f.base.Clone()
	if f.cfg.UserAgent != "" {
		c.UserAgent = f.cfg.UserAgent
	}
	c.SetRequestTimeout(f.cfg.Timeout)
	return &Session{collector: c}, nil
}

// Session holds the last page body fetched by its collector.
type Session struct {
	collector *colly.Collector
	body      []byte
	loaded    bool
	closed    bool
}

// Navigate fetches url. Non-2xx responses are errors.
func (s *Session) Navigate(ctx context.Context, url string) error {
	if s.closed {
		return errors.New("session closed")
	}
	var (
		body     []byte
		fetchErr error
	)
	c := s.collector.Clone()
	c.UserAgent = s.collector.UserAgent
	c.OnResponse(func(r *colly.Response) {
		body = append([]byte(nil), r.Body...)
	})
	c.OnError(func(_ *colly.Response, err error) {
		fetchErr = err
	})

	done := make(chan error, 1)
	go func() {
		done <- c.Visit(url)
	}()

	select {
	case <-ctx.Done():
		return fmt.Errorf("static fetch canceled: %w", ctx.Err())
	case err := <-done:
		if err != nil {
			return fmt.Errorf("colly visit failed: %w", err)
		}
		if fetchErr != nil {
			return fmt.Errorf("colly response failed: %w", fetchErr)
		}
	}
	s.body = body
	s.loaded = true
	return nil
}

// ScrollToBottom does nothing; static pages have no viewport.
func (s *Session) ScrollToBottom(_ context.Context) error {
	if s.closed {
		return errors.New("session closed")
	}
	return nil
}

// HTML returns the body of the last successful Navigate.
func (s *Session) HTML(_ context.Context) (string, error) {
	if !s.loaded {
		return "", errors.New("no page loaded")
	}
	return string(s.body), nil
}

// Close drops the page body.
func (s *Session) Close() error {
	s.closed = true
	s.body = nil
	return nil
}

func newHTTPTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   15 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
	}
}
