// Package headless opens chromedp-driven browser sessions.
package headless

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"

	"github.com/JakeFAU/jobscout/internal/session"
)

const (
	defaultNavTimeout = 45 * time.Second
	scrollScript      = `window.scrollTo(0, document.body.scrollHeight);`
)

// Config controls the browsers launched by the Factory.
type Config struct {
	// MaxParallel caps live browsers across all agents. Zero means unlimited.
	MaxParallel       int
	UserAgent         string
	NavigationTimeout time.Duration
	ExecPath          string
}

// Factory launches one headless Chrome per session.
type Factory struct {
	cfg     Config
	limiter chan struct{}
	opts    []chromedp.ExecAllocatorOption
}

// New validates cfg and returns a Factory. No browser starts until NewSession.
func New(cfg Config) (*Factory, error) {
	if cfg.MaxParallel < 0 {
		return nil, fmt.Errorf("max parallel must be >= 0")
	}
	if cfg.NavigationTimeout <= 0 {
		cfg.NavigationTimeout = defaultNavTimeout
	}
	var limiter chan struct{}
	if cfg.MaxParallel > 0 {
		limiter = make(chan struct{}, cfg.MaxParallel)
	}
	return &Factory{
		cfg:     cfg,
		limiter: limiter,
		opts:    allocatorOptions(cfg),
	}, nil
}

func allocatorOptions(cfg Config) []chromedp.ExecAllocatorOption {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", "new"),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("hide-scrollbars", true),
		chromedp.Flag("enable-automation", false),
	)
	if cfg.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(cfg.UserAgent))
	}
	if cfg.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(cfg.ExecPath))
	}
	return opts
}

// NewSession starts a browser process and opens a tab in it.
func (f *Factory) NewSession(ctx context.Context) (session.Session, error) {
	if err := f.acquire(ctx); err != nil {
		return nil, err
	}
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), f.opts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)

	s := &Session{
		browserCtx: browserCtx,
		navTimeout: f.cfg.NavigationTimeout,
		cancel: func() {
			browserCancel()
			allocCancel()
		},
		release: f.release,
	}
	if err := s.start(ctx, f.setupAction()); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("start browser: %w", err)
	}
	return s, nil
}

func (f *Factory) setupAction() chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		if err := network.Enable().Do(ctx); err != nil {
			return fmt.Errorf("enable network domain: %w", err)
		}
		if f.cfg.UserAgent != "" {
			if err := emulation.SetUserAgentOverride(f.cfg.UserAgent).Do(ctx); err != nil {
				return fmt.Errorf("set user-agent: %w", err)
			}
		}
		return nil
	})
}

func (f *Factory) acquire(ctx context.Context) error {
	if f.limiter == nil {
		return nil
	}
	select {
	case f.limiter <- struct{}{}:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("browser slot wait canceled: %w", ctx.Err())
	}
}

func (f *Factory) release() {
	if f.limiter == nil {
		return
	}
	select {
	case <-f.limiter:
	default:
	}
}

// Session is a single headless browser tab.
type Session struct {
	browserCtx context.Context
	navTimeout time.Duration
	cancel     func()
	release    func()
	closed     bool
}

// Navigate loads url and waits for the body to be ready.
func (s *Session) Navigate(ctx context.Context, url string) error {
	return s.run(ctx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
	)
}

// ScrollToBottom scrolls the window to the end of the document.
func (s *Session) ScrollToBottom(ctx context.Context) error {
	return s.run(ctx, chromedp.Evaluate(scrollScript, nil))
}

// HTML returns the outer HTML of the rendered document.
func (s *Session) HTML(ctx context.Context) (string, error) {
	var html string
	if err := s.run(ctx, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return "", err
	}
	return html, nil
}

// Close terminates the browser process. It is safe to call more than once.
func (s *Session) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	s.cancel()
	if s.release != nil {
		s.release()
	}
	return nil
}

// start allocates the browser. The first Run must use the browser context
// itself; a derived timeout context would tear the browser down on expiry.
func (s *Session) start(ctx context.Context, setup chromedp.Action) error {
	stop := forwardCancel(ctx, s.cancel)
	defer stop()
	if err := chromedp.Run(s.browserCtx, setup); err != nil {
		return fmt.Errorf("chromedp start: %w", err)
	}
	return nil
}

func (s *Session) run(ctx context.Context, actions ...chromedp.Action) error {
	if s.closed {
		return errors.New("session closed")
	}
	taskCtx, cancel := context.WithTimeout(s.browserCtx, s.navTimeout)
	defer cancel()
	stop := forwardCancel(ctx, cancel)
	defer stop()

	if err := chromedp.Run(taskCtx, actions...); err != nil {
		return fmt.Errorf("chromedp run: %w", err)
	}
	return nil
}

// forwardCancel cancels the browser task when the caller's context ends.
func forwardCancel(parent context.Context, cancel context.CancelFunc) func() {
	if parent == nil {
		return func() {}
	}
	done := make(chan struct{})
	go func() {
		select {
		case <-parent.Done():
			cancel()
		case <-done:
		}
	}()
	return func() { close(done) }
}
