// Package session defines the page-rendering sessions agents drive.
//
// A Session holds a live browser or HTTP client. Each one is opened for a
// single agent run and must be closed on every exit path; sessions are never
// pooled or shared across runs.
package session

import "context"

// Session renders one search page.
type Session interface {
	Navigate(ctx context.Context, url string) error
	ScrollToBottom(ctx context.Context) error
	HTML(ctx context.Context) (string, error)
	Close() error
}

// Factory opens fresh sessions.
type Factory interface {
	NewSession(ctx context.Context) (Session, error)
}
