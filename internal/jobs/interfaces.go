package jobs

import (
	"context"
	"time"
)

// Agent scrapes one source for one keyword.
type Agent interface {
	Source() Source
	Run(ctx context.Context, req SearchRequest) ([]RawPosting, error)
}

// Gateway persists and queries normalized jobs.
type Gateway interface {
	BulkInsert(ctx context.Context, jobs []Job) (int, error)
	Search(ctx context.Context, filter SearchFilter) ([]Job, error)
	ListRecent(ctx context.Context, limit int) ([]Job, error)
	CountBySource(ctx context.Context) (map[Source]int, error)
	DeactivateOlderThan(ctx context.Context, days int) (int64, error)
	GetByID(ctx context.Context, id string) (Job, error)
	Close() error
}

// Queue carries detached sweep tasks to workers.
type Queue interface {
	Enqueue(ctx context.Context, task SweepTask) error
	Dequeue(ctx context.Context) (SweepTask, error)
}

// SnapshotStore archives rendered search pages.
type SnapshotStore interface {
	PutObject(ctx context.Context, path string, contentType string, data []byte) (string, error)
}

// Waiter blocks until a request to the given URL may proceed.
type Waiter interface {
	Wait(ctx context.Context, url string) error
}

// Hasher computes content hashes.
type Hasher interface {
	Hash(data []byte) string
}

// Clock returns timestamps; swapped for a fixed clock in tests.
type Clock interface {
	Now() time.Time
}

// IDGenerator produces unique identifiers.
type IDGenerator interface {
	NewID() (string, error)
}

// Publisher announces events to a named topic and returns the message id.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) (string, error)
}
