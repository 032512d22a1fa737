package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/JakeFAU/jobscout/internal/jobs"
	"github.com/JakeFAU/jobscout/internal/scheduler"
)

type fakeQueue struct {
	mu    sync.Mutex
	tasks []jobs.SweepTask
	errs  int
}

func (q *fakeQueue) Enqueue(_ context.Context, task jobs.SweepTask) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.tasks = append(q.tasks, task)
	return nil
}

func (q *fakeQueue) Dequeue(ctx context.Context) (jobs.SweepTask, error) {
	q.mu.Lock()
	if q.errs > 0 {
		q.errs--
		q.mu.Unlock()
		return jobs.SweepTask{}, errors.New("transient")
	}
	if len(q.tasks) > 0 {
		task := q.tasks[0]
		q.tasks = q.tasks[1:]
		q.mu.Unlock()
		return task, nil
	}
	q.mu.Unlock()
	<-ctx.Done()
	return jobs.SweepTask{}, ctx.Err()
}

type recordingSweeper struct {
	mu    sync.Mutex
	calls []jobs.SweepTask
}

func (s *recordingSweeper) RunKeywords(_ context.Context, keywords []string, maxPerSource int) scheduler.Summary {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, jobs.SweepTask{Keywords: keywords, MaxPerSource: maxPerSource})
	return scheduler.Summary{Success: true, TotalKeywords: len(keywords)}
}

func (s *recordingSweeper) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

func TestWorkerRunsQueuedSweeps(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	queue := &fakeQueue{errs: 1, tasks: []jobs.SweepTask{
		{ID: "t1", Keywords: []string{"go"}, MaxPerSource: 2, Submitted: time.Now()},
		{ID: "t2", Keywords: []string{"rust", "zig"}, MaxPerSource: 1, Submitted: time.Now()},
	}}
	sweeper := &recordingSweeper{}
	w := New(queue, sweeper, zap.NewNop())

	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return sweeper.count() == 2 }, time.Second, 10*time.Millisecond)
	require.Equal(t, []string{"go"}, sweeper.calls[0].Keywords)
	require.Equal(t, 2, sweeper.calls[0].MaxPerSource)
	require.Equal(t, []string{"rust", "zig"}, sweeper.calls[1].Keywords)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop after cancel")
	}
}
