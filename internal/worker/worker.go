// Package worker drains detached sweep tasks from the queue.
package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/jobscout/internal/jobs"
	"github.com/JakeFAU/jobscout/internal/scheduler"
)

// Sweeper runs a keyword sweep to completion.
type Sweeper interface {
	RunKeywords(ctx context.Context, keywords []string, maxPerSource int) scheduler.Summary
}

// Worker consumes sweep tasks and runs them one at a time.
type Worker struct {
	queue   jobs.Queue
	sweeper Sweeper
	logger  *zap.Logger
}

// New constructs a Worker.
func New(queue jobs.Queue, sweeper Sweeper, logger *zap.Logger) *Worker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Worker{
		queue:   queue,
		sweeper: sweeper,
		logger:  logger,
	}
}

// Run blocks, consuming tasks until the context finishes.
func (w *Worker) Run(ctx context.Context) {
	for {
		task, err := w.queue.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			w.logger.Error("queue dequeue failed", zap.Error(err))
			if !w.backoff(ctx) {
				return
			}
			continue
		}
		w.logger.Debug("dequeued sweep", zap.String("task_id", task.ID))
		w.process(ctx, task)
	}
}

func (w *Worker) process(ctx context.Context, task jobs.SweepTask) {
	logger := w.logger.With(
		zap.String("task_id", task.ID),
		zap.Int("keywords", len(task.Keywords)),
		zap.Duration("queued_for", time.Since(task.Submitted)),
	)
	logger.Info("sweep task started")

	summary := w.sweeper.RunKeywords(ctx, task.Keywords, task.MaxPerSource)

	failed := 0
	for _, res := range summary.Results {
		if !res.Success {
			failed++
		}
	}
	logger.Info("sweep task finished",
		zap.Int("jobs_scraped", summary.TotalJobsScraped),
		zap.Int("jobs_saved", summary.TotalJobsSaved),
		zap.Int("failed_keywords", failed),
		zap.Float64("duration_seconds", summary.DurationSeconds),
	)
}

// backoff pauses after a queue error so a closed queue does not spin.
func (w *Worker) backoff(ctx context.Context) bool {
	t := time.NewTimer(100 * time.Millisecond)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
