// Package dispatcher runs the sweep workers for the lifetime of the service.
package dispatcher

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// Runner blocks consuming work until its context ends.
type Runner interface {
	Run(ctx context.Context)
}

// Dispatcher owns a fixed pool of runners.
type Dispatcher struct {
	runners []Runner
	logger  *zap.Logger
}

// New creates a Dispatcher over runners.
func New(runners []Runner, logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{runners: runners, logger: logger}
}

// Run starts every runner and returns once all of them have exited, which
// happens after ctx is cancelled and any in-flight sweep has returned.
func (d *Dispatcher) Run(ctx context.Context) {
	d.logger.Info("dispatcher started", zap.Int("workers", len(d.runners)))
	var wg sync.WaitGroup
	for _, r := range d.runners {
		wg.Go(func() { r.Run(ctx) })
	}
	wg.Wait()
	d.logger.Info("dispatcher stopped")
}
