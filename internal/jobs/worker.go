package jobs

import (
	"context"
	"time"

	"github.com/cloo-solutions/docpipe/internal/logging"
	"go.uber.org/zap"
)

// JobProcessor runs one unit of background work.
type JobProcessor interface {
	ProcessJobs(ctx context.Context) error
}

// Worker runs a JobProcessor on a fixed interval.
type Worker struct {
	name         string
	processor    JobProcessor
	pollInterval time.Duration
	runOnStart   bool
	stopChan     chan struct{}
	doneChan     chan struct{}
}

// WorkerOption configures a Worker.
type WorkerOption func(*Worker)

// WithRunOnStart makes the worker process once before the first tick.
func WithRunOnStart() WorkerOption {
	return func(w *Worker) { w.runOnStart = true }
}

// NewWorker creates a new Worker instance
func NewWorker(name string, processor JobProcessor, pollInterval time.Duration, opts ...WorkerOption) *Worker {
	w := &Worker{
		name:         name,
		processor:    processor,
		pollInterval: pollInterval,
		stopChan:     make(chan struct{}),
		doneChan:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Start blocks running the polling loop until ctx is cancelled or Stop is
// called.
func (w *Worker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()
	defer close(w.doneChan)

	log := logging.FromContext(ctx).With(zap.String("worker", w.name))
	log.Info("worker started", zap.Duration("poll_interval", w.pollInterval))

	if w.runOnStart {
		w.run(ctx, log)
	}

	for {
		select {
		case <-ctx.Done():
			log.Info("worker stopped: context cancelled")
			return
		case <-w.stopChan:
			log.Info("worker stopped: stop signal received")
			return
		case <-ticker.C:
			w.run(ctx, log)
		}
	}
}

func (w *Worker) run(ctx context.Context, log *zap.Logger) {
	if err := w.processor.ProcessJobs(ctx); err != nil {
		log.Error("error processing jobs", zap.Error(err))
	}
}

// Stop gracefully stops the worker
func (w *Worker) Stop() {
	close(w.stopChan)
	<-w.doneChan
}
