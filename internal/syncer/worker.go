package syncer

import (
	"context"
	"time"
)

// Worker triggers a sync on a fixed interval inside the API process.
type Worker struct {
	runner   *Runner
	interval time.Duration

	tick <-chan time.Time
	stop func()
}

// NewWorker creates a Worker. A non-positive interval defaults to one hour.
func NewWorker(runner *Runner, interval time.Duration) *Worker {
	if interval <= 0 {
		interval = time.Hour
	}
	return &Worker{runner: runner, interval: interval}
}

// Start runs one sync immediately, then one per tick. Blocks until ctx is cancelled.
func (w *Worker) Start(ctx context.Context) {
	if w == nil || w.runner == nil {
		return
	}
	tick, stop := w.tick, w.stop
	if tick == nil {
		ticker := time.NewTicker(w.interval)
		tick, stop = ticker.C, ticker.Stop
	}
	if stop != nil {
		defer stop()
	}

	w.runner.logger.Info("syncer: starting sync worker", "interval", w.interval.String())
	w.runner.Run(ctx, TriggerTicker)

	for {
		select {
		case <-ctx.Done():
			w.runner.logger.Info("syncer: sync worker shutting down")
			return
		case <-tick:
			w.runner.Run(ctx, TriggerTicker)
		}
	}
}
