package sync

import (
	"context"
	"log"
	"time"

	"github.com/harrisonrobin/taskbridge/pkg/provider"
)

// Runner drives the engine on a fixed interval. Cycles run to completion
// on the runner's goroutine and never overlap; a tick that fires while a
// cycle is still running is simply dropped.
type Runner struct {
	engine   *Engine
	interval time.Duration
}

// NewRunner ties an engine to a polling interval.
func NewRunner(engine *Engine, interval time.Duration) *Runner {
	return &Runner{engine: engine, interval: interval}
}

// Run executes an immediate first cycle and then one per interval until
// the context is cancelled. Transient cycle failures are logged and
// retried on the next tick; the process does not crash on them.
func (r *Runner) Run(ctx context.Context) error {
	r.runOnce(ctx)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Printf("Shutting down sync loop: %v", ctx.Err())
			return ctx.Err()
		case <-ticker.C:
			r.runOnce(ctx)
		}
	}
}

func (r *Runner) runOnce(ctx context.Context) {
	report, err := r.engine.RunCycle(ctx)
	switch {
	case provider.IsCredential(err):
		log.Printf("FATAL configuration problem, operator intervention required: %v", err)
	case err != nil:
		log.Printf("Sync cycle failed: %v", err)
	}
	if report != nil {
		if report.Writes() > 0 || len(report.Failures) > 0 {
			log.Printf("Sync cycle: %s", report.Summary())
		}
	}
}
