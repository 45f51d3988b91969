package index

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Runner is anything that can rebuild the index.
type Runner interface {
	Reindex(ctx context.Context) IndexResult
}

// Reindexer coalesces reindex requests. Bursts of Trigger calls within the
// debounce window produce one run, and at most one run is in flight.
type Reindexer struct {
	runner   Runner
	debounce time.Duration
	logger   *slog.Logger
	onDone   func(IndexResult)

	trigger chan struct{}

	mu   sync.Mutex
	last IndexResult
	at   time.Time
}

// NewReindexer creates a Reindexer. onDone, if non-nil, is called after each run.
func NewReindexer(runner Runner, debounce time.Duration, logger *slog.Logger, onDone func(IndexResult)) *Reindexer {
	if debounce <= 0 {
		debounce = 2 * time.Second
	}
	return &Reindexer{
		runner:   runner,
		debounce: debounce,
		logger:   logger,
		onDone:   onDone,
		trigger:  make(chan struct{}, 1),
	}
}

// Trigger schedules a reindex. It never blocks.
func (r *Reindexer) Trigger() {
	select {
	case r.trigger <- struct{}{}:
	default:
	}
}

// Last returns the most recent result and when it finished.
func (r *Reindexer) Last() (IndexResult, time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.last, r.at
}

// Run processes triggers until ctx is cancelled.
func (r *Reindexer) Run(ctx context.Context) error {
	var timer *time.Timer
	var fire <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return nil

		case <-r.trigger:
			if timer == nil {
				timer = time.NewTimer(r.debounce)
			} else {
				timer.Reset(r.debounce)
			}
			fire = timer.C

		case <-fire:
			fire = nil
			r.runOnce(ctx)
		}
	}
}

func (r *Reindexer) runOnce(ctx context.Context) {
	start := time.Now()
	res := r.runner.Reindex(ctx)

	r.mu.Lock()
	r.last = res
	r.at = time.Now()
	r.mu.Unlock()

	if res.Success {
		r.logger.Info("reindex: done", slog.Duration("took", time.Since(start)))
	} else {
		r.logger.Warn("reindex: failed", slog.String("output", res.Output))
	}
	if r.onDone != nil {
		r.onDone(res)
	}
}
