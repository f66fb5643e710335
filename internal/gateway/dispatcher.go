package gateway

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"
)

// Dispatcher runs reply jobs on their own goroutines under a fixed
// concurrency cap, so a burst of mentions cannot fan out into unbounded
// concurrent backend calls. Jobs inherit the process-lifetime context, not
// the request's, so the webhook response returns immediately.
type Dispatcher struct {
	sem    *semaphore.Weighted
	base   context.Context
	logger *slog.Logger
}

func NewDispatcher(base context.Context, capacity int64, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		sem:    semaphore.NewWeighted(capacity),
		base:   base,
		logger: logger,
	}
}

// TryGo starts fn on a new goroutine if capacity allows. It reports false,
// without blocking, when the pool is saturated.
func (d *Dispatcher) TryGo(fn func(ctx context.Context)) bool {
	if !d.sem.TryAcquire(1) {
		return false
	}

	job := uuid.NewString()
	go func() {
		defer d.sem.Release(1)
		d.logger.Debug("reply job started", "job", job)
		fn(d.base)
		d.logger.Debug("reply job finished", "job", job)
	}()
	return true
}
