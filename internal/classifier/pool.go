package classifier

import (
	"context"
	"sync/atomic"

	"golang.org/x/sync/semaphore"

	"github.com/capitalize-ai/comment-consultant/pkg/metrics"
)

// Gate admits at most limit concurrent batch requests. Callers blocked in
// Acquire are counted as queued.
type Gate struct {
	sem      *semaphore.Weighted
	limit    int
	queued   atomic.Int64
	inFlight atomic.Int64
}

// NewGate returns a gate admitting limit requests at a time. limit < 1 is treated as 1.
func NewGate(limit int) *Gate {
	if limit < 1 {
		limit = 1
	}
	return &Gate{sem: semaphore.NewWeighted(int64(limit)), limit: limit}
}

// Acquire blocks until a slot is free or ctx is done.
func (g *Gate) Acquire(ctx context.Context) error {
	g.queued.Add(1)
	metrics.ClassificationQueued.Inc()

	err := g.sem.Acquire(ctx, 1)

	g.queued.Add(-1)
	metrics.ClassificationQueued.Dec()
	if err != nil {
		return err
	}

	g.inFlight.Add(1)
	metrics.ClassificationInFlight.Inc()
	return nil
}

// Release frees a slot taken by Acquire.
func (g *Gate) Release() {
	g.inFlight.Add(-1)
	metrics.ClassificationInFlight.Dec()
	g.sem.Release(1)
}

// Limit returns the admission limit.
func (g *Gate) Limit() int { return g.limit }

// Queued returns the number of callers waiting for a slot.
func (g *Gate) Queued() int { return int(g.queued.Load()) }

// InFlight returns the number of held slots.
func (g *Gate) InFlight() int { return int(g.inFlight.Load()) }
