// Package dispatch runs the bounded-concurrency batch crawl loop.
package dispatch

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/auditkit/seopipeline/internal/audit"
	"github.com/auditkit/seopipeline/internal/metrics"
)

// ErrNoSites is returned when a run is started with an empty work list.
var ErrNoSites = errors.New("dispatch: no sites to process")

// Dispatcher admits sites in source order, never exceeding the slot
// pool capacity, and drains every in-flight job to a terminal state.
type Dispatcher struct {
	supervisor audit.Supervisor
	slots      *SlotPool
	clock      audit.Clock
	logger     *zap.Logger
}

// New creates a Dispatcher with a concurrency ceiling of maxParallel.
func New(supervisor audit.Supervisor, maxParallel int, clock audit.Clock, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{
		supervisor: supervisor,
		slots:      NewSlotPool(maxParallel),
		clock:      clock,
		logger:     logger,
	}
}

// Run dispatches every site and blocks until all jobs are terminal.
// Individual job failures are data in the report, never errors; the
// only error condition is an empty work list. On context cancellation
// supervisors kill their processes and the loop still drains, so the
// returned report is always complete with respect to admitted work.
func (d *Dispatcher) Run(ctx context.Context, sites []audit.Site) (audit.RunReport, error) {
	if len(sites) == 0 {
		return audit.RunReport{}, ErrNoSites
	}

	agg := newAggregator(len(sites), d.clock, d.logger)
	results := make(chan audit.Job)

	next := 0
	inFlight := 0
	for next < len(sites) || inFlight > 0 {
		// Admit pending sites in strict FIFO order while slots are free.
		if next < len(sites) && d.slots.TryAcquire() {
			site := sites[next]
			next++
			inFlight++
			d.logger.Info("job started",
				zap.String("site", site.Domain),
				zap.String("state", string(audit.JobRunning)),
				zap.Int("slots_in_use", d.slots.InUse()),
			)
			metrics.JobStarted()
			go func(site audit.Site) {
				results <- d.supervisor.Supervise(ctx, site)
			}(site)
			continue
		}

		job := <-results
		d.slots.Release()
		inFlight--
		agg.collect(job)
	}

	return agg.finalize(), nil
}
