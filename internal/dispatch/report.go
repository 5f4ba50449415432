package dispatch

import (
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/auditkit/seopipeline/internal/audit"
	"github.com/auditkit/seopipeline/internal/metrics"
)

// aggregator receives each terminal job exactly once and builds the
// final run report. Outcomes are logged as they arrive so a crash
// mid-run still leaves an inspectable trail.
type aggregator struct {
	report audit.RunReport
	clock  audit.Clock
	logger *zap.Logger
}

func newAggregator(submitted int, clock audit.Clock, logger *zap.Logger) *aggregator {
	return &aggregator{
		report: audit.RunReport{
			RunID:     uuid.NewString(),
			StartedAt: clock.Now(),
			Submitted: submitted,
			Items:     make([]audit.Job, 0, submitted),
		},
		clock:  clock,
		logger: logger,
	}
}

func (a *aggregator) collect(job audit.Job) {
	switch job.State {
	case audit.JobSucceeded:
		a.report.Succeeded++
		a.logger.Info("job succeeded",
			zap.String("site", job.Site.Domain),
			zap.String("state", string(job.State)),
			zap.Int("exit_code", job.ExitCode),
			zap.Duration("duration", job.Duration()),
			zap.String("message", job.Message),
		)
	default:
		a.report.Failed++
		a.logger.Warn("job failed",
			zap.String("site", job.Site.Domain),
			zap.String("state", string(job.State)),
			zap.String("failure", string(job.Failure)),
			zap.Int("exit_code", job.ExitCode),
			zap.Duration("duration", job.Duration()),
			zap.String("message", job.Message),
		)
	}
	metrics.JobFinished(string(job.State), job.Duration())
	a.report.Items = append(a.report.Items, job)
}

func (a *aggregator) finalize() audit.RunReport {
	a.report.FinishedAt = a.clock.Now()
	a.logger.Info("run finished",
		zap.String("run_id", a.report.RunID),
		zap.Int("submitted", a.report.Submitted),
		zap.Int("succeeded", a.report.Succeeded),
		zap.Int("failed", a.report.Failed),
	)
	return a.report
}
