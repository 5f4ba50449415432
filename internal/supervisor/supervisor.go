// Package supervisor launches and monitors one external crawler
// process per site, converting every outcome into a terminal job.
package supervisor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/auditkit/seopipeline/internal/audit"
)

// stderr is attached to failure messages, truncated to this many bytes.
const stderrTailBytes = 400

// Config captures the fixed invocation template for the crawler.
type Config struct {
	// Binary is the crawler executable; resolved via PATH if relative.
	Binary string
	// Args is the argument template. The placeholders {url}, {profile}
	// and {output} are expanded per site.
	Args []string
	// Profile is the named crawl configuration passed to the tool.
	Profile string
	// RunDir is the per-run export root; each site gets a subdirectory.
	RunDir string
	// Timeout bounds a single crawl. Zero disables the bound, leaving
	// the process able to occupy a slot indefinitely.
	Timeout time.Duration
}

// Supervisor implements audit.Supervisor over os/exec.
type Supervisor struct {
	cfg    Config
	clock  audit.Clock
	logger *zap.Logger
}

// New constructs a Supervisor.
func New(cfg Config, clock audit.Clock, logger *zap.Logger) *Supervisor {
	return &Supervisor{
		cfg:    cfg,
		clock:  clock,
		logger: logger,
	}
}

// Supervise runs the crawler for one site and blocks until it exits,
// times out, or the context is cancelled. It never returns a
// non-terminal job and never panics; every failure path is classified
// into the job record.
func (s *Supervisor) Supervise(ctx context.Context, site audit.Site) audit.Job {
	job := audit.Job{
		Site:      site,
		State:     audit.JobRunning,
		ExitCode:  -1,
		StartedAt: s.clock.Now(),
		OutputDir: filepath.Join(s.cfg.RunDir, site.Domain),
	}

	if err := os.MkdirAll(job.OutputDir, 0o750); err != nil {
		return s.finish(job, audit.FailureSpawn, fmt.Sprintf("create output dir: %v", err))
	}

	runCtx := ctx
	if s.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()
	}

	args := expandArgs(s.cfg.Args, site.URL(), s.cfg.Profile, job.OutputDir)
	cmd := exec.CommandContext(runCtx, s.cfg.Binary, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	s.logger.Debug("starting crawler process",
		zap.String("site", site.Domain),
		zap.String("binary", s.cfg.Binary),
		zap.Strings("args", args),
	)

	if err := cmd.Start(); err != nil {
		if ctx.Err() != nil {
			return s.finish(job, audit.FailureCancelled, "crawl cancelled before start")
		}
		return s.finish(job, audit.FailureSpawn, fmt.Sprintf("start crawler: %v", err))
	}

	err := cmd.Wait()
	switch {
	case err == nil:
		job.State = audit.JobSucceeded
		job.ExitCode = 0
		job.Message = "crawl completed"
		job.FinishedAt = s.clock.Now()
		job.DurationMS = job.Duration().Milliseconds()
		return job
	case errors.Is(runCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil:
		return s.finish(job, audit.FailureTimeout,
			fmt.Sprintf("crawl timed out after %s", s.cfg.Timeout))
	case ctx.Err() != nil:
		return s.finish(job, audit.FailureCancelled, "crawl cancelled")
	default:
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			job.ExitCode = exitErr.ExitCode()
			return s.finish(job, audit.FailureExit, withStderr(
				fmt.Sprintf("process exited with code %d", job.ExitCode), stderr.Bytes()))
		}
		return s.finish(job, audit.FailureSpawn, fmt.Sprintf("wait for crawler: %v", err))
	}
}

func (s *Supervisor) finish(job audit.Job, kind audit.FailureKind, message string) audit.Job {
	job.State = audit.JobFailed
	job.Failure = kind
	job.Message = message
	job.FinishedAt = s.clock.Now()
	job.DurationMS = job.Duration().Milliseconds()
	return job
}

func expandArgs(template []string, url, profile, output string) []string {
	r := strings.NewReplacer(
		"{url}", url,
		"{profile}", profile,
		"{output}", output,
	)
	args := make([]string, len(template))
	for i, a := range template {
		args[i] = r.Replace(a)
	}
	return args
}

func withStderr(message string, stderr []byte) string {
	tail := strings.TrimSpace(string(stderr))
	if tail == "" {
		return message
	}
	if len(tail) > stderrTailBytes {
		tail = tail[len(tail)-stderrTailBytes:]
	}
	return message + "; stderr: " + tail
}
