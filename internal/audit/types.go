// Package audit defines the shared domain types and collaborator
// interfaces for the SEO audit pipeline.
package audit

import (
	"context"
	"io"
	"strings"
	"time"
)

// Site identifies one monitored target: a domain to crawl plus a
// human-facing label. Immutable once handed to the dispatcher.
type Site struct {
	Domain string `json:"domain"`
	Label  string `json:"label"`
}

// URL returns the crawl entry point for the site. Domains stored
// without a scheme are crawled over https.
func (s Site) URL() string {
	if strings.Contains(s.Domain, "://") {
		return s.Domain
	}
	return "https://" + s.Domain
}

// JobState tracks a job through its lifecycle. Transitions are
// monotonic: pending -> running -> succeeded|failed.
type JobState string

// Supported job states.
const (
	JobPending   JobState = "pending"
	JobRunning   JobState = "running"
	JobSucceeded JobState = "succeeded"
	JobFailed    JobState = "failed"
)

// Terminal reports whether no further transitions can occur.
func (s JobState) Terminal() bool {
	return s == JobSucceeded || s == JobFailed
}

// FailureKind distinguishes why a job failed.
type FailureKind string

// Supported failure classifications.
const (
	FailureNone      FailureKind = ""
	FailureSpawn     FailureKind = "spawn"
	FailureExit      FailureKind = "exit"
	FailureTimeout   FailureKind = "timeout"
	FailureCancelled FailureKind = "cancelled"
)

// Job is the runtime record for one site's crawl. It is owned by the
// dispatch loop while running and becomes read-only once terminal.
type Job struct {
	Site       Site        `json:"site"`
	State      JobState    `json:"state"`
	Failure    FailureKind `json:"failure,omitempty"`
	ExitCode   int         `json:"exit_code"`
	StartedAt  time.Time   `json:"started_at"`
	FinishedAt time.Time   `json:"finished_at"`
	DurationMS int64       `json:"duration_ms"`
	Message    string      `json:"message"`
	OutputDir  string      `json:"output_dir"`
}

// Duration returns the wall-clock time the job spent running.
func (j Job) Duration() time.Duration {
	if j.FinishedAt.IsZero() || j.StartedAt.IsZero() {
		return 0
	}
	return j.FinishedAt.Sub(j.StartedAt)
}

// RunReport is the finalized summary of one dispatch invocation.
// Items are recorded in completion order, not submission order.
type RunReport struct {
	RunID      string    `json:"run_id"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Submitted  int       `json:"submitted"`
	Succeeded  int       `json:"succeeded"`
	Failed     int       `json:"failed"`
	Items      []Job     `json:"items"`
}

// SiteSource yields the ordered, pre-filtered list of targets for one
// dispatch run.
type SiteSource interface {
	ActiveSites(ctx context.Context) ([]Site, error)
}

// Supervisor runs the external crawler for a single site and blocks
// until the job reaches a terminal state. Implementations never panic
// and never return a non-terminal job.
type Supervisor interface {
	Supervise(ctx context.Context, site Site) Job
}

// Clock abstracts time.Now for deterministic tests.
type Clock interface {
	Now() time.Time
}

// BlobStore persists crawl artifacts and returns a provider URI.
type BlobStore interface {
	PutObject(ctx context.Context, path string, contentType string, data io.Reader) (string, error)
}

// Publisher emits run notifications to an external topic.
type Publisher interface {
	Publish(ctx context.Context, payload any) (string, error)
}
