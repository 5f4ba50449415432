package dispatch

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/auditkit/seopipeline/internal/audit"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	return c.now
}

// fakeSupervisor records admission order and the peak number of
// concurrently running jobs.
type fakeSupervisor struct {
	mu         sync.Mutex
	running    int
	maxRunning int
	started    []string

	delay       time.Duration
	failDomains map[string]bool
}

func (f *fakeSupervisor) Supervise(ctx context.Context, site audit.Site) audit.Job {
	f.mu.Lock()
	f.running++
	if f.running > f.maxRunning {
		f.maxRunning = f.running
	}
	f.started = append(f.started, site.Domain)
	f.mu.Unlock()

	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			f.mu.Lock()
			f.running--
			f.mu.Unlock()
			return audit.Job{
				Site:    site,
				State:   audit.JobFailed,
				Failure: audit.FailureCancelled,
				Message: "crawl cancelled",
			}
		}
	}

	f.mu.Lock()
	f.running--
	f.mu.Unlock()

	job := audit.Job{Site: site, State: audit.JobSucceeded, Message: "crawl completed"}
	if f.failDomains[site.Domain] {
		job.State = audit.JobFailed
		job.Failure = audit.FailureExit
		job.ExitCode = 2
		job.Message = "process exited with code 2"
	}
	return job
}

func (f *fakeSupervisor) peak() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.maxRunning
}

func (f *fakeSupervisor) order() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.started...)
}

func siteList(domains ...string) []audit.Site {
	out := make([]audit.Site, len(domains))
	for i, d := range domains {
		out[i] = audit.Site{Domain: d, Label: d}
	}
	return out
}

func TestDispatcherRespectsConcurrencyCeiling(t *testing.T) {
	t.Parallel()

	sup := &fakeSupervisor{
		delay:       20 * time.Millisecond,
		failDomains: map[string]bool{"b.example": true, "d.example": true},
	}
	d := New(sup, 2, &fakeClock{now: time.Unix(1000, 0)}, zap.NewNop())

	sites := siteList("a.example", "b.example", "c.example", "d.example", "e.example")
	report, err := d.Run(context.Background(), sites)
	require.NoError(t, err)

	require.LessOrEqual(t, sup.peak(), 2, "more than 2 jobs ran concurrently")
	require.Equal(t, 5, report.Submitted)
	require.Equal(t, 3, report.Succeeded)
	require.Equal(t, 2, report.Failed)
	require.Len(t, report.Items, 5)

	seen := map[string]int{}
	for _, item := range report.Items {
		require.True(t, item.State.Terminal())
		seen[item.Site.Domain]++
	}
	for _, s := range sites {
		require.Equal(t, 1, seen[s.Domain], "site %s not reported exactly once", s.Domain)
	}
}

func TestDispatcherSingleSlotRunsInSubmissionOrder(t *testing.T) {
	t.Parallel()

	sup := &fakeSupervisor{delay: 5 * time.Millisecond}
	d := New(sup, 1, &fakeClock{now: time.Unix(1000, 0)}, zap.NewNop())

	report, err := d.Run(context.Background(), siteList("first", "second", "third"))
	require.NoError(t, err)

	require.Equal(t, 1, sup.peak())
	require.Equal(t, []string{"first", "second", "third"}, sup.order())
	// With one slot, completion order matches submission order too.
	got := make([]string, 0, 3)
	for _, item := range report.Items {
		got = append(got, item.Site.Domain)
	}
	require.Equal(t, []string{"first", "second", "third"}, got)
}

func TestDispatcherEmptyListIsFatal(t *testing.T) {
	t.Parallel()

	d := New(&fakeSupervisor{}, 2, &fakeClock{now: time.Unix(1000, 0)}, zap.NewNop())

	_, err := d.Run(context.Background(), nil)
	require.ErrorIs(t, err, ErrNoSites)
}

func TestDispatcherFailureDoesNotBlockSubsequentSites(t *testing.T) {
	t.Parallel()

	sup := &fakeSupervisor{failDomains: map[string]bool{"first": true}}
	d := New(sup, 1, &fakeClock{now: time.Unix(1000, 0)}, zap.NewNop())

	report, err := d.Run(context.Background(), siteList("first", "second"))
	require.NoError(t, err)
	require.Equal(t, 1, report.Failed)
	require.Equal(t, 1, report.Succeeded)
	require.Equal(t, []string{"first", "second"}, sup.order())
}

func TestDispatcherDrainsOnCancellation(t *testing.T) {
	t.Parallel()

	sup := &fakeSupervisor{delay: time.Second}
	d := New(sup, 2, &fakeClock{now: time.Unix(1000, 0)}, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(30 * time.Millisecond)
		cancel()
	}()

	report, err := d.Run(ctx, siteList("a", "b", "c", "d"))
	require.NoError(t, err)

	// Every submitted site is still observed to a terminal state.
	require.Equal(t, 4, report.Submitted)
	require.Equal(t, 4, report.Succeeded+report.Failed)
	require.Len(t, report.Items, 4)
	for _, item := range report.Items {
		require.True(t, item.State.Terminal())
	}
	require.GreaterOrEqual(t, report.Failed, 2, "in-flight jobs should be cancelled")
}

func TestDispatcherRunsAreIndependent(t *testing.T) {
	t.Parallel()

	sites := siteList("a", "b", "c")
	fail := map[string]bool{"b": true}

	run := func() audit.RunReport {
		sup := &fakeSupervisor{failDomains: fail}
		d := New(sup, 2, &fakeClock{now: time.Unix(1000, 0)}, zap.NewNop())
		report, err := d.Run(context.Background(), sites)
		require.NoError(t, err)
		return report
	}

	first := run()
	second := run()

	require.NotEqual(t, first.RunID, second.RunID)
	classify := func(r audit.RunReport) map[string]audit.JobState {
		out := map[string]audit.JobState{}
		for _, item := range r.Items {
			out[item.Site.Domain] = item.State
		}
		return out
	}
	require.Equal(t, classify(first), classify(second))
}
