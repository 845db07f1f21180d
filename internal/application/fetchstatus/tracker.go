// Package fetchstatus tracks the state of literature fetch runs. The worker
// owns a Tracker and updates it as a run progresses; the HTTP status handler
// polls it. All state lives behind the Tracker's mutex, never in package
// variables.
package fetchstatus

import (
	"sync"
	"time"

	"github.com/openlongevity/longmap/pkg/errors"
)

// SourceResult records the outcome of fetching a single source within a run.
type SourceResult struct {
	Source    string    `json:"source"`
	Fetched   int       `json:"fetched"`
	Created   int       `json:"created"`
	Skipped   int       `json:"skipped"`
	Failed    int       `json:"failed"`
	Error     string    `json:"error,omitempty"`
	FetchedAt time.Time `json:"fetched_at"`
}

// Status is a point-in-time snapshot of the tracker. Sources holds the
// per-source results of the run in progress, or of the last completed run
// when no run is active.
type Status struct {
	Running    bool           `json:"running"`
	StartedAt  *time.Time     `json:"started_at,omitempty"`
	FinishedAt *time.Time     `json:"finished_at,omitempty"`
	LastError  string         `json:"last_error,omitempty"`
	Sources    []SourceResult `json:"sources"`
	TotalRuns  int64          `json:"total_runs"`
}

// Tracker records fetch-run progress. The zero value is not usable; call New.
type Tracker struct {
	mu        sync.Mutex
	running   bool
	started   time.Time
	finished  time.Time
	lastError string
	sources   []SourceResult
	totalRuns int64

	now func() time.Time
}

// New returns an idle Tracker.
func New() *Tracker {
	return &Tracker{now: time.Now}
}

// BeginRun marks a run as started. A second BeginRun while a run is active
// returns a conflict so overlapping cron fires and manual triggers cannot
// interleave their per-source results.
func (t *Tracker) BeginRun() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.running {
		return errors.Conflict("a fetch run is already in progress")
	}
	t.running = true
	t.started = t.now()
	t.finished = time.Time{}
	t.lastError = ""
	t.sources = nil
	return nil
}

// RecordSource appends one source's outcome to the active run. Calls outside
// an active run are dropped.
func (t *Tracker) RecordSource(res SourceResult) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.running {
		return
	}
	if res.FetchedAt.IsZero() {
		res.FetchedAt = t.now()
	}
	t.sources = append(t.sources, res)
}

// EndRun marks the active run as finished. A non-nil err is kept as the
// run's terminal error until the next BeginRun.
func (t *Tracker) EndRun(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.running {
		return
	}
	t.running = false
	t.finished = t.now()
	t.totalRuns++
	if err != nil {
		t.lastError = err.Error()
	}
}

// Snapshot returns a copy of the current state, safe to serialize without
// holding the tracker's lock.
func (t *Tracker) Snapshot() Status {
	t.mu.Lock()
	defer t.mu.Unlock()

	s := Status{
		Running:   t.running,
		LastError: t.lastError,
		Sources:   make([]SourceResult, len(t.sources)),
		TotalRuns: t.totalRuns,
	}
	copy(s.Sources, t.sources)
	if !t.started.IsZero() {
		started := t.started
		s.StartedAt = &started
	}
	if !t.finished.IsZero() {
		finished := t.finished
		s.FinishedAt = &finished
	}
	return s
}
