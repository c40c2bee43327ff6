// FilePath: internal/hubservice/hubservice.status.go
package hubservice

import (
	"sync"
	"time"

	"github.com/jodok/bees/internal/republisher"
	"github.com/jodok/bees/internal/syncservice"
)

// Status is the snapshot served by /v1/status.
type Status struct {
	Version       string               `json:"version"`
	StartedAt     time.Time            `json:"started_at"`
	Running       []string             `json:"running"`
	LastSync      *syncservice.Report  `json:"last_sync,omitempty"`
	LastRepublish *republisher.Summary `json:"last_republish,omitempty"`
	SkippedRuns   map[string]int       `json:"skipped_runs"`
}

// StatusBoard keeps the outcome of the most recent job runs.
type StatusBoard struct {
	mu            sync.RWMutex
	startedAt     time.Time
	running       map[string]bool
	skipped       map[string]int
	lastSync      *syncservice.Report
	lastRepublish *republisher.Summary
}

func NewStatusBoard() *StatusBoard {
	return &StatusBoard{
		startedAt: time.Now().UTC(),
		running:   make(map[string]bool),
		skipped:   make(map[string]int),
	}
}

// Begin marks a job as running. It returns false when the job is already
// running, in which case the caller must skip the run.
func (b *StatusBoard) Begin(job string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.running[job] {
		b.skipped[job]++
		return false
	}
	b.running[job] = true
	return true
}

// End marks a job as finished.
func (b *StatusBoard) End(job string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.running, job)
}

func (b *StatusBoard) RecordSync(r *syncservice.Report) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.lastSync = r
}

func (b *StatusBoard) RecordRepublish(s *republisher.Summary) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.lastRepublish = s
}

// Snapshot returns a copy of the current state.
func (b *StatusBoard) Snapshot(version string) Status {
	b.mu.RLock()
	defer b.mu.RUnlock()
	st := Status{
		Version:       version,
		StartedAt:     b.startedAt,
		Running:       []string{},
		LastSync:      b.lastSync,
		LastRepublish: b.lastRepublish,
		SkippedRuns:   make(map[string]int, len(b.skipped)),
	}
	for job := range b.running {
		st.Running = append(st.Running, job)
	}
	for job, n := range b.skipped {
		st.SkippedRuns[job] = n
	}
	return st
}
