// FilePath: internal/syncservice/syncservice.report.go
package syncservice

import (
	"time"

	"github.com/jodok/bees/internal/errors"
)

const (
	EventEntitySynced = "sync.entity"
	EventRunFinished  = "sync.run"

	StatusOK     = "ok"
	StatusFailed = "failed"
)

// Result is the outcome of one entity or static dimension row in a run.
type Result struct {
	EntityID  int64            `json:"entity_id"`
	Kind      string           `json:"kind"`
	Name      string           `json:"name,omitempty"`
	Op        string           `json:"op"`
	Status    string           `json:"status"`
	Limit     int              `json:"limit,omitempty"`
	Fetched   int              `json:"fetched"`
	Upserted  int              `json:"upserted"`
	ErrorType errors.ErrorType `json:"error_type,omitempty"`
	Error     string           `json:"error,omitempty"`
	Duration  time.Duration    `json:"duration"`
}

// Failed reports whether the entity did not complete.
func (r Result) Failed() bool {
	return r.Status == StatusFailed
}

func (r *Result) fail(op string, err error) {
	r.Op = op
	r.Status = StatusFailed
	r.ErrorType = errors.TypeOf(err)
	r.Error = err.Error()
}

// Report summarizes one sync run.
type Report struct {
	RunID      string    `json:"run_id"`
	DryRun     bool      `json:"dry_run"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Entities   int       `json:"entities"`
	Results    []Result  `json:"results"`
	Fatal      string    `json:"fatal,omitempty"`
}

// Failures returns the failed results.
func (r *Report) Failures() []Result {
	var out []Result
	for _, res := range r.Results {
		if res.Failed() {
			out = append(out, res)
		}
	}
	return out
}

// Rows returns the number of history rows written.
func (r *Report) Rows() int {
	n := 0
	for _, res := range r.Results {
		n += res.Upserted
	}
	return n
}

// Duration is the wall time of the run.
func (r *Report) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}
