// FilePath: internal/server/server.jobs.go
package server

import (
	"context"
	stderrors "errors"
	"strconv"

	"github.com/jodok/bees/internal/hubservice"
	"github.com/jodok/bees/internal/lock"
	"github.com/jodok/bees/internal/monitoring"
	"github.com/jodok/bees/internal/republisher"
	"github.com/jodok/bees/internal/syncservice"
	nuts "github.com/vaudience/go-nuts"
)

const (
	JobSync      = "sync"
	JobRepublish = "republish"
)

// ErrSkipped is returned when a job did not run because another run holds
// its lock or is still in progress.
var ErrSkipped = stderrors.New("run skipped")

// Jobs runs sync and republish passes under the single-instance lock and
// reports their outcome to monitoring and the status board.
type Jobs struct {
	stack      *Stack
	monitoring *monitoring.Service
	status     *hubservice.StatusBoard
}

// NewJobs creates the job runner. mon may be nil.
func NewJobs(st *Stack, mon *monitoring.Service) *Jobs {
	return &Jobs{stack: st, monitoring: mon, status: st.Hub.Status}
}

// Sync runs one sync pass.
func (j *Jobs) Sync(ctx context.Context, dryRun bool) (*syncservice.Report, error) {
	var report *syncservice.Report
	err := j.guard(ctx, JobSync, func(ctx context.Context) error {
		svc := j.stack.NewSyncService(dryRun)
		svc.OnResult("jobs", func(r syncservice.Result) {
			if j.monitoring != nil {
				j.monitoring.ObserveEntity(r.Kind, r.Status, string(r.ErrorType), r.Upserted, r.Duration)
			}
		})
		var err error
		report, err = svc.Run(ctx)
		j.status.RecordSync(report)
		if j.monitoring != nil {
			j.monitoring.ObserveRun(JobSync, err != nil, report.FinishedAt)
			j.monitoring.RecordEvent(syncservice.EventRunFinished, map[string]string{
				"run":      report.RunID,
				"failures": strconv.Itoa(len(report.Failures())),
			})
		}
		return err
	})
	return report, err
}

// Republish runs one republish pass.
func (j *Jobs) Republish(ctx context.Context) (*republisher.Summary, error) {
	var summary *republisher.Summary
	err := j.guard(ctx, JobRepublish, func(ctx context.Context) error {
		rp := j.stack.NewRepublisher()
		rp.OnCycle("jobs", func(c republisher.Cycle) {
			if j.monitoring != nil {
				j.monitoring.ObservePosts(c.Posted, c.Rejected, c.Failed, c.Throttled)
			}
		})
		var err error
		summary, err = rp.Run(ctx)
		j.status.RecordRepublish(summary)
		if j.monitoring != nil {
			j.monitoring.ObserveRun(JobRepublish, err != nil, summary.FinishedAt)
		}
		return err
	})
	return summary, err
}

// guard skips the run when the job is already running in this process or
// when another process holds the lock.
func (j *Jobs) guard(ctx context.Context, job string, run func(ctx context.Context) error) error {
	if !j.status.Begin(job) {
		nuts.L.Warnf("[Jobs] %s is still running, skipping", job)
		return ErrSkipped
	}
	defer j.status.End(job)

	locker, err := j.stack.Locker(job)
	if err != nil {
		return err
	}
	held, err := locker.Acquire(ctx)
	if stderrors.Is(err, lock.ErrLocked) {
		nuts.L.Infof("[Jobs] %s: another instance is running, skipping", job)
		return ErrSkipped
	}
	if err != nil {
		return err
	}
	defer func() {
		if err := held.Release(context.Background()); err != nil {
			nuts.L.Warnf("[Jobs] %s: releasing lock: %v", job, err)
		}
	}()
	return run(ctx)
}
