// FilePath: internal/syncservice/syncservice.go
package syncservice

import (
	"context"
	"fmt"
	"time"

	"github.com/jodok/bees/internal/config"
	"github.com/jodok/bees/internal/errors"
	"github.com/jodok/bees/internal/models"
	nuts "github.com/vaudience/go-nuts"
)

const (
	OpListEntities = "list_entities"
	OpResolve      = "resolve_grouping"
	OpFetchHistory = "fetch_history"
	OpTransform    = "transform_history"
)

// Source is the remote telemetry API.
type Source interface {
	Kind() models.EntityKind
	ListEntities(ctx context.Context) ([]models.RemoteEntity, error)
	FetchHistory(ctx context.Context, entityID int64, limit int, attributes []string) ([]models.RemoteRecord, error)
}

// Store is the transactional write side the sync run needs.
type Store interface {
	UpsertApiary(ctx context.Context, id int64, name string) error
	UpsertHive(ctx context.Context, id int64, name string, apiaryID int64) error
	UpsertSensor(ctx context.Context, sensor *models.Sensor) error
	UpsertSensorAssignmentIfUnassigned(ctx context.Context, sensorID, hiveID int64, start time.Time) (bool, error)
	UpsertHistoryBatch(ctx context.Context, rows []*models.History) (int, error)
	LatestHistoryTime(ctx context.Context, entityID int64) (*time.Time, error)
}

// SyncService pulls entities and their history from the source into the
// store, one entity at a time.
type SyncService struct {
	cfg    *config.Config
	source Source
	store  Store
	events *nuts.EventEmitter
	now    func() time.Time
	dryRun bool
}

// New creates a SyncService.
func New(cfg *config.Config, source Source, store Store) *SyncService {
	return &SyncService{
		cfg:    cfg,
		source: source,
		store:  store,
		events: nuts.NewEventEmitter(),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// WithClock replaces the wall clock used for window sizing.
func (s *SyncService) WithClock(now func() time.Time) *SyncService {
	s.now = now
	return s
}

// WithDryRun marks reports produced by this service as dry runs.
func (s *SyncService) WithDryRun(dryRun bool) *SyncService {
	s.dryRun = dryRun
	return s
}

// OnResult registers a callback invoked after every entity.
func (s *SyncService) OnResult(id string, handler func(Result)) {
	s.events.On(EventEntitySynced, id, func(args ...interface{}) {
		if len(args) > 0 {
			if r, ok := args[0].(Result); ok {
				handler(r)
			}
		}
	})
}

// OnReport registers a callback invoked when a run finishes, fatal or not.
func (s *SyncService) OnReport(id string, handler func(*Report)) {
	s.events.On(EventRunFinished, id, func(args ...interface{}) {
		if len(args) > 0 {
			if r, ok := args[0].(*Report); ok {
				handler(r)
			}
		}
	})
}

type plan struct {
	entity   models.RemoteEntity
	apiaryID int64
	hiveID   int64
	modules  []string
}

// Run executes one sync pass. Per-entity failures end up in the report and
// the run continues; the returned error is set only for run-fatal failures
// (listing the source, unclaimed entities, cancellation).
func (s *SyncService) Run(ctx context.Context) (report *Report, err error) {
	started := s.now()
	report = &Report{RunID: nuts.NID("run", 12), DryRun: s.dryRun, StartedAt: started}
	defer func() {
		report.FinishedAt = s.now()
		if err != nil {
			report.Fatal = err.Error()
		}
		s.events.Emit(EventRunFinished, report)
	}()

	nuts.L.Infof("[SyncService] run %s started (source=%s, dry_run=%t)", report.RunID, s.source.Kind(), s.dryRun)

	s.syncStatic(ctx, report, started)

	entities, err := s.source.ListEntities(ctx)
	if err != nil {
		nuts.L.Errorf("[SyncService] run %s: listing %s failed: %v", report.RunID, s.source.Kind(), err)
		return report, errors.Annotate(err, OpListEntities, 0)
	}
	report.Entities = len(entities)

	plans, err := s.resolve(entities)
	if err != nil {
		nuts.L.Errorf("[SyncService] run %s aborted: %v", report.RunID, err)
		return report, err
	}

	for _, p := range plans {
		if err := ctx.Err(); err != nil {
			return report, errors.NewTransportError("sync run cancelled", err)
		}
		res := s.syncEntity(ctx, p)
		report.Results = append(report.Results, res)
		s.events.Emit(EventEntitySynced, res)
	}

	failed := len(report.Failures())
	nuts.L.Infof("[SyncService] run %s finished: %d entities, %d rows, %d failures in %s",
		report.RunID, report.Entities, report.Rows(), failed, time.Since(started).Round(time.Millisecond))
	return report, nil
}

// syncStatic writes the configured dimension rows in foreign key order.
func (s *SyncService) syncStatic(ctx context.Context, report *Report, started time.Time) {
	record := func(res Result, err error, op string) {
		if err != nil {
			res.fail(op, err)
			nuts.L.Errorf("[SyncService] %s %d failed: %v", res.Kind, res.EntityID, err)
		}
		report.Results = append(report.Results, res)
	}

	for _, a := range s.cfg.Apiaries {
		res := Result{EntityID: a.ID, Kind: "apiary", Name: a.Name, Op: "upsert_apiary", Status: StatusOK}
		record(res, s.store.UpsertApiary(ctx, a.ID, a.Name), res.Op)
	}
	for _, h := range s.cfg.Hives {
		res := Result{EntityID: h.ID, Kind: "hive", Name: h.Name, Op: "upsert_hive", Status: StatusOK}
		record(res, s.store.UpsertHive(ctx, h.ID, h.Name, h.ApiaryID), res.Op)
	}
	for _, sc := range s.cfg.Sensors {
		res := Result{EntityID: sc.ID, Kind: "sensor", Name: sc.Name, Op: "upsert_sensor", Status: StatusOK}
		record(res, s.store.UpsertSensor(ctx, sensorFromConfig(sc)), res.Op)
	}
	for _, sc := range s.cfg.Sensors {
		if sc.HiveID == 0 {
			continue
		}
		res := Result{EntityID: sc.ID, Kind: "assignment", Name: sc.Name, Op: "assign_sensor", Status: StatusOK}
		_, err := s.store.UpsertSensorAssignmentIfUnassigned(ctx, sc.ID, sc.HiveID, started)
		record(res, err, res.Op)
	}
}

// resolve maps every live entity to its configured grouping before any
// history is fetched. One unclaimed entity aborts the run.
func (s *SyncService) resolve(entities []models.RemoteEntity) ([]plan, error) {
	plans := make([]plan, 0, len(entities))
	for _, e := range entities {
		p := plan{entity: e}
		switch s.source.Kind() {
		case models.EntityKindHives:
			a, ok := s.cfg.ApiaryForHive(e.ID)
			if !ok {
				return nil, errors.NewConfigurationError(fmt.Sprintf("hive %d (%s) is not claimed by any configured apiary", e.ID, e.Name), nil).
					WithOp(OpResolve).WithEntity(e.ID)
			}
			p.apiaryID = a.ID
		case models.EntityKindSensors:
			sc, ok := s.cfg.SensorByID(e.ID)
			if !ok {
				return nil, errors.NewConfigurationError(fmt.Sprintf("sensor %d (%s) is not configured", e.ID, e.Name), nil).
					WithOp(OpResolve).WithEntity(e.ID)
			}
			p.hiveID = sc.HiveID
			p.modules = sc.Modules
		default:
			return nil, errors.NewConfigurationError(fmt.Sprintf("unsupported source entity %q", s.source.Kind()), nil).WithOp(OpResolve)
		}
		plans = append(plans, p)
	}
	return plans, nil
}

func (s *SyncService) syncEntity(ctx context.Context, p plan) Result {
	start := time.Now()
	e := p.entity
	res := Result{EntityID: e.ID, Kind: string(s.source.Kind()), Name: e.Name, Status: StatusOK}

	fail := func(op string, err error) Result {
		res.fail(op, err)
		res.Duration = time.Since(start)
		nuts.L.Errorf("[SyncService] %s %d (%s) failed during %s: %v", res.Kind, e.ID, e.Name, op, err)
		return res
	}

	if s.source.Kind() == models.EntityKindHives {
		res.Op = "upsert_hive"
		if err := s.store.UpsertHive(ctx, e.ID, e.Name, p.apiaryID); err != nil {
			return fail(res.Op, err)
		}
	} else {
		res.Op = "upsert_sensor"
		sensor := &models.Sensor{ID: e.ID, Name: e.Name, Raw: e.RawJSON()}
		// an empty list leaves the stored modules alone
		switch {
		case len(e.Modules) > 0:
			sensor.Modules = e.Modules
		case len(p.modules) > 0:
			sensor.Modules = p.modules
		}
		if p.hiveID != 0 {
			hiveID := p.hiveID
			sensor.HiveID = &hiveID
		}
		if err := s.store.UpsertSensor(ctx, sensor); err != nil {
			return fail(res.Op, err)
		}
	}

	latest, err := s.store.LatestHistoryTime(ctx, e.ID)
	if err != nil {
		return fail("latest_history", err)
	}
	res.Limit = HistoryLimit(latest, s.now(), s.cfg.Source.MaxHistoryLimit)

	res.Op = OpFetchHistory
	records, err := s.source.FetchHistory(ctx, e.ID, res.Limit, s.cfg.Source.Attributes)
	if err != nil {
		return fail(res.Op, err)
	}
	res.Fetched = len(records)

	res.Op = OpTransform
	rows := make([]*models.History, 0, len(records))
	for _, rec := range records {
		row, err := models.HistoryFromRecord(e.ID, rec)
		if err != nil {
			return fail(res.Op, err)
		}
		rows = append(rows, row)
	}

	res.Op = "upsert_history"
	n, err := s.store.UpsertHistoryBatch(ctx, rows)
	if err != nil {
		return fail(res.Op, err)
	}
	res.Upserted = n
	res.Duration = time.Since(start)
	nuts.L.Infof("[SyncService] %s %d (%s): limit=%d fetched=%d upserted=%d", res.Kind, e.ID, e.Name, res.Limit, res.Fetched, n)
	return res
}

func sensorFromConfig(sc config.SensorConfig) *models.Sensor {
	sensor := &models.Sensor{ID: sc.ID, Name: sc.Name}
	if len(sc.Modules) > 0 {
		sensor.Modules = sc.Modules
	}
	if sc.HiveID != 0 {
		hiveID := sc.HiveID
		sensor.HiveID = &hiveID
	}
	return sensor
}
