// FilePath: internal/republisher/republisher.go
package republisher

import (
	"context"
	"time"

	"github.com/jodok/bees/internal/clients/beep"
	"github.com/jodok/bees/internal/config"
	"github.com/jodok/bees/internal/errors"
	"github.com/jodok/bees/internal/models"
	nuts "github.com/vaudience/go-nuts"
)

// State is a step of one republishing cycle.
type State string

const (
	StateIdle                State = "idle"
	StateFetchLastRemoteTime State = "fetch_last_remote_time"
	StateQueryLocalReadings  State = "query_local_readings"
	StateTransform           State = "transform"
	StatePost                State = "post"

	EventCycleFinished = "republish.cycle"

	WatermarkRemote  = "remote"
	WatermarkCached  = "cache"
	WatermarkDefault = "default"
)

// Destination is the BEEP API.
type Destination interface {
	LastValues(ctx context.Context, hiveID string) (time.Time, error)
	Post(ctx context.Context, key string, payload any) (beep.PostResult, error)
}

// HistoryReader reads stored readings, oldest first.
type HistoryReader interface {
	HistorySince(ctx context.Context, entityID int64, since time.Time) ([]*models.History, error)
}

// Cycle is the outcome of republishing one mapping.
type Cycle struct {
	EntityID        int64         `json:"entity_id"`
	HiveID          string        `json:"hive_id"`
	Watermark       time.Time     `json:"watermark"`
	WatermarkSource string        `json:"watermark_source"`
	Rows            int           `json:"rows"`
	Scale           int           `json:"scale"`
	Heart           int           `json:"heart"`
	Skipped         int           `json:"skipped"`
	Posted          int           `json:"posted"`
	Rejected        int           `json:"rejected"`
	Failed          int           `json:"failed"`
	Throttled       time.Duration `json:"throttled"`
	Error           string        `json:"error,omitempty"`
	States          []State       `json:"-"`
}

// Summary collects the cycles of one run.
type Summary struct {
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Cycles     []Cycle   `json:"cycles"`
}

// Posted returns the number of accepted measurements.
func (s *Summary) Posted() int {
	n := 0
	for _, c := range s.Cycles {
		n += c.Posted
	}
	return n
}

// Republisher forwards locally stored readings to BEEP.
type Republisher struct {
	cfg     config.BeepConfig
	dest    Destination
	history HistoryReader
	cache   WatermarkCache
	events  *nuts.EventEmitter
	now     func() time.Time
}

// New creates a Republisher. cache may be nil.
func New(cfg config.BeepConfig, dest Destination, history HistoryReader, cache WatermarkCache) *Republisher {
	if cfg.Overlap <= 0 {
		cfg.Overlap = 15 * time.Minute
	}
	if cfg.DefaultLookback <= 0 {
		cfg.DefaultLookback = 24 * time.Hour
	}
	return &Republisher{
		cfg:     cfg,
		dest:    dest,
		history: history,
		cache:   cache,
		events:  nuts.NewEventEmitter(),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// WithClock replaces the wall clock used for the default lookback.
func (r *Republisher) WithClock(now func() time.Time) *Republisher {
	r.now = now
	return r
}

// OnCycle registers a callback invoked after every mapping.
func (r *Republisher) OnCycle(id string, handler func(Cycle)) {
	r.events.On(EventCycleFinished, id, func(args ...interface{}) {
		if len(args) > 0 {
			if c, ok := args[0].(Cycle); ok {
				handler(c)
			}
		}
	})
}

// Run executes one cycle per configured mapping. Only cancellation aborts
// the run; every other failure is recorded on its cycle.
func (r *Republisher) Run(ctx context.Context) (*Summary, error) {
	summary := &Summary{StartedAt: r.now()}
	for _, m := range r.cfg.Mappings {
		if err := ctx.Err(); err != nil {
			summary.FinishedAt = r.now()
			return summary, errors.NewTransportError("republish run cancelled", err)
		}
		c := r.cycle(ctx, m)
		summary.Cycles = append(summary.Cycles, c)
		r.events.Emit(EventCycleFinished, c)
	}
	summary.FinishedAt = r.now()
	nuts.L.Infof("[Republisher] run finished: %d mappings, %d measurements posted", len(summary.Cycles), summary.Posted())
	return summary, nil
}

func (r *Republisher) cycle(ctx context.Context, m config.BeepMapping) Cycle {
	c := Cycle{EntityID: m.EntityID, HiveID: m.HiveID, States: []State{StateIdle}}
	enter := func(s State) { c.States = append(c.States, s) }

	enter(StateFetchLastRemoteTime)
	c.Watermark, c.WatermarkSource = r.watermark(ctx, m.HiveID)

	enter(StateQueryLocalReadings)
	since := c.Watermark.Add(-r.cfg.Overlap)
	rows, err := r.history.HistorySince(ctx, m.EntityID, since)
	if err != nil {
		nuts.L.Errorf("[Republisher] entity %d: reading history since %s failed: %v", m.EntityID, since.Format(time.RFC3339), err)
		c.Error = err.Error()
		enter(StateIdle)
		return c
	}
	c.Rows = len(rows)

	enter(StateTransform)
	type measurement struct {
		key     string
		device  Device
		time    time.Time
		payload any
	}
	var batch []measurement
	for _, row := range rows {
		devices := Classify(row)
		if len(devices) == 0 {
			nuts.L.Warnf("[Republisher] entity %d: reading at %s has neither weight nor tempIn, skipped", m.EntityID, row.Time.Format(time.RFC3339))
			c.Skipped++
			continue
		}
		for _, d := range devices {
			switch d {
			case DeviceScale:
				c.Scale++
				if m.ScaleKey != "" {
					batch = append(batch, measurement{m.ScaleKey, d, row.Time, NewScalePayload(row)})
				}
			case DeviceHeart:
				c.Heart++
				if m.HeartKey != "" {
					batch = append(batch, measurement{m.HeartKey, d, row.Time, NewHeartPayload(row)})
				}
			}
		}
	}

	enter(StatePost)
	var newest time.Time
	for _, ms := range batch {
		if ctx.Err() != nil {
			c.Error = ctx.Err().Error()
			break
		}
		res, err := r.dest.Post(ctx, ms.key, ms.payload)
		if err != nil {
			nuts.L.Errorf("[Republisher] entity %d: posting %s reading at %s failed: %v", m.EntityID, ms.device, ms.time.Format(time.RFC3339), err)
			c.Failed++
			continue
		}
		c.Throttled += res.Throttled
		if !res.OK() {
			nuts.L.Errorf("[Republisher] entity %d: %s reading at %s rejected with %d: %s", m.EntityID, ms.device, ms.time.Format(time.RFC3339), res.Status, res.Body)
			c.Rejected++
			continue
		}
		c.Posted++
		if ms.time.After(newest) {
			newest = ms.time
		}
	}

	if r.cache != nil && newest.After(c.Watermark) {
		if err := r.cache.Set(ctx, m.HiveID, newest); err != nil {
			nuts.L.Warnf("[Republisher] caching watermark for %s failed: %v", m.HiveID, err)
		}
	}

	enter(StateIdle)
	nuts.L.Infof("[Republisher] entity %d -> %s: watermark %s (%s), rows=%d scale=%d heart=%d skipped=%d posted=%d rejected=%d failed=%d",
		m.EntityID, m.HiveID, c.Watermark.Format(time.RFC3339), c.WatermarkSource, c.Rows, c.Scale, c.Heart, c.Skipped, c.Posted, c.Rejected, c.Failed)
	return c
}

// watermark asks BEEP for its newest measurement time, falling back to the
// cached value and then to the default lookback.
func (r *Republisher) watermark(ctx context.Context, hiveID string) (time.Time, string) {
	t, err := r.dest.LastValues(ctx, hiveID)
	if err == nil {
		if r.cache != nil {
			if err := r.cache.Set(ctx, hiveID, t); err != nil {
				nuts.L.Warnf("[Republisher] caching watermark for %s failed: %v", hiveID, err)
			}
		}
		return t, WatermarkRemote
	}
	nuts.L.Warnf("[Republisher] lastvalues for %s failed: %v", hiveID, err)

	if r.cache != nil {
		cached, cerr := r.cache.Get(ctx, hiveID)
		if cerr != nil {
			nuts.L.Warnf("[Republisher] reading cached watermark for %s failed: %v", hiveID, cerr)
		} else if cached != nil {
			return *cached, WatermarkCached
		}
	}
	return r.now().Add(-r.cfg.DefaultLookback), WatermarkDefault
}
