package monitoring

import (
	"net/http"
	"sort"
	"time"

	"github.com/jodok/bees/internal/config"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	nuts "github.com/vaudience/go-nuts"
)

// Service provides monitoring functionality
type Service struct {
	config   config.MonitoringConfig
	registry *prometheus.Registry

	events         *prometheus.CounterVec
	entities       *prometheus.CounterVec
	entityDuration *prometheus.HistogramVec
	historyRows    *prometheus.CounterVec
	runs           *prometheus.CounterVec
	lastRun        *prometheus.GaugeVec
	posts          *prometheus.CounterVec
	throttled      prometheus.Counter
}

// NewService creates a monitoring service with its own registry.
func NewService(cfg config.MonitoringConfig) *Service {
	ns := cfg.Namespace
	if ns == "" {
		ns = "bees"
	}
	s := &Service{
		config:   cfg,
		registry: prometheus.NewRegistry(),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns, Name: "events_total",
			Help: "Monitored events by name.",
		}, []string{"event"}),
		entities: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns, Name: "sync_entities_total",
			Help: "Synchronized entities by kind, status and error type.",
		}, []string{"kind", "status", "error_type"}),
		entityDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: ns, Name: "sync_entity_duration_seconds",
			Help:    "Time spent synchronizing one entity.",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
		}, []string{"kind"}),
		historyRows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns, Name: "history_rows_upserted_total",
			Help: "History rows merged into the store.",
		}, []string{"kind"}),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns, Name: "runs_total",
			Help: "Job runs by job and outcome.",
		}, []string{"job", "outcome"}),
		lastRun: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: ns, Name: "last_run_timestamp_seconds",
			Help: "Unix time of the last finished run per job.",
		}, []string{"job"}),
		posts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns, Name: "beep_posts_total",
			Help: "Measurements sent to BEEP by outcome.",
		}, []string{"outcome"}),
		throttled: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: ns, Name: "beep_throttled_seconds_total",
			Help: "Time spent waiting for the BEEP rate limit.",
		}),
	}
	s.registry.MustRegister(
		s.events, s.entities, s.entityDuration, s.historyRows,
		s.runs, s.lastRun, s.posts, s.throttled,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return s
}

// Enabled reports whether /metrics should be served.
func (s *Service) Enabled() bool {
	return s.config.MetricsEnabled
}

// Handler serves the registry in the Prometheus text format.
func (s *Service) Handler() http.Handler {
	return promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{Registry: s.registry})
}

// Registry exposes the underlying registry.
func (s *Service) Registry() *prometheus.Registry {
	return s.registry
}

// RecordEvent records a monitored event with labels
func (s *Service) RecordEvent(eventName string, labels map[string]string) {
	s.events.WithLabelValues(eventName).Inc()
	if len(labels) == 0 {
		nuts.L.Infof("[Monitoring] event %s", eventName)
		return
	}
	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, k+"="+labels[k])
	}
	nuts.L.Infof("[Monitoring] event %s %v", eventName, pairs)
}

// ObserveEntity records the outcome of one synchronized entity.
func (s *Service) ObserveEntity(kind, status, errorType string, rows int, d time.Duration) {
	s.entities.WithLabelValues(kind, status, errorType).Inc()
	s.entityDuration.WithLabelValues(kind).Observe(d.Seconds())
	if rows > 0 {
		s.historyRows.WithLabelValues(kind).Add(float64(rows))
	}
}

// ObserveRun records a finished job run.
func (s *Service) ObserveRun(job string, failed bool, finished time.Time) {
	outcome := "ok"
	if failed {
		outcome = "failed"
	}
	s.runs.WithLabelValues(job, outcome).Inc()
	s.lastRun.WithLabelValues(job).Set(float64(finished.Unix()))
}

// ObservePosts records BEEP upload outcomes and throttling time.
func (s *Service) ObservePosts(posted, rejected, failed int, throttled time.Duration) {
	s.posts.WithLabelValues("posted").Add(float64(posted))
	s.posts.WithLabelValues("rejected").Add(float64(rejected))
	s.posts.WithLabelValues("failed").Add(float64(failed))
	s.throttled.Add(throttled.Seconds())
}
