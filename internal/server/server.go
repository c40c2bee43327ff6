// FilePath: internal/server/server.go
package server

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jodok/bees/api"
	"github.com/jodok/bees/api/resources"
	"github.com/jodok/bees/internal/config"
	"github.com/jodok/bees/internal/monitoring"
	"github.com/robfig/cron/v3"
	nuts "github.com/vaudience/go-nuts"
)

// Server runs the scheduled jobs and the status API.
type Server struct {
	config     *config.Config
	stack      *Stack
	jobs       *Jobs
	monitoring *monitoring.Service
	cron       *cron.Cron
	srv        *http.Server

	// ctx is cancelled on shutdown and aborts running jobs.
	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a new server instance
func New(cfg *config.Config, st *Stack) *Server {
	ctx, cancel := context.WithCancel(context.Background())
	mon := monitoring.NewService(cfg.Monitoring)
	s := &Server{
		config:     cfg,
		stack:      st,
		jobs:       NewJobs(st, mon),
		monitoring: mon,
		cron:       cron.New(cron.WithLogger(cronLogger{}), cron.WithChain(cron.Recover(cronLogger{}))),
		ctx:        ctx,
		cancel:     cancel,
	}

	res := resources.NewResources(st.Hub)
	res.SetHealthCheck(s.handleHealth)
	if mon.Enabled() {
		res.SetMetrics(mon.Handler())
	}
	s.srv = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      api.NewRouter(res, cfg.Server.AuthToken),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	return s
}

// Handler exposes the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.srv.Handler
}

// Schedule registers the configured jobs with the scheduler. An empty
// schedule disables the job.
func (s *Server) Schedule() error {
	if spec := s.config.Schedule.Sync; spec != "" {
		if _, err := s.cron.AddFunc(spec, s.runSync); err != nil {
			return fmt.Errorf("invalid sync schedule %q: %w", spec, err)
		}
		nuts.L.Infof("[Server] sync scheduled at %q", spec)
	}
	if spec := s.config.Schedule.Republish; spec != "" && len(s.config.Beep.Mappings) > 0 {
		if _, err := s.cron.AddFunc(spec, s.runRepublish); err != nil {
			return fmt.Errorf("invalid republish schedule %q: %w", spec, err)
		}
		nuts.L.Infof("[Server] republish scheduled at %q", spec)
	}
	return nil
}

// Start begins listening for requests
func (s *Server) Start() error {
	if err := s.Schedule(); err != nil {
		return err
	}
	s.cron.Start()

	if s.config.Schedule.RunOnStart {
		go func() {
			s.runSync()
			if len(s.config.Beep.Mappings) > 0 {
				s.runRepublish()
			}
		}()
	}

	errc := make(chan error, 1)
	go func() {
		nuts.L.Infof("[Server] Starting server on %s", s.srv.Addr)
		if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errc <- err
		}
	}()

	return s.waitForShutdown(errc)
}

func (s *Server) runSync() {
	if _, err := s.jobs.Sync(s.ctx, false); err != nil && !stderrors.Is(err, ErrSkipped) {
		nuts.L.Errorf("[Server] sync failed: %v", err)
	}
}

func (s *Server) runRepublish() {
	if _, err := s.jobs.Republish(s.ctx); err != nil && !stderrors.Is(err, ErrSkipped) {
		nuts.L.Errorf("[Server] republish failed: %v", err)
	}
}

// waitForShutdown waits for interrupt signal and gracefully shuts down the server
func (s *Server) waitForShutdown(errc <-chan error) error {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	var serveErr error
	select {
	case <-quit:
	case serveErr = <-errc:
		nuts.L.Errorf("[Server] Error starting server: %v", serveErr)
	}

	nuts.L.Infof("[Server] Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), s.config.Server.ShutdownTimeout)
	defer cancel()

	s.cancel()
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
		nuts.L.Warnf("[Server] jobs still running at shutdown deadline")
	}

	if err := s.srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("error shutting down server: %w", err)
	}
	if serveErr != nil {
		return serveErr
	}

	nuts.L.Infof("[Server] Server shut down successfully")
	return nil
}

// handleHealth reports ok while the database answers.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status, code := "ok", http.StatusOK
	if s.stack.DB != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.stack.DB.Ping(ctx); err != nil {
			nuts.L.Warnf("[Server] health check: database ping failed: %v", err)
			status, code = "degraded", http.StatusServiceUnavailable
		}
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"status": status, "version": nuts.GetVersion()})
}

type cronLogger struct{}

// Info drops the per-tick messages.
func (cronLogger) Info(msg string, keysAndValues ...interface{}) {
	switch msg {
	case "start", "stop":
		nuts.L.Infof("[Cron] %s", msg)
	}
}

func (cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	nuts.L.Errorf("[Cron] %s: %v %v", msg, err, keysAndValues)
}
