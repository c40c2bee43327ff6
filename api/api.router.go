// FilePath: api/api.router.go
package api

import (
	"io"
	"net/http"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/jodok/bees/api/middleware"
	"github.com/jodok/bees/api/resources"
	nuts "github.com/vaudience/go-nuts"
)

type Router struct {
	router    *mux.Router
	auth      *middleware.TokenMiddleware
	resources *resources.Resources
	handler   http.Handler
}

// NewRouter wires the status API. An empty token leaves the protected
// routes open.
func NewRouter(res *resources.Resources, token string) *Router {
	r := &Router{
		router:    mux.NewRouter(),
		auth:      middleware.NewTokenMiddleware(token),
		resources: res,
	}
	r.setupRoutes()

	r.handler = handlers.CustomLoggingHandler(io.Discard, r.router, logRequest)
	r.handler = handlers.RecoveryHandler(
		handlers.RecoveryLogger(recoveryLogger{}),
		handlers.PrintRecoveryStack(true),
	)(r.handler)
	return r
}

func (r *Router) setupRoutes() {
	r.router.NotFoundHandler = http.HandlerFunc(r.resources.NotFound)

	if r.resources.Metrics != nil {
		r.router.Handle("/metrics", r.resources.Metrics).Methods(http.MethodGet)
	}

	// API version prefix
	v1 := r.router.PathPrefix("/v1").Subrouter()

	// Public routes
	v1.HandleFunc("/health", r.resources.HealthCheck).Methods(http.MethodGet)

	// Protected routes
	protected := v1.PathPrefix("").Subrouter()
	protected.Use(r.auth.Authenticate)

	protected.HandleFunc("/status", r.resources.Status).Methods(http.MethodGet)

	entities := protected.PathPrefix("/entities").Subrouter()
	entities.HandleFunc("", r.resources.Entities.ListEntities).Methods(http.MethodGet)
	entities.HandleFunc("/{id:[0-9]+}/history", r.resources.Entities.GetEntityHistory).Methods(http.MethodGet)

	events := protected.PathPrefix("/events").Subrouter()
	events.HandleFunc("", r.resources.Events.ListEvents).Methods(http.MethodGet)
	events.HandleFunc("", r.resources.Events.CreateEvent).Methods(http.MethodPost)
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.handler.ServeHTTP(w, req)
}

func logRequest(_ io.Writer, p handlers.LogFormatterParams) {
	nuts.L.Infof("[API] %s %s -> %d (%d bytes) %s",
		p.Request.Method, p.URL.RequestURI(), p.StatusCode, p.Size, time.Since(p.TimeStamp).Round(time.Microsecond))
}

type recoveryLogger struct{}

func (recoveryLogger) Println(v ...interface{}) {
	nuts.L.Errorf("[API] panic recovered: %v", v)
}
