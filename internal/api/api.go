// Package api exposes missiv over HTTP.
//
// Desks identify themselves with the desk_id query parameter.
// Authenticating that claim is left to a fronting proxy.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/tOgg1/missiv/internal/directory"
	"github.com/tOgg1/missiv/internal/logging"
	"github.com/tOgg1/missiv/internal/metrics"
	"github.com/tOgg1/missiv/internal/missiv"
)

const (
	defaultEventLimit = 50
	maxEventLimit     = 500

	// maxRequestBytes leaves room for JSON framing around a 1MiB body.
	maxRequestBytes = 2 << 20
)

// Options configures the API.
type Options struct {
	Directory directory.Directory
	Metrics   *metrics.Metrics

	// Gatherer serves /metrics when set.
	Gatherer prometheus.Gatherer

	// RateLimitRPS limits mutating requests per desk. 0 disables limiting.
	RateLimitRPS   float64
	RateLimitBurst int

	Logger *zerolog.Logger
}

// API holds the HTTP handlers.
type API struct {
	svc       *missiv.Service
	directory directory.Directory
	metrics   *metrics.Metrics
	gatherer  prometheus.Gatherer
	limiter   *limiterPool
	logger    zerolog.Logger
}

// New creates an API backed by svc.
func New(svc *missiv.Service, opts Options) *API {
	a := &API{
		svc:       svc,
		directory: opts.Directory,
		metrics:   opts.Metrics,
		gatherer:  opts.Gatherer,
		logger:    logging.Component("api"),
	}
	if opts.Logger != nil {
		a.logger = *opts.Logger
	}
	if opts.RateLimitRPS > 0 {
		a.limiter = newLimiterPool(opts.RateLimitRPS, opts.RateLimitBurst)
	}
	return a
}

// Handler returns the routed handler with logging and metrics middleware.
func (a *API) Handler() http.Handler {
	r := mux.NewRouter()
	r.Use(a.observe)

	r.HandleFunc("/healthz", a.healthz).Methods(http.MethodGet)
	r.HandleFunc("/readyz", a.readyz).Methods(http.MethodGet)
	if a.gatherer != nil {
		r.Handle("/metrics", metrics.Handler(a.gatherer)).Methods(http.MethodGet)
	}

	api := r.PathPrefix("/api").Subrouter()

	api.HandleFunc("/conversations", a.limited(a.createConversation)).Methods(http.MethodPost)
	api.HandleFunc("/conversations", a.listConversations).Methods(http.MethodGet)
	api.HandleFunc("/conversations/{id}", a.getConversation).Methods(http.MethodGet)
	api.HandleFunc("/conversations/{id}/reply", a.limited(a.reply)).Methods(http.MethodPost)
	api.HandleFunc("/conversations/{id}/archive", a.limited(a.archive)).Methods(http.MethodPost)

	api.HandleFunc("/mivs/{id}/read", a.limited(a.markRead)).Methods(http.MethodPost)
	api.HandleFunc("/mivs/{id}/forget", a.limited(a.forget)).Methods(http.MethodPost)

	api.HandleFunc("/baskets", a.basketCounts).Methods(http.MethodGet)
	api.HandleFunc("/baskets/{basket}", a.listBasket).Methods(http.MethodGet)

	api.HandleFunc("/events", a.listEvents).Methods(http.MethodGet)
	api.HandleFunc("/events/{id}/read", a.limited(a.markEventRead)).Methods(http.MethodPost)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "route not found", Code: "not_found"})
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: "method not allowed", Code: "method_not_allowed"})
	})
	return r
}

func (a *API) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (a *API) readyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := a.svc.Ping(ctx); err != nil {
		a.logger.Warn().Err(err).Msg("readiness check failed")
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "database unavailable", Code: "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
