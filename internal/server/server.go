// Package server runs the missiv daemon: the database, the service, the
// HTTP API and the notification feed retention loop.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/tOgg1/missiv/internal/api"
	"github.com/tOgg1/missiv/internal/config"
	"github.com/tOgg1/missiv/internal/db"
	"github.com/tOgg1/missiv/internal/directory"
	"github.com/tOgg1/missiv/internal/events"
	"github.com/tOgg1/missiv/internal/metrics"
	"github.com/tOgg1/missiv/internal/missiv"
	"github.com/tOgg1/missiv/internal/models"
)

const (
	// DefaultHost is the default bind host.
	DefaultHost = "127.0.0.1"
	// DefaultPort is the default HTTP port.
	DefaultPort = 8480

	defaultShutdownTimeout = 10 * time.Second
)

// Options overrides parts of the configuration.
type Options struct {
	Hostname string
	Port     int

	// Registry receives the metrics collectors. A fresh registry with the Go
	// and process collectors is used when nil.
	Registry *prometheus.Registry
}

// Server is the missiv daemon.
type Server struct {
	cfg    *config.Config
	logger zerolog.Logger

	hostname string
	port     int

	database  *db.DB
	publisher *events.InMemoryPublisher
	retention *events.RetentionService
	service   *missiv.Service
	registry  *prometheus.Registry
	handler   http.Handler

	mu       sync.Mutex
	listener net.Listener
}

// New opens and migrates the database and wires the service and API.
func New(cfg *config.Config, logger zerolog.Logger, opts Options) (*Server, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}

	s := &Server{
		cfg:      cfg,
		logger:   logger,
		hostname: cfg.HTTP.Host,
		port:     cfg.HTTP.Port,
		registry: opts.Registry,
	}
	if opts.Hostname != "" {
		s.hostname = opts.Hostname
	}
	if opts.Port > 0 {
		s.port = opts.Port
	}
	if s.hostname == "" {
		s.hostname = DefaultHost
	}
	if s.port <= 0 {
		s.port = DefaultPort
	}
	if s.registry == nil {
		s.registry = metrics.NewRegistry()
	}

	dbCfg := db.Config{
		Path:           cfg.DatabasePath(),
		MaxConnections: cfg.Database.MaxConnections,
		BusyTimeoutMs:  cfg.Database.BusyTimeoutMs,
	}
	database, err := db.Open(dbCfg)
	if err != nil {
		return nil, err
	}
	applied, err := database.MigrateUp(context.Background())
	if err != nil {
		database.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	if applied > 0 {
		logger.Info().Int("applied", applied).Str("path", dbCfg.Path).Msg("database migrated")
	}
	s.database = database

	m := metrics.New(s.registry)
	s.publisher = events.NewInMemoryPublisher(events.WithLogger(logger.With().Str("component", "events").Logger()))
	s.service = missiv.New(database,
		missiv.WithPublisher(s.publisher),
		missiv.WithMetrics(m),
		missiv.WithLogger(logger.With().Str("component", "missiv").Logger()),
	)
	s.retention = events.NewRetentionService(cfg, s.service.Events())

	apiLogger := logger.With().Str("component", "api").Logger()
	apiOpts := api.Options{
		Directory:      directory.NewStatic(cfg.Directory),
		Metrics:        m,
		RateLimitRPS:   cfg.HTTP.RateLimitRPS,
		RateLimitBurst: cfg.HTTP.RateLimitBurst,
		Logger:         &apiLogger,
	}
	if cfg.HTTP.EnableMetrics {
		apiOpts.Gatherer = s.registry
	}
	s.handler = api.New(s.service, apiOpts).Handler()

	// Notifications are delivered by polling the feed; in-process
	// subscribers only trace them.
	if err := s.publisher.Subscribe("trace", events.Filter{}, func(event *models.Event) {
		s.logger.Debug().
			Str("event_type", string(event.Type)).
			Str("desk_id", event.EntityID).
			Msg("notification published")
	}); err != nil {
		database.Close()
		return nil, err
	}

	return s, nil
}

func (s *Server) bindAddr() string {
	return net.JoinHostPort(s.hostname, strconv.Itoa(s.port))
}

// Database returns the open database.
func (s *Server) Database() *db.DB {
	return s.database
}

// Service returns the messaging service.
func (s *Server) Service() *missiv.Service {
	return s.service
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Addr returns the listening address once Run has bound it.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Run serves HTTP until ctx is canceled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.bindAddr())
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.bindAddr(), err)
	}
	s.mu.Lock()
	s.listener = listener
	s.mu.Unlock()

	if err := s.retention.Start(ctx); err != nil {
		listener.Close()
		return fmt.Errorf("failed to start retention: %w", err)
	}
	defer s.retention.Stop()

	httpServer := &http.Server{
		Handler:      s.handler,
		ReadTimeout:  s.cfg.HTTP.ReadTimeout,
		WriteTimeout: s.cfg.HTTP.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", listener.Addr().String()).Msg("missivd listening")
		errCh <- httpServer.Serve(listener)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.logger.Info().Msg("shutting down")
	timeout := s.cfg.HTTP.ShutdownTimeout
	if timeout <= 0 {
		timeout = defaultShutdownTimeout
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Close releases the publisher and the database.
func (s *Server) Close() error {
	s.publisher.Close()
	if s.database != nil {
		return s.database.Close()
	}
	return nil
}
