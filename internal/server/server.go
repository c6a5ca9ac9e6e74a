// Package server provides the HTTP server that wires all services together.
package server

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/snapsearch/snap-search/internal/analysis"
	"github.com/snapsearch/snap-search/internal/bus"
	"github.com/snapsearch/snap-search/internal/config"
	"github.com/snapsearch/snap-search/internal/metrics"
	"github.com/snapsearch/snap-search/internal/pkg/logger"
	"github.com/snapsearch/snap-search/internal/pkg/middleware"
	"github.com/snapsearch/snap-search/internal/pkg/security"
	"github.com/snapsearch/snap-search/internal/query"
	"github.com/snapsearch/snap-search/internal/search"
	"github.com/snapsearch/snap-search/internal/store"

	apperrors "github.com/snapsearch/snap-search/internal/pkg/errors"
)

// Server is the main HTTP server that wires all services together.
type Server struct {
	cfg        Config
	appCfg     config.Config
	log        *logger.Logger
	httpServer *http.Server

	// Services
	metrics *metrics.Metrics
	bus     bus.Bus
	photos  *store.Service
	queue   analysis.Queue
	worker  *analysis.Worker
	search  *search.Service

	// Handlers
	searchHandler *search.Handler
	healthHandler *search.HealthHandler
	photoHandler  *PhotoHandler

	collector *metrics.Collector
	rateLimit *middleware.RateLimiter

	workerCancel context.CancelFunc

	mu      sync.RWMutex
	started bool
}

// Config configures the server.
type Config struct {
	// Host is the address to bind to.
	Host string

	// Port is the HTTP port.
	Port int

	// Version is the application version.
	Version string

	// ReadTimeout is the HTTP read timeout.
	ReadTimeout time.Duration

	// WriteTimeout is the HTTP write timeout.
	WriteTimeout time.Duration

	// ShutdownTimeout is the graceful shutdown timeout.
	ShutdownTimeout time.Duration
}

// DefaultConfig returns sensible server defaults.
func DefaultConfig() Config {
	return Config{
		Host:            "0.0.0.0",
		Port:            8080,
		Version:         "dev",
		ReadTimeout:     30 * time.Second,
		WriteTimeout:    60 * time.Second,
		ShutdownTimeout: 30 * time.Second,
	}
}

// New creates a new server with all dependencies.
func New(cfg Config, appCfg config.Config, log *logger.Logger) (*Server, error) {
	if cfg.Port == 0 {
		cfg = DefaultConfig()
	}
	if log == nil {
		log = logger.Default()
	}

	s := &Server{
		cfg:    cfg,
		appCfg: appCfg,
		log:    log,
	}

	// Initialize metrics, persisted to Redis when available
	if appCfg.Redis.URL != "" {
		s.metrics = metrics.NewWithRedis(appCfg.Redis.URL)
	} else {
		s.metrics = metrics.New()
	}

	// Initialize event bus, instrumented so publishes show up in metrics
	rawBus, err := bus.NewBus(appCfg.Bus)
	if err != nil {
		return nil, fmt.Errorf("failed to create event bus: %w", err)
	}
	s.bus = bus.NewInstrumentedBus(rawBus, s.metrics)

	// Initialize photo storage
	var storage store.Storage
	if appCfg.Redis.URL != "" {
		storage, err = store.NewRedisStorage(appCfg.Redis.URL, appCfg.Redis.KeyPrefix)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to Redis: %w", err)
		}
	} else {
		log.Warn("No Redis URL configured, using in-memory storage")
		storage = store.NewMemoryStorage()
	}
	s.photos = store.NewService(storage, log)

	// Initialize analysis queue and worker
	if appCfg.Redis.URL != "" {
		s.queue, err = analysis.NewRedisQueue(appCfg.Redis.URL, appCfg.Redis.KeyPrefix)
		if err != nil {
			return nil, fmt.Errorf("failed to create analysis queue: %w", err)
		}
	} else {
		s.queue = analysis.NewMemoryQueue()
	}

	var labeler analysis.Labeler
	if appCfg.Analysis.Provider == "openai" {
		labeler = analysis.NewOpenAILabeler(analysis.OpenAIConfig{
			APIKey:  appCfg.Analysis.OpenAIKey,
			BaseURL: appCfg.Analysis.OpenAIURL,
			Model:   appCfg.Analysis.Model,
		})
	} else {
		labeler = analysis.NewStaticLabeler()
	}

	s.worker = analysis.NewWorker(s.queue, labeler, s.photos, s.bus, log, analysis.WorkerConfig{
		Workers:      appCfg.Analysis.Workers,
		MaxAttempts:  appCfg.Analysis.MaxAttempts,
		PollInterval: time.Duration(appCfg.Analysis.PollInterval) * time.Second,
	})

	// Initialize search service
	parser := query.NewParser(log)
	s.search = search.NewService(parser, s.photos, log, search.Config{
		DefaultLimit:    appCfg.Search.DefaultLimit,
		MaxLimit:        appCfg.Search.MaxLimit,
		CandidateFactor: appCfg.Search.CandidateFactor,
	}).WithRecorder(s.metrics)

	// Initialize handlers
	s.searchHandler = search.NewHandler(s.search)
	s.healthHandler = search.NewHealthHandler(search.NewHealthChecker(s.photos), cfg.Version)
	s.photoHandler = NewPhotoHandler(s.photos, s.worker, s.bus, log).WithRecorder(s.metrics)

	s.collector = metrics.NewCollector(s.metrics, s.photos, s.queue)

	if appCfg.Security.RateLimit > 0 {
		s.rateLimit = middleware.NewRateLimiter(middleware.RateLimiterConfig{
			RequestsPerSecond: float64(appCfg.Security.RateLimit),
			Burst:             appCfg.Security.RateLimit * 2,
			CleanupInterval:   time.Minute,
		})
	}

	return s, nil
}

// Start starts the HTTP server and the analysis worker pool.
func (s *Server) Start() error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return fmt.Errorf("server already started")
	}
	s.started = true
	s.mu.Unlock()

	workerCtx, cancel := context.WithCancel(context.Background())
	s.workerCancel = cancel

	// Feed metrics from bus events
	subscriber := metrics.NewEventSubscriber(s.metrics, s.bus)
	if err := subscriber.SubscribeToEvents(workerCtx); err != nil {
		s.log.Warn("Failed to subscribe metrics to bus events", "error", err)
	}

	// Start the analysis worker pool
	go func() {
		if err := s.worker.Run(workerCtx); err != nil && workerCtx.Err() == nil {
			s.log.Error("Analysis worker stopped", "error", err)
		}
	}()

	// Keep gauges current
	go s.collectLoop(workerCtx)

	// Setup routes
	handler := s.setupRoutes()

	s.log.Info("Server configured", "settings", security.MaskSensitiveMap(map[string]string{
		"bus":     s.appCfg.Bus.Type,
		"redis":   s.appCfg.Redis.URL,
		"api_key": s.appCfg.Security.APIKey,
		"analysis_provider": s.appCfg.Analysis.Provider,
	}))

	// Create HTTP server
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}

	s.log.Info("Starting HTTP server", "addr", addr)
	return s.httpServer.ListenAndServe()
}

// collectLoop refreshes photo and queue gauges periodically.
func (s *Server) collectLoop(ctx context.Context) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.collector.Collect(ctx); err != nil {
				s.log.Debug("Metrics collection failed", "error", err)
			}
		}
	}
}

// Stop gracefully stops the server.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return nil
	}

	s.log.Info("Shutting down server...")

	if s.collector != nil {
		s.log.Info("Final stats:\n" + s.collector.Summary(ctx))
	}

	// Stop the worker pool and background loops
	if s.workerCancel != nil {
		s.workerCancel()
	}

	// Shutdown HTTP server
	shutdownCtx, cancel := context.WithTimeout(ctx, s.cfg.ShutdownTimeout)
	defer cancel()

	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			s.log.Error("HTTP shutdown error", "error", err)
		}
	}

	// Close services
	if s.queue != nil {
		s.queue.Close()
	}
	if s.photos != nil {
		s.photos.Close()
	}
	if s.bus != nil {
		s.bus.Close()
	}
	if s.metrics != nil {
		s.metrics.Close()
	}

	s.started = false
	s.log.Info("Server stopped")

	return nil
}

// setupRoutes configures all HTTP routes and middleware.
func (s *Server) setupRoutes() http.Handler {
	mux := http.NewServeMux()

	// Search endpoints
	mux.HandleFunc("/v1/search", s.searchHandler.HandleSearch)
	mux.HandleFunc("/v1/search/parse", s.searchHandler.HandleParse)
	mux.HandleFunc("/v1/search/examples", s.searchHandler.HandleExamples)

	// Photo endpoints
	s.photoHandler.RegisterRoutes(mux)

	// Health and version endpoints
	mux.HandleFunc("/v1/health", s.healthHandler.HandleHealth)
	mux.HandleFunc("/v1/version", s.handleVersion)

	// Metrics endpoint
	if s.appCfg.Observability.MetricsEnabled {
		path := s.appCfg.Observability.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		mux.Handle(path, s.metrics.Handler())
		mux.Handle(path+"/history", s.metrics.HistoryHandler())
	}

	// Middleware chain, innermost first
	var handler http.Handler = mux
	handler = ResponseWrapperMiddleware(handler)
	handler = s.authMiddleware(handler)
	if s.rateLimit != nil {
		handler = s.rateLimit.Middleware(handler)
	}
	handler = s.corsMiddleware(handler)
	handler = s.requestLogMiddleware(handler)
	handler = metrics.HTTPMiddleware(s.metrics, handler)
	handler = middleware.Recovery(s.log, handler)

	return handler
}

// requestLogMiddleware emits a debug line per request. Credentials in
// headers are masked before they reach the log.
func (s *Server) requestLogMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.log.Debug("Request received",
			"method", r.Method,
			"path", r.URL.Path,
			"remote", r.RemoteAddr,
			"headers", security.MaskSensitiveHeaders(r.Header),
		)
		next.ServeHTTP(w, r)
	})
}

// handleVersion handles GET /v1/version
func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	fmt.Fprintf(w, `{"version":%q}`, s.cfg.Version)
}

// authMiddleware enforces the API key on /v1/* endpoints when configured.
// Health and version stay open for probes.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := s.appCfg.Security.APIKey
		if key == "" || !strings.HasPrefix(r.URL.Path, "/v1/") {
			next.ServeHTTP(w, r)
			return
		}
		if r.URL.Path == "/v1/health" || r.URL.Path == "/v1/version" {
			next.ServeHTTP(w, r)
			return
		}

		if r.Header.Get("X-API-Key") != key {
			apperrors.WriteError(w, apperrors.UnauthorizedError())
			return
		}

		next.ServeHTTP(w, r)
	})
}

// corsMiddleware applies the configured CORS policy.
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origins := s.appCfg.Security.CORSOrigins
		if origins == "" {
			origins = "*"
		}
		w.Header().Set("Access-Control-Allow-Origin", origins)
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-API-Key")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// Health returns the server health status.
func (s *Server) Health() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.started
}
