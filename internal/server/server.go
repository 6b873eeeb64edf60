// Package server provides the HTTP server and routing for ClusterRisk.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/clusterrisk/clusterrisk/internal/backup"
	"github.com/clusterrisk/clusterrisk/internal/config"
	"github.com/clusterrisk/clusterrisk/internal/events"
	"github.com/clusterrisk/clusterrisk/internal/modules/analysis"
	analysishandlers "github.com/clusterrisk/clusterrisk/internal/modules/analysis/handlers"
	"github.com/clusterrisk/clusterrisk/internal/modules/funds"
	fundshandlers "github.com/clusterrisk/clusterrisk/internal/modules/funds/handlers"
	"github.com/clusterrisk/clusterrisk/internal/modules/history"
	historyhandlers "github.com/clusterrisk/clusterrisk/internal/modules/history/handlers"
	"github.com/clusterrisk/clusterrisk/internal/modules/sectors"
	sectorshandlers "github.com/clusterrisk/clusterrisk/internal/modules/sectors/handlers"
)

// Config holds server configuration
type Config struct {
	Log       zerolog.Logger
	Config    *config.Config
	Bus       *events.Bus
	HistoryDB *sql.DB
	CacheDB   *sql.DB
	FundStore *funds.Store
	Funds     *funds.Service
	Sectors   *sectors.Service
	Analysis  *analysis.Service
	History   *history.Service
	Backup    *backup.Runner
	Version   string
}

// Server represents the HTTP server
type Server struct {
	router *chi.Mux
	server *http.Server
	log    zerolog.Logger
	cfg    *config.Config

	systemHandlers   *SystemHandlers
	streamHandler    *StreamHandler
	analysisHandlers *analysishandlers.Handler
	fundsHandlers    *fundshandlers.Handler
	sectorsHandlers  *sectorshandlers.Handler
	historyHandlers  *historyhandlers.Handler
}

// New creates a new HTTP server
func New(cfg Config) *Server {
	s := &Server{
		router: chi.NewRouter(),
		log:    cfg.Log.With().Str("component", "server").Logger(),
		cfg:    cfg.Config,

		systemHandlers: NewSystemHandlers(SystemConfig{
			Log:          cfg.Log,
			DataDir:      cfg.Config.DataDir,
			Version:      cfg.Version,
			BaseCurrency: cfg.Config.BaseCurrency,
			HistoryDB:    cfg.HistoryDB,
			CacheDB:      cfg.CacheDB,
			FundStore:    cfg.FundStore,
			History:      cfg.History,
			Sectors:      cfg.Sectors,
			Backup:       cfg.Backup,
		}),
		streamHandler:    NewStreamHandler(cfg.Bus, cfg.Log),
		analysisHandlers: analysishandlers.NewHandler(cfg.Analysis, cfg.Log),
		fundsHandlers:    fundshandlers.NewHandler(cfg.Funds, cfg.Log),
		sectorsHandlers:  sectorshandlers.NewHandler(cfg.Sectors, cfg.Log),
		historyHandlers:  historyhandlers.NewHandler(cfg.History, cfg.Log),
	}

	s.setupMiddleware(cfg.Config.DevMode)
	s.setupRoutes()

	// No WriteTimeout; the event stream endpoints hold connections open.
	s.server = &http.Server{
		Addr:        fmt.Sprintf(":%d", cfg.Config.Port),
		Handler:     s.router,
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	return s
}

// setupMiddleware configures middleware
func (s *Server) setupMiddleware(devMode bool) {
	// Recovery from panics
	s.router.Use(middleware.Recoverer)

	// Request ID
	s.router.Use(middleware.RequestID)

	// Real IP
	s.router.Use(middleware.RealIP)

	// Logging
	s.router.Use(s.loggingMiddleware)

	// CORS
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Compress responses
	if !devMode {
		s.router.Use(middleware.Compress(5))
	}
}

// setupRoutes configures all routes
func (s *Server) setupRoutes() {
	// Bare health check for load balancers and container probes
	s.router.Get("/health", s.systemHandlers.HandleHealth)

	s.router.Route("/api", func(r chi.Router) {
		r.Get("/events/stream", s.streamHandler.HandleSSE)
		r.Get("/events/ws", s.streamHandler.HandleWS)

		r.Route("/system", func(r chi.Router) {
			r.Get("/health", s.systemHandlers.HandleHealth)
			r.Get("/info", s.systemHandlers.HandleInfo)
			r.Post("/backup", s.systemHandlers.HandleBackup)
		})

		s.analysisHandlers.RegisterRoutes(r)
		s.fundsHandlers.RegisterRoutes(r)
		s.sectorsHandlers.RegisterRoutes(r)
		s.historyHandlers.RegisterRoutes(r)
	})
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.log.Info().Int("port", s.cfg.Port).Msg("Starting HTTP server")
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("Shutting down HTTP server")
	return s.server.Shutdown(ctx)
}

// Router exposes the chi mux, mainly for tests.
func (s *Server) Router() chi.Router {
	return s.router
}

// loggingMiddleware logs HTTP requests
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("duration_ms", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("HTTP request")
	})
}
