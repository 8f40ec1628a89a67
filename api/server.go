// Package api provides the HTTP API server for escort pricing.
// It exposes the completeness gate, the baseline calculator, the resolution
// pipeline and the combined quote as JSON endpoints.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"escort-pricing/db/clickhouse"
	"escort-pricing/decision/policy"
	"escort-pricing/decision/quote"
	pricing "escort-pricing/pkg/api"
	perrors "escort-pricing/pkg/errors"
	"escort-pricing/pkg/platform"
)

var startTime = time.Now()

// SnapshotLister is the read side of the rate card snapshot store.
type SnapshotLister interface {
	Ping(ctx context.Context) error
	ListSnapshots(ctx context.Context, alias string) ([]*clickhouse.RateCardSnapshot, error)
}

// Server is the HTTP API server
type Server struct {
	httpServer *http.Server
	quotes     *quote.Service
	snapshots  SnapshotLister
	logger     zerolog.Logger
	config     *Config
}

// Config holds server configuration
type Config struct {
	Port           int
	Version        string
	APIKey         string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	MaxRequestSize int64

	// MaxRate adds a deny policy for quotes above it. Zero disables it.
	MaxRate   float64
	AccessLog bool
}

// DefaultConfig returns default server configuration. ESCORT_PORT,
// ESCORT_API_KEY, ESCORT_MAX_RATE and ESCORT_ACCESS_LOG override it.
func DefaultConfig() *Config {
	return &Config{
		Port:           platform.GetEnvInt("ESCORT_PORT", 8080),
		Version:        "0.1.0",
		APIKey:         platform.GetEnv("ESCORT_API_KEY", ""),
		ReadTimeout:    30 * time.Second,
		WriteTimeout:   60 * time.Second,
		MaxRequestSize: 1 * 1024 * 1024, // 1MB
		MaxRate:        platform.GetEnvFloat("ESCORT_MAX_RATE", 0),
		AccessLog:      platform.GetEnvBool("ESCORT_ACCESS_LOG", true),
	}
}

// NewServer creates a new API server. snapshots may be nil when no snapshot
// store is configured.
func NewServer(quotes *quote.Service, snapshots SnapshotLister, logger zerolog.Logger, config *Config) *Server {
	if config == nil {
		config = DefaultConfig()
	}
	return &Server{
		quotes:    quotes,
		snapshots: snapshots,
		logger:    logger.With().Str("component", "api").Logger(),
		config:    config,
	}
}

// Handler builds the routed handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	if s.config.AccessLog {
		r.Use(s.requestLogger)
	}
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/health", s.handleHealth)
	r.Get("/ready", s.handleReady)
	r.Get("/version", s.handleVersion)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(platform.APIKeyMiddleware(s.config.APIKey))
		r.Post("/completeness", s.handleCompleteness)
		r.Post("/estimate", s.handleEstimate)
		r.Post("/resolve", s.handleResolve)
		r.Post("/quote", s.handleQuote)
		r.Get("/ratecard/snapshots", s.handleListSnapshots)
	})

	return r
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.Handler(),
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}

	s.logger.Info().
		Int("port", s.config.Port).
		Str("version", s.config.Version).
		Bool("snapshots", s.snapshots != nil).
		Msg("Starting escort pricing API server")
	return s.httpServer.ListenAndServe()
}

// StartWithGracefulShutdown starts server with graceful shutdown handling
func (s *Server) StartWithGracefulShutdown() error {
	errChan := make(chan error, 1)
	go func() {
		if err := s.Start(); err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		return err
	case <-quit:
		s.logger.Info().Msg("Shutting down server")
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return s.httpServer.Shutdown(ctx)
	}
}

// =============================================================================
// MIDDLEWARE
// =============================================================================

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Info().
			Str("request_id", middleware.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("duration", time.Since(start)).
			Msg("Request handled")
	})
}

// =============================================================================
// HEALTH ENDPOINTS
// =============================================================================

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "escort-pricing",
		"version": s.config.Version,
		"uptime":  time.Since(startTime).Round(time.Second).String(),
	})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.snapshots != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()
		if err := s.snapshots.Ping(ctx); err != nil {
			s.jsonError(w, http.StatusServiceUnavailable, "unavailable", "snapshot store not ready")
			return
		}
	}
	s.jsonResponse(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]string{
		"version": s.config.Version,
		"service": "escort-pricing",
	})
}

// =============================================================================
// PRICING ENDPOINTS
// =============================================================================

func (s *Server) handleCompleteness(w http.ResponseWriter, r *http.Request) {
	var draft pricing.QuoteDraft
	if !s.decode(w, r, &draft) {
		return
	}
	s.jsonResponse(w, http.StatusOK, s.quotes.Gate().Score(draft))
}

func (s *Server) handleEstimate(w http.ResponseWriter, r *http.Request) {
	var trip pricing.TripRequest
	if !s.decode(w, r, &trip) {
		return
	}
	s.jsonResponse(w, http.StatusOK, s.quotes.Calculator().Estimate(trip))
}

func (s *Server) handleResolve(w http.ResponseWriter, r *http.Request) {
	var req pricing.RateRequest
	if !s.decode(w, r, &req) {
		return
	}
	s.jsonResponse(w, http.StatusOK, s.quotes.Pipeline().Resolve(req))
}

func (s *Server) handleQuote(w http.ResponseWriter, r *http.Request) {
	var req quote.Request
	if !s.decode(w, r, &req) {
		return
	}
	if s.config.MaxRate > 0 {
		req.CustomPolicies = append(req.CustomPolicies, policy.MaxRatePolicy(s.config.MaxRate))
	}
	q, err := s.quotes.Quote(r.Context(), &req)
	if err != nil {
		s.jsonError(w, http.StatusInternalServerError, "quote_failed", err.Error())
		return
	}
	s.jsonResponse(w, http.StatusOK, q)
}

// =============================================================================
// SNAPSHOT ENDPOINT
// =============================================================================

// SnapshotResponse is a rate card snapshot without its payload.
type SnapshotResponse struct {
	ID        string `json:"id"`
	Alias     string `json:"alias"`
	Name      string `json:"name"`
	Source    string `json:"source"`
	Version   string `json:"version"`
	Hash      string `json:"hash"`
	IsActive  bool   `json:"isActive"`
	CreatedAt string `json:"createdAt"`
}

func (s *Server) handleListSnapshots(w http.ResponseWriter, r *http.Request) {
	if s.snapshots == nil {
		s.jsonError(w, http.StatusNotImplemented, "not_configured", "no snapshot store configured")
		return
	}

	alias := r.URL.Query().Get("alias")
	if alias == "" {
		alias = clickhouse.DefaultAlias
	}

	snapshots, err := s.snapshots.ListSnapshots(r.Context(), alias)
	if err != nil {
		s.logger.Error().Err(err).Str("alias", alias).Msg("Failed to list snapshots")
		s.jsonError(w, http.StatusInternalServerError, "list_failed", "failed to list snapshots")
		return
	}

	resp := make([]SnapshotResponse, len(snapshots))
	for i, snap := range snapshots {
		hash := snap.Hash
		if len(hash) > 16 {
			hash = hash[:16] + "..."
		}
		resp[i] = SnapshotResponse{
			ID:        snap.ID.String(),
			Alias:     snap.Alias,
			Name:      snap.Name,
			Source:    snap.Source,
			Version:   snap.Version,
			Hash:      hash,
			IsActive:  snap.IsActive,
			CreatedAt: snap.CreatedAt.Format(time.RFC3339),
		}
	}

	s.jsonResponse(w, http.StatusOK, resp)
}

// =============================================================================
// HELPERS
// =============================================================================

// decode reads a JSON body into v, writing a 400 on failure.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, s.config.MaxRequestSize)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		qe := perrors.NewInvalidRequestError(err)
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			s.jsonError(w, http.StatusRequestEntityTooLarge, qe.Code, "request body too large")
			return false
		}
		s.jsonError(w, http.StatusBadRequest, qe.Code, qe.Message)
		return false
	}
	return true
}

func (s *Server) jsonResponse(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error().Err(err).Msg("Failed to encode response")
	}
}

func (s *Server) jsonError(w http.ResponseWriter, status int, code, message string) {
	s.jsonResponse(w, status, map[string]string{
		"error":   code,
		"message": message,
	})
}
