// Package server provides the HTTP REST API for job application batch
// processing.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/jonathan/jobprep/internal/db"
	"github.com/jonathan/jobprep/internal/ratelimit"
	httplimit "github.com/jonathan/jobprep/internal/server/ratelimit"
	"github.com/jonathan/jobprep/internal/types"
	"github.com/jonathan/jobprep/internal/workflow"
)

// Store is the persistence surface the API consumes. *db.Store satisfies it.
type Store interface {
	workflow.ResultStore

	InsertJob(ctx context.Context, job *types.JobPosting) error
	ListJobs(ctx context.Context, limit int) ([]types.JobPosting, error)
	GetBatchResult(ctx context.Context, requestID string) (*workflow.BatchResult, error)
	ListBatchResults(ctx context.Context, limit int) ([]db.BatchSummary, error)
}

// JobIngestor turns a posting URL into a stored JobPosting.
type JobIngestor interface {
	FromURL(ctx context.Context, url string) (*types.JobPosting, error)
}

// Config holds server configuration.
type Config struct {
	Port     int
	Store    Store
	Handlers []workflow.StageHandler
	Limits   *ratelimit.Registry
	Ingestor JobIngestor // optional; POST /jobs returns 503 without it
	JWTSecret string     // empty disables authentication
	TokenTTL  time.Duration
}

// Server represents the HTTP server.
type Server struct {
	httpServer  *http.Server
	store       Store
	handlers    []workflow.StageHandler
	limits      *ratelimit.Registry
	ingestor    JobIngestor
	rateLimiter *httplimit.Limiter
	jwtService  *JWTService
}

// New creates a new server instance.
func New(cfg Config) (*Server, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("server requires a store")
	}
	if len(cfg.Handlers) == 0 {
		return nil, fmt.Errorf("server requires at least one stage handler")
	}

	s := &Server{
		store:       cfg.Store,
		handlers:    cfg.Handlers,
		limits:      cfg.Limits,
		ingestor:    cfg.Ingestor,
		rateLimiter: httplimit.NewLimiter(httplimit.LoadConfig()),
	}
	if cfg.JWTSecret != "" {
		s.jwtService = NewJWTService(cfg.JWTSecret, cfg.TokenTTL)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /batches", s.handleCreateBatch)
	mux.HandleFunc("POST /batches/stream", s.handleStreamBatch)
	mux.HandleFunc("GET /batches", s.handleListBatches)
	mux.HandleFunc("GET /batches/{id}", s.handleGetBatch)
	mux.HandleFunc("POST /jobs", s.handleIngestJob)
	mux.HandleFunc("GET /jobs", s.handleListJobs)
	mux.HandleFunc("GET /jobs/{id}", s.handleGetJob)
	mux.HandleFunc("GET /ratelimits", s.handleServiceLimits)
	mux.HandleFunc("GET /health", s.handleHealth)

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.withRateLimit(s.withAuth(s.withLogging(s.withCORS(mux)))),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 300 * time.Second, // batch runs are long
		IdleTimeout:  60 * time.Second,
	}

	return s, nil
}

// orchestrator builds a fresh orchestrator for one request, so progress
// callbacks never leak across concurrent batch runs.
func (s *Server) orchestrator() *workflow.Orchestrator {
	return workflow.NewOrchestrator(s.store, s.handlers)
}

// Start begins listening for requests and blocks until shutdown.
func (s *Server) Start() error {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		log.Printf("Server starting on %s", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	<-stop
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	s.rateLimiter.Stop()
	log.Println("Server stopped")
	return nil
}

// withCORS adds CORS headers.
func (s *Server) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// withLogging adds request logging.
func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		log.Printf("[%s] %s %s", r.Method, r.URL.Path, r.RemoteAddr)
		next.ServeHTTP(w, r)
		log.Printf("[%s] %s completed in %v", r.Method, r.URL.Path, time.Since(start))
	})
}

// withAuth validates the bearer token on every route except the health
// check. A server configured without a JWT secret runs unauthenticated.
func (s *Server) withAuth(next http.Handler) http.Handler {
	if s.jwtService == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}
		if _, err := s.jwtService.ValidateRequest(r); err != nil {
			s.errorResponse(w, http.StatusUnauthorized, "Unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// withRateLimit adds per-client rate limiting.
func (s *Server) withRateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		clientID := s.extractClientID(r)
		allowed, info := s.rateLimiter.Allow(clientID, r.URL.Path, r.Method)

		s.setRateLimitHeaders(w, info)
		if !allowed {
			s.rateLimitResponse(w, info)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// handleHealth returns server health status.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleServiceLimits reports the state of every upstream service governor.
func (s *Server) handleServiceLimits(w http.ResponseWriter, _ *http.Request) {
	if s.limits == nil {
		s.jsonResponse(w, http.StatusOK, map[string]ratelimit.Status{})
		return
	}
	s.jsonResponse(w, http.StatusOK, s.limits.AllStatus())
}

// jsonResponse writes a JSON response.
func (s *Server) jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("Error encoding JSON response: %v", err)
	}
}

// errorResponse writes an error JSON response.
func (s *Server) errorResponse(w http.ResponseWriter, status int, message string) {
	s.jsonResponse(w, status, map[string]string{"error": message})
}

// pathUUID parses the {id} path segment as a UUID.
func pathUUID(r *http.Request) (uuid.UUID, error) {
	return uuid.Parse(r.PathValue("id"))
}

// extractClientID extracts the client identifier from the request. Uses the
// IP from RemoteAddr; X-Forwarded-For is not trusted.
func (s *Server) extractClientID(r *http.Request) string {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// setRateLimitHeaders sets standard rate limit headers on the response.
func (s *Server) setRateLimitHeaders(w http.ResponseWriter, info httplimit.Info) {
	if info.Limit > 0 {
		w.Header().Set("X-RateLimit-Limit", fmt.Sprintf("%d", info.Limit))
		w.Header().Set("X-RateLimit-Remaining", fmt.Sprintf("%d", info.Remaining))
		w.Header().Set("X-RateLimit-Reset", fmt.Sprintf("%d", info.ResetTime.Unix()))
	}
}

// rateLimitResponse writes a 429 Too Many Requests response.
func (s *Server) rateLimitResponse(w http.ResponseWriter, info httplimit.Info) {
	response := map[string]any{
		"error":     "rate_limit_exceeded",
		"message":   "Rate limit exceeded. Please try again later.",
		"limit":     info.Limit,
		"remaining": info.Remaining,
		"reset_at":  info.ResetTime.Format(time.RFC3339),
	}
	if info.RetryAfter > 0 {
		response["retry_after"] = int(info.RetryAfter.Seconds())
		w.Header().Set("Retry-After", fmt.Sprintf("%d", int(info.RetryAfter.Seconds())))
	}
	s.jsonResponse(w, http.StatusTooManyRequests, response)
}
