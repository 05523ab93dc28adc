// Package server provides the HTTP REST API for the resume analyzer.
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

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jonathan/resume-analyzer/internal/analysis"
	"github.com/jonathan/resume-analyzer/internal/config"
	"github.com/jonathan/resume-analyzer/internal/entitlement"
	"github.com/jonathan/resume-analyzer/internal/pipeline"
	"github.com/jonathan/resume-analyzer/internal/rendering"
	"github.com/jonathan/resume-analyzer/internal/server/middleware"
	"github.com/jonathan/resume-analyzer/internal/server/ratelimit"
	"github.com/jonathan/resume-analyzer/internal/storage"
	"github.com/jonathan/resume-analyzer/internal/types"
)

const (
	// writeGrace lets a handler report a blown request budget before the connection is cut.
	writeGrace          = 15 * time.Second
	defaultWriteTimeout = 300 * time.Second
	shutdownTimeout     = 30 * time.Second
)

// Analyzer runs the synchronous analysis pipeline. *pipeline.Orchestrator implements it.
type Analyzer interface {
	Submit(ctx context.Context, sub pipeline.Submission) (*types.CreateAnalysisResponse, error)
}

// Renderer produces a PDF from resume markdown. *rendering.PDFRenderer implements it.
type Renderer interface {
	RenderMarkdownToPDF(ctx context.Context, md string, style rendering.StyleProfile) ([]byte, error)
}

// Gate answers entitlement questions. *entitlement.Gate implements it.
type Gate interface {
	IsEntitled(ctx context.Context, principalID uuid.UUID, feature entitlement.Feature) bool
	Entitlements(ctx context.Context, principalID uuid.UUID) map[string]bool
}

// Deps are the collaborators of a Server. Tasks and RateLimit are optional.
type Deps struct {
	Users     UserStore
	Records   analysis.Store
	Blobs     storage.BlobStore
	Analyzer  Analyzer
	Renderer  Renderer
	Gate      Gate
	JWT       *config.JWTConfig
	Passwords *config.PasswordConfig
	// Tasks is drained on shutdown so in-flight rewrites can finish.
	Tasks     *pipeline.Tasks
	RateLimit *ratelimit.Config
	// Style is the PDF page profile; the zero value uses rendering.DefaultStyle.
	Style rendering.StyleProfile
}

// Config holds server configuration
type Config struct {
	Port           int
	MaxUploadBytes int64
	// RequestBudget bounds the synchronous pipeline and sets the write timeout ceiling.
	RequestBudget time.Duration
}

// Server represents the HTTP server
type Server struct {
	httpServer  *http.Server
	rateLimiter *ratelimit.Limiter
	jwtService  *JWTService
	userService *UserService
	authHandler *AuthHandler

	records  analysis.Store
	blobs    storage.BlobStore
	analyzer Analyzer
	renderer Renderer
	gate     Gate
	tasks    *pipeline.Tasks
	style    rendering.StyleProfile
	validate *validator.Validate

	maxUploadBytes int64
}

// New creates a new server instance
func New(cfg Config, deps Deps) (*Server, error) {
	switch {
	case deps.Users == nil:
		return nil, fmt.Errorf("user store is required")
	case deps.Records == nil:
		return nil, fmt.Errorf("record store is required")
	case deps.Blobs == nil:
		return nil, fmt.Errorf("blob store is required")
	case deps.Analyzer == nil:
		return nil, fmt.Errorf("analyzer is required")
	case deps.Renderer == nil:
		return nil, fmt.Errorf("renderer is required")
	case deps.Gate == nil:
		return nil, fmt.Errorf("entitlement gate is required")
	case deps.JWT == nil:
		return nil, fmt.Errorf("JWT config is required")
	case deps.Passwords == nil:
		return nil, fmt.Errorf("password config is required")
	}

	rateCfg := deps.RateLimit
	if rateCfg == nil {
		rateCfg = &ratelimit.Config{Enabled: false}
	}
	style := deps.Style
	if style == (rendering.StyleProfile{}) {
		style = rendering.DefaultStyle()
	}
	maxUpload := cfg.MaxUploadBytes
	if maxUpload <= 0 {
		maxUpload = config.DefaultMaxUploadBytes
	}

	s := &Server{
		rateLimiter:    ratelimit.NewLimiter(rateCfg),
		jwtService:     NewJWTService(deps.JWT),
		userService:    NewUserService(deps.Users, deps.Passwords),
		records:        deps.Records,
		blobs:          deps.Blobs,
		analyzer:       deps.Analyzer,
		renderer:       deps.Renderer,
		gate:           deps.Gate,
		tasks:          deps.Tasks,
		style:          style,
		validate:       validator.New(),
		maxUploadBytes: maxUpload,
	}
	s.authHandler = NewAuthHandler(s.userService, s.jwtService)

	writeTimeout := defaultWriteTimeout
	if cfg.RequestBudget > 0 {
		writeTimeout = cfg.RequestBudget + writeGrace
	}

	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           s.routes(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second, // Uploads up to the size cap
		WriteTimeout:      writeTimeout,
		IdleTimeout:       60 * time.Second,
	}

	return s, nil
}

// routes builds the full handler chain.
func (s *Server) routes() http.Handler {
	auth := middleware.AuthMiddleware(s.jwtService.AsTokenValidator())
	queryAuth := middleware.QueryTokenMiddleware(s.jwtService.AsTokenValidator(), middleware.DefaultTokenParam)
	protect := func(h http.HandlerFunc) http.Handler { return auth(h) }

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)

	// Authentication endpoints
	mux.HandleFunc("POST /auth/register", s.authHandler.Register)
	mux.HandleFunc("POST /auth/login", s.authHandler.Login)
	mux.Handle("GET /users/me", protect(s.handleGetMe))

	// Resume analyses
	mux.Handle("POST /resume-analyses", protect(s.handleCreateAnalysis))
	mux.Handle("GET /resume-analyses", protect(s.handleListAnalyses))
	mux.Handle("GET /resume-analyses/{id}", protect(s.handleGetAnalysis))
	mux.Handle("DELETE /resume-analyses/{id}", protect(s.handleDeleteAnalysis))
	mux.Handle("PUT /resume-analyses/{id}/rewrite-markdown", protect(s.handleUpdateRewriteMarkdown))
	mux.Handle("GET /resume-analyses/{id}/pdf", protect(s.handleAnalysisPDF))

	// Opened directly by browsers, so the token may arrive as ?token=
	mux.Handle("GET /resume-blobs/{locator}", queryAuth(http.HandlerFunc(s.handleGetBlob)))

	return s.withRateLimit(s.withLogging(s.withCORS(mux)))
}

// Handler returns the server's HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start begins listening for requests and blocks until SIGINT or SIGTERM.
func (s *Server) Start() error {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(stop)

	errCh := make(chan error, 1)
	go func() {
		log.Printf("[server] starting on %s", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		s.rateLimiter.Stop()
		return fmt.Errorf("server error: %w", err)
	case <-stop:
	}

	log.Println("[server] shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return s.Shutdown(ctx)
}

// Shutdown stops accepting requests, then waits for background rewrites.
func (s *Server) Shutdown(ctx context.Context) error {
	defer s.rateLimiter.Stop()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	if s.tasks != nil {
		if err := s.tasks.Shutdown(ctx); err != nil {
			return fmt.Errorf("background tasks did not finish: %w", err)
		}
	}
	log.Println("[server] stopped")
	return nil
}

// withCORS adds CORS headers
func (s *Server) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Expose-Headers", "Content-Disposition")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// withRateLimit adds rate limiting middleware
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

// statusRecorder captures the response status for request logging.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// withLogging adds request logging. Query strings are omitted since they may carry tokens.
func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		log.Printf("[server] %s %s %s -> %d in %v", r.Method, r.URL.Path, r.RemoteAddr, rec.status, time.Since(start))
	})
}

// handleHealth returns server health status
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	jsonResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}

// writeError maps err to a status and caller-safe message. Server-side
// failures are logged with the request path.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	status := HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		log.Printf("[server] %s %s failed: %v", r.Method, r.URL.Path, err)
	}
	errorResponse(w, status, PublicMessage(err, fallback))
}

// jsonResponse writes a JSON response
func jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("[server] encoding JSON response: %v", err)
	}
}

// errorResponse writes an error JSON response
func errorResponse(w http.ResponseWriter, status int, message string) {
	jsonResponse(w, status, map[string]string{"error": message})
}

// extractClientID extracts the client identifier from the request.
// It uses the IP address from RemoteAddr; forwarded headers are not trusted.
func (s *Server) extractClientID(r *http.Request) string {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// setRateLimitHeaders sets standard rate limit headers on the response.
func (s *Server) setRateLimitHeaders(w http.ResponseWriter, info ratelimit.Info) {
	if info.Limit > 0 {
		w.Header().Set("X-RateLimit-Limit", fmt.Sprintf("%d", info.Limit))
		w.Header().Set("X-RateLimit-Remaining", fmt.Sprintf("%d", info.Remaining))
		w.Header().Set("X-RateLimit-Reset", fmt.Sprintf("%d", info.ResetTime.Unix()))
	}
}

// rateLimitResponse writes a 429 Too Many Requests response with rate limit information.
func (s *Server) rateLimitResponse(w http.ResponseWriter, info ratelimit.Info) {
	response := map[string]interface{}{
		"error":     "rate_limit_exceeded",
		"message":   "Rate limit exceeded. Please try again later.",
		"limit":     info.Limit,
		"remaining": info.Remaining,
		"reset_at":  info.ResetTime.Format(time.RFC3339),
	}

	if info.RetryAfter > 0 {
		seconds := int(info.RetryAfter.Seconds() + 0.5)
		if seconds < 1 {
			seconds = 1
		}
		response["retry_after"] = seconds
		w.Header().Set("Retry-After", fmt.Sprintf("%d", seconds))
	}

	log.Printf("[rate-limit] exceeded: limit=%d remaining=%d reset=%s",
		info.Limit, info.Remaining, info.ResetTime.Format(time.RFC3339))

	jsonResponse(w, http.StatusTooManyRequests, response)
}
