// Package server assembles the gobiome HTTP API: router, middleware
// chain, and graceful lifecycle.
package server

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	apperrors "github.com/3leaps/gobiome/internal/errors"
	"github.com/3leaps/gobiome/internal/rediscache"
	"github.com/3leaps/gobiome/internal/server/handlers"
	"github.com/3leaps/gobiome/internal/server/middleware"
	"github.com/3leaps/gobiome/pkg/metastore"
)

const (
	// adminTokenEnv gates the maintenance endpoint. Unset means the
	// endpoint is not registered at all.
	adminTokenEnv = "GOBIOME_ADMIN_TOKEN"

	apiRateLimit rate.Limit = 50
	apiRateBurst            = 100

	shutdownTimeout = 10 * time.Second
)

// Server is the gobiome API server. Build one with New; the zero value is
// not usable.
type Server struct {
	host   string
	port   int
	logger *zap.Logger
	db     *metastore.DB
	cache  *rediscache.Cache

	router     chi.Router
	httpServer *http.Server
}

// Option configures optional server dependencies.
type Option func(*Server)

// WithLogger routes server and middleware logging through logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Server) { s.logger = logger }
}

// WithStore wires the metadata store. The /api/v1 routes are registered
// only when a store is present.
func WithStore(db *metastore.DB) Option {
	return func(s *Server) { s.db = db }
}

// WithCache wires the optional Redis cache for token validation and job
// status payloads.
func WithCache(cache *rediscache.Cache) Option {
	return func(s *Server) { s.cache = cache }
}

// New builds a server listening on host:port. Health and version routes
// are always registered; the authenticated API requires WithStore.
func New(host string, port int, opts ...Option) *Server {
	s := &Server{
		host:   host,
		port:   port,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	middleware.SetLogger(s.logger)
	s.router = s.buildRouter()
	return s
}

// Handler returns the assembled HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Port returns the configured port. After Start binds an ephemeral port
// (port 0), it returns the bound port.
func (s *Server) Port() int {
	return s.port
}

func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RequestLogger(s.logger))
	r.Use(middleware.Recovery)

	r.NotFound(apperrors.NotFoundHandler)
	r.MethodNotAllowed(apperrors.MethodNotAllowedHandler)

	r.Get("/health", handlers.HealthHandler)
	r.Get("/health/live", handlers.LivenessHandler)
	r.Get("/health/ready", handlers.ReadinessHandler)
	r.Get("/health/startup", handlers.StartupHandler)
	r.Get("/version", handlers.VersionHandler)

	if s.db != nil {
		jobs := handlers.NewJobsAPI(s.db, s.cache)
		archives := handlers.NewArchivesAPI(s.db)
		references := handlers.NewReferencesAPI(s.db)

		r.Route("/api/v1", func(r chi.Router) {
			r.Use(middleware.RateLimit(apiRateLimit, apiRateBurst))
			r.Use(middleware.BearerAuth(s.tokenValidator()))

			r.Route("/jobs/{id}", func(r chi.Router) {
				r.Get("/", jobs.Status)
				r.Post("/heartbeat", jobs.Heartbeat)
				r.Post("/step", jobs.Step)
				r.Post("/complete", jobs.Complete)
			})

			r.Post("/archives/observations", archives.Observations)
			r.Patch("/archives/observations", archives.UpdateObservations)

			r.Get("/references/{id}", references.Filepaths)
		})

		s.registerAdminEndpoint(r)
	}

	return r
}

// tokenValidator validates bearer tokens against the store, with the
// Redis cache short-circuiting repeat validations when configured.
func (s *Server) tokenValidator() middleware.TokenValidator {
	base := func(ctx context.Context, token string) (bool, error) {
		return metastore.ValidateToken(ctx, s.db, token)
	}
	if s.cache == nil {
		return base
	}
	return func(ctx context.Context, token string) (bool, error) {
		if s.cache.TokenSeen(ctx, token) {
			return true, nil
		}
		valid, err := base(ctx, token)
		if err != nil {
			return false, err
		}
		if valid {
			s.cache.RememberToken(ctx, token)
		}
		return valid, nil
	}
}

// registerAdminEndpoint wires the token-purge maintenance endpoint when an
// admin token is configured in the environment.
func (s *Server) registerAdminEndpoint(r chi.Router) {
	adminToken := os.Getenv(adminTokenEnv)
	if adminToken == "" {
		return
	}

	expected := []byte("Bearer " + adminToken)
	r.Post("/admin/tokens/purge", func(w http.ResponseWriter, req *http.Request) {
		provided := []byte(req.Header.Get("Authorization"))
		if subtle.ConstantTimeCompare(provided, expected) != 1 {
			apperrors.RespondWithError(w, req, apperrors.Unauthorized("invalid admin token"))
			return
		}

		purged, err := metastore.PurgeExpiredTokens(req.Context(), s.db)
		if err != nil {
			apperrors.RespondWithError(w, req, err)
			return
		}
		s.logger.Info("purged expired tokens", zap.Int64("purged", purged))
		w.Header().Set("Content-Type", "application/json")
		_, _ = fmt.Fprintf(w, `{"purged":%d}`, purged)
	})
}

// Start listens on the configured address and serves until ctx is
// cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	addr := net.JoinHostPort(s.host, strconv.Itoa(s.port))
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", addr, err)
	}
	if tcpAddr, ok := listener.Addr().(*net.TCPAddr); ok {
		s.port = tcpAddr.Port
	}

	s.httpServer = &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	s.logger.Info("server listening", zap.String("addr", listener.Addr().String()))

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.httpServer.Serve(listener)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return s.Shutdown(shutdownCtx)
	}
}

// Shutdown stops the server, draining in-flight requests until ctx
// expires.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	s.logger.Info("server shutting down")
	return s.httpServer.Shutdown(ctx)
}
