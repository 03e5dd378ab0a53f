package server

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/kortix-auth-service/internal/config"
	"github.com/kortix-auth-service/internal/handler"
	"github.com/kortix-auth-service/internal/identity"
	"github.com/kortix-auth-service/internal/middleware"
	"github.com/kortix-auth-service/internal/service"
	"github.com/kortix-auth-service/internal/store"
)

// Server is the top-level HTTP server. It owns the chi router and wires the
// store, identity verifier, and services into the route tree.
type Server struct {
	cfg        *config.Config
	store      store.Store
	verifier   identity.TokenVerifier
	logger     zerolog.Logger
	router     chi.Router
	httpServer *http.Server
}

// New creates a Server with all routes and middleware wired, ready to listen.
func New(cfg *config.Config, st store.Store, verifier identity.TokenVerifier, logger zerolog.Logger) *Server {
	s := &Server{
		cfg:      cfg,
		store:    st,
		verifier: verifier,
		logger:   logger,
	}
	s.setupRouter()
	return s
}

func (s *Server) setupRouter() {
	apiKeys := service.NewAPIKeyService(s.store, s.cfg.APIKeySecret)
	credits := service.NewCreditService(s.store)
	webhooks := service.NewWebhookService(s.store, s.store, s.cfg.StripeWebhookSecret)

	authLimiter := middleware.NewAuthAttemptLimiter(5, 5*time.Minute, 15*time.Minute)
	accountLimiter := middleware.NewRateLimiter(s.cfg.RateLimitMax, s.cfg.RateLimitWindow)
	authenticate := middleware.Authenticate(s.verifier, authLimiter)
	metrics := middleware.NewMetrics(prometheus.DefaultRegisterer)

	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestLogger(s.logger))
	r.Use(chimw.Recoverer)
	r.Use(metrics.Middleware)
	r.Use(middleware.SecurityHeaders)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.corsOrigins(),
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Method(http.MethodGet, "/health", handler.NewHealthHandler())
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Use(middleware.RequireJSON)

		r.Route("/api-keys", func(r chi.Router) {
			// Verification is self-authenticated by the key pair and rate
			// limited by client IP instead of by account.
			r.Group(func(r chi.Router) {
				r.Use(httprate.LimitByIP(60, time.Minute))
				r.Method(http.MethodPost, "/verify", handler.NewVerifyAPIKeyHandler(apiKeys))
			})

			r.Group(func(r chi.Router) {
				r.Use(authenticate)
				r.Use(middleware.RateLimitMiddleware(accountLimiter))
				r.Method(http.MethodPost, "/", handler.NewCreateAPIKeyHandler(apiKeys))
				r.Method(http.MethodGet, "/", handler.NewListAPIKeysHandler(apiKeys))
				r.Method(http.MethodPost, "/{keyID}/revoke", handler.NewRevokeAPIKeyHandler(apiKeys))
				r.Method(http.MethodDelete, "/{keyID}", handler.NewDeleteAPIKeyHandler(apiKeys))
			})
		})

		r.Route("/account", func(r chi.Router) {
			r.Use(authenticate)
			r.Use(middleware.RateLimitMiddleware(accountLimiter))
			r.Method(http.MethodGet, "/", handler.NewAccountHandler())
			r.Method(http.MethodGet, "/credits", handler.NewCreditsHandler(credits))
		})

		r.Route("/webhooks", func(r chi.Router) {
			r.Use(httprate.LimitByIP(120, time.Minute))
			r.Method(http.MethodPost, "/stripe", handler.NewStripeWebhookHandler(webhooks))
		})
	})

	s.router = r
}

func (s *Server) corsOrigins() []string {
	if len(s.cfg.CORSOrigins) == 0 {
		return []string{"*"}
	}
	return s.cfg.CORSOrigins
}

// Router exposes the configured route tree, primarily for tests.
func (s *Server) Router() http.Handler {
	return s.router
}

// ListenAndServe starts the HTTP server and blocks until a SIGINT or SIGTERM
// is received, then drains in-flight requests before returning.
func (s *Server) ListenAndServe() error {
	addr := fmt.Sprintf(":%d", s.cfg.Port)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
		IdleTimeout:  s.cfg.IdleTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", addr).Msg("server starting")
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server listen: %w", err)
	case <-ctx.Done():
		s.logger.Info().Msg("shutdown signal received, draining connections")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	return nil
}
