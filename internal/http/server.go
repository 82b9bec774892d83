package http

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/jaekwang-park/taskscribe/internal/middleware"
	"github.com/jaekwang-park/taskscribe/internal/ratelimit"
)

type ServerConfig struct {
	Port              string
	CORSAllowedOrigin string
	// Limiter throttles /api/auth/ posts. Nil disables throttling.
	Limiter  ratelimit.Limiter
	Resolver middleware.TokenResolver
	Registry *prometheus.Registry
}

type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// NewHandler builds the full middleware chain around the router:
// request id -> recovery -> logging -> metrics -> cors -> rate limit -> auth -> router.
func NewHandler(cfg ServerConfig, logger *slog.Logger, svcs Services) http.Handler {
	var h http.Handler = NewRouter(svcs, cfg.Registry)
	h = middleware.NewAuth(cfg.Resolver, logger).Middleware(h)
	if cfg.Limiter != nil {
		h = middleware.RateLimit(cfg.Limiter, "/api/auth/", logger)(h)
	}
	h = middleware.CORS(cfg.CORSAllowedOrigin)(h)
	h = middleware.NewMetrics(cfg.Registry).Middleware(h)
	h = middleware.Logging(logger)(h)
	h = middleware.Recovery(logger)(h)
	return middleware.RequestID(h)
}

func NewServer(cfg ServerConfig, logger *slog.Logger, svcs Services) *Server {
	return &Server{
		httpServer: &http.Server{
			Addr:              fmt.Sprintf(":%s", cfg.Port),
			Handler:           NewHandler(cfg, logger, svcs),
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       10 * time.Second,
			WriteTimeout:      10 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
		logger: logger,
	}
}

func (s *Server) Start() error {
	s.logger.Info("starting server", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down server")
	return s.httpServer.Shutdown(ctx)
}
