package http

import (
	"context"
	"net/http"
	"time"

	"github.com/jmehdipour/qmail/internal/config"
	"github.com/jmehdipour/qmail/internal/http/middleware"
	"github.com/jmehdipour/qmail/internal/metrics"
	"github.com/labstack/echo/v4"
	echoMid "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Deps are the services the HTTP surface fronts. Registrations and Limiter
// may be nil: reports then answer 503 and rate limiting is off.
type Deps struct {
	Provisioner   Provisioner
	Registrations RegistrationLister
	Limiter       middleware.Counter
	Log           *zap.Logger
}

type Server struct {
	e   *echo.Echo
	log *zap.Logger
}

func NewServer(cfg config.Config, deps Deps) *Server {
	if deps.Log == nil {
		deps.Log = zap.NewNop()
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(echoMid.Recover(), echoMid.Logger())

	metrics.MustRegister(prometheus.DefaultRegisterer)

	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// health
	e.GET("/healthz", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })

	// middlewares
	rlMW := middleware.RateLimitMiddleware(middleware.RateLimitConfig{
		Counter:        deps.Limiter,
		RPS:            cfg.RateLimit.RPS,
		KeyPrefix:      "rl:ip:",
		Window:         time.Second,
		RetryAfterHint: true,
	})
	adminMW := middleware.AdminKeyMiddleware(cfg.HTTP.AdminAPIKeys)

	// routes
	v1 := e.Group("/v1")
	v1.POST("/mailbox/provision", provisionHandler(deps.Provisioner), rlMW)

	reports := v1.Group("/reports", adminMW)
	if deps.Registrations != nil {
		reports.GET("/registrations", listRegistrationsHandler(deps.Registrations))
	} else {
		reports.GET("/registrations", func(c echo.Context) error {
			return c.JSON(http.StatusServiceUnavailable, map[string]string{"error": "reports disabled"})
		})
	}

	return &Server{e: e, log: deps.Log}
}

// Handler exposes the router for in-process use.
func (s *Server) Handler() http.Handler { return s.e }

func (s *Server) Start(addr string) error {
	s.log.Info("http: listening", zap.String("addr", addr))
	return s.e.Start(addr)
}

func (s *Server) Shutdown(ctx context.Context) error { return s.e.Shutdown(ctx) }
