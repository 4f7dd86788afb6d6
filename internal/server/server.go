// Package server exposes the query agent and transaction views over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/ken-1511/howard-financial/internal/agent"
	"github.com/ken-1511/howard-financial/internal/querylog"
	"github.com/ken-1511/howard-financial/internal/snapshot"
)

// Server provides HTTP endpoints for howard.
type Server struct {
	echo     *echo.Echo
	holder   *snapshot.Holder
	agent    *agent.Agent
	queryLog *querylog.Writer
	metrics  *Metrics
	logger   *zap.Logger
	config   *Config
	now      func() time.Time
}

// Config holds HTTP server configuration.
type Config struct {
	Host string
	Port int
	// QueryTimeout bounds each query; zero disables the bound.
	QueryTimeout time.Duration
}

// Option configures a Server.
type Option func(*Server)

// WithQueryLog records answered queries.
func WithQueryLog(w *querylog.Writer) Option {
	return func(s *Server) { s.queryLog = w }
}

// WithMetrics replaces the server's metrics collectors.
func WithMetrics(m *Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

// NewServer creates a new HTTP server.
func NewServer(holder *snapshot.Holder, ag *agent.Agent, logger *zap.Logger, cfg *Config, opts ...Option) (*Server, error) {
	if holder == nil {
		return nil, errors.New("snapshot holder cannot be nil")
	}
	if ag == nil {
		return nil, errors.New("agent cannot be nil")
	}
	if logger == nil {
		return nil, errors.New("logger is required for request tracking and debugging")
	}
	if cfg == nil {
		cfg = &Config{
			Host:         "127.0.0.1",
			Port:         8000,
			QueryTimeout: 10 * time.Second,
		}
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			duration := time.Since(start)

			logger.Info("http request",
				zap.String("method", c.Request().Method),
				zap.String("uri", c.Request().RequestURI),
				zap.Int("status", c.Response().Status),
				zap.Duration("duration", duration),
				zap.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)),
			)

			return err
		}
	})

	s := &Server{
		echo:    e,
		holder:  holder,
		agent:   ag,
		metrics: NewMetrics(),
		logger:  logger,
		config:  cfg,
		now:     time.Now,
	}
	for _, o := range opts {
		o(s)
	}

	s.registerRoutes()
	return s, nil
}

// registerRoutes sets up the HTTP endpoints.
func (s *Server) registerRoutes() {
	s.echo.GET("/health", s.handleHealth)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(s.metrics.Registry(), promhttp.HandlerOpts{})))

	v1 := s.echo.Group("/api/v1")
	v1.POST("/query", s.handleQuery)
	v1.GET("/transactions", s.handleTransactions)
	v1.GET("/transactions/:id", s.handleTransaction)
	v1.GET("/summary", s.handleSummary)
	v1.GET("/categories", s.handleCategories)
	v1.GET("/types", s.handleTypes)
	v1.GET("/accounts", s.handleAccounts)
	v1.POST("/reload", s.handleReload)
}

// Handler returns the server as an http.Handler.
func (s *Server) Handler() http.Handler { return s.echo }

// Metrics returns the server's collectors.
func (s *Server) Metrics() *Metrics { return s.metrics }

// Start starts the HTTP server.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.logger.Info("starting http server", zap.String("addr", addr))
	return s.echo.Start(addr)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http server")
	return s.echo.Shutdown(ctx)
}
