// Package httpapi implements C13: the HTTP JSON mirror of the tool
// surface plus the dashboard, thread, decision and trace routes, and the
// sandboxed /file endpoint (§4.13).
package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/xaxixak/oracle-v2/internal/consult"
	"github.com/xaxixak/oracle-v2/internal/dashboard"
	"github.com/xaxixak/oracle-v2/internal/decisions"
	"github.com/xaxixak/oracle-v2/internal/forum"
	"github.com/xaxixak/oracle-v2/internal/learn"
	"github.com/xaxixak/oracle-v2/internal/logging"
	"github.com/xaxixak/oracle-v2/internal/oraclerr"
	"github.com/xaxixak/oracle-v2/internal/retrieval"
	"github.com/xaxixak/oracle-v2/internal/sanitize"
	"github.com/xaxixak/oracle-v2/internal/store"
	"github.com/xaxixak/oracle-v2/internal/trace"
)

// Services bundles every subsystem the HTTP API dispatches to.
type Services struct {
	Retrieval *retrieval.Service
	Consult   *consult.Service
	Learn     *learn.Service
	Trace     *trace.Service
	Forum     *forum.Service
	Decisions *decisions.Service
	Dashboard *dashboard.Service
	Store     *store.Store
}

// Config holds httpapi's runtime settings.
type Config struct {
	Port     int
	DataDir  string
	RepoRoot string
	Version  string
}

// Server is oracle-v2's HTTP JSON API.
type Server struct {
	echo *echo.Echo
	svc  Services
	cfg  Config
	log  *logging.Logger
}

// NewServer builds the Echo server and registers every route (§4.13).
func NewServer(cfg Config, svc Services, log *logging.Logger) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete},
	}))
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			log.Info("http request",
				zap.String("method", c.Request().Method),
				zap.String("uri", c.Request().RequestURI),
				zap.Int("status", c.Response().Status),
				zap.Duration("duration", time.Since(start)),
			)
			return err
		}
	})
	e.HTTPErrorHandler = errorHandler(log)

	s := &Server{echo: e, svc: svc, cfg: cfg, log: log}
	s.registerRoutes()
	return s
}

// registerRoutes wires up every route in §6.3's normative HTTP table,
// under /api. /metrics is the one ambient addition outside that table
// (Prometheus scraping, not a spec-defined endpoint).
func (s *Server) registerRoutes() {
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	api := s.echo.Group("/api")

	api.GET("/health", s.handleHealth)
	api.GET("/search", s.handleSearch)
	api.GET("/consult", s.handleConsult)
	api.GET("/reflect", s.handleReflect)
	api.GET("/stats", s.handleSummary)
	api.GET("/list", s.handleList)
	api.GET("/graph", s.handleGraph)
	api.GET("/concepts", s.handleConcepts)
	api.POST("/learn", s.handleLearn)
	api.GET("/file", s.handleFile)

	api.GET("/dashboard", s.handleSummary)
	api.GET("/dashboard/summary", s.handleSummary)
	api.GET("/dashboard/activity", s.handleActivity)
	api.GET("/dashboard/growth", s.handleGrowth)

	api.GET("/session/stats", s.handleSessionStats)

	api.GET("/threads", s.handleThreads)
	api.POST("/thread", s.handleThreadMessage)
	api.GET("/thread/:id", s.handleThreadRead)
	api.PATCH("/thread/:id/status", s.handleThreadUpdate)

	api.GET("/decisions", s.handleDecisionsList)
	api.POST("/decisions", s.handleDecisionsCreate)
	api.GET("/decisions/:id", s.handleDecisionsGet)
	api.PATCH("/decisions/:id", s.handleDecisionsUpdate)
	api.POST("/decisions/:id/transition", s.handleDecisionsTransition)

	api.GET("/trace", s.handleTraceList)
	api.POST("/trace", s.handleTraceCreate)
	api.GET("/trace/:id", s.handleTraceGet)
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok", "version": s.cfg.Version})
}

// handleFile serves a file from under RepoRoot, requiring the resolved
// (symlink-free) path to stay within the resolved root (§4.13).
func (s *Server) handleFile(c echo.Context) error {
	rel := c.QueryParam("path")
	if rel == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "path query parameter is required")
	}

	candidate, err := sanitize.ValidatePath(rel, s.cfg.RepoRoot)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	resolved, err := sanitize.WithinRoot(candidate, s.cfg.RepoRoot)
	if err != nil {
		return echo.NewHTTPError(http.StatusForbidden, "path escapes repository root")
	}

	return c.File(resolved)
}

// Run starts the HTTP server, performing §4.13's startup sequence
// (reset stale indexing state, acquire the instance lock, write the PID
// file, register signal handlers) and blocking until ctx is cancelled.
func Run(ctx context.Context, cfg Config, svc Services, log *logging.Logger) error {
	if err := svc.Store.ResetIndexingOnStartup(ctx); err != nil {
		return fmt.Errorf("httpapi: reset indexing status: %w", err)
	}

	lock, err := AcquireLock(cfg.DataDir, cfg.Port)
	if err != nil {
		return err
	}
	defer lock.Release()

	srv := NewServer(cfg, svc, log)

	sigCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Port)
		log.Info("starting http server", zap.String("addr", addr))
		if err := srv.echo.Start(addr); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("httpapi: start: %w", err)
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-sigCtx.Done():
		log.Info("shutting down http server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := svc.Store.Close(); err != nil {
			log.Telemetry("store_close", err)
		}
		return srv.echo.Shutdown(shutdownCtx)
	}
}

func errorHandler(log *logging.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if he, ok := err.(*echo.HTTPError); ok {
			_ = c.JSON(he.Code, map[string]any{"error": he.Message})
			return
		}
		status := oraclerr.ToHTTPStatus(err)
		_ = c.JSON(status, map[string]any{"error": err.Error()})
	}
}

func atoiOr(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}
