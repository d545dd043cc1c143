package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/mohammad-safakhou/agentea/internal/agent"
	"github.com/mohammad-safakhou/agentea/internal/runtime"
	"github.com/mohammad-safakhou/agentea/internal/store"
)

// Deps are the collaborators behind the HTTP routes. Store, Metrics and
// JWTSecret are optional.
type Deps struct {
	// Simple serves the calculator and data processing agents.
	Simple *agent.Registry
	// Planning serves the planner and executor agents.
	Planning *agent.Registry

	Store     *store.Store
	Metrics   *runtime.Metrics
	JWTSecret []byte
	Logger    *log.Logger

	// Debug logs every request and turns on echo debug mode.
	Debug bool
}

// Server is the echo application exposing the agent registries.
type Server struct {
	echo   *echo.Echo
	logger *log.Logger
}

// New builds the echo instance and mounts every route.
func New(d Deps) *Server {
	logger := d.Logger
	if logger == nil {
		logger = log.New(log.Writer(), "[HTTP] ", log.LstdFlags)
	}
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Debug = d.Debug
	e.Use(middleware.Recover())
	if d.Debug {
		e.Use(requestLog(logger))
	}
	e.Use(tracing())
	e.HTTPErrorHandler = errorHandler(logger)
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderContentType, echo.HeaderAuthorization},
	}))

	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	e.GET("/", func(c echo.Context) error {
		return c.Redirect(http.StatusTemporaryRedirect, "/agents/")
	})
	if d.Metrics != nil {
		e.GET("/metrics", echo.WrapHandler(d.Metrics.Handler()))
	}

	var guard []echo.MiddlewareFunc
	if len(d.JWTSecret) > 0 {
		guard = append(guard, runtime.EchoAuthMiddleware(d.JWTSecret))
	}

	if d.Simple == nil {
		d.Simple = agent.NewRegistry()
	}
	if d.Planning == nil {
		d.Planning = agent.NewRegistry()
	}
	(&AgentsHandler{Registry: d.Simple}).Register(e.Group("/agents", guard...))
	(&PlannerHandler{Registry: d.Planning}).Register(e.Group("/planner", guard...))

	if d.Store != nil {
		(&DebugHandler{Store: d.Store}).Register(e.Group("/debug"))
	}
	return &Server{echo: e, logger: logger}
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler { return s.echo }

// Serve listens on addr until ctx is cancelled, then drains in-flight
// requests for at most grace.
func (s *Server) Serve(ctx context.Context, addr string, grace time.Duration) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Printf("listening on %s", addr)
		errCh <- s.echo.Start(addr)
	}()
	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}
	if grace <= 0 {
		grace = 10 * time.Second
	}
	sctx, cancel := context.WithTimeout(context.Background(), grace)
	defer cancel()
	s.logger.Printf("shutting down")
	if err := s.echo.Shutdown(sctx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func requestLog(logger *log.Logger) echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogLatency: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			logger.Printf("%s %s -> %d (%s)", v.Method, v.URI, v.Status, v.Latency)
			return nil
		},
	})
}

// errorHandler renders every failure as {"error": msg}.
func errorHandler(logger *log.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		code := http.StatusInternalServerError
		msg := err.Error()
		var he *echo.HTTPError
		switch {
		case errors.Is(err, agent.ErrNotFound):
			code = http.StatusNotFound
		case errors.As(err, &he):
			code = he.Code
			if he.Message != nil {
				msg = fmt.Sprint(he.Message)
			}
		}
		req := c.Request()
		logger.Printf("%d %s %s from %s: %v", code, req.Method, req.URL.Path, c.RealIP(), err)
		if !c.Response().Committed {
			_ = c.JSON(code, map[string]any{"error": msg})
		}
	}
}
