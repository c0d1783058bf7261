// Package server assembles the HTTP server from the registered modules.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/labstack/echo-contrib/session"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/samber/do/v2"

	"github.com/nfrund/tafep-voice/internal/app"
	"github.com/nfrund/tafep-voice/internal/config"
	"github.com/nfrund/tafep-voice/internal/handlers"
	"github.com/nfrund/tafep-voice/internal/middleware"
	"github.com/nfrund/tafep-voice/internal/module"
	"github.com/nfrund/tafep-voice/internal/pubsub"
	"github.com/nfrund/tafep-voice/internal/rendering"
)

// Server holds the echo instance and everything it must release on exit.
type Server struct {
	E   *echo.Echo
	Cfg *config.Config

	injector       do.Injector
	modules        []module.Module
	bus            *pubsub.WatermillBridge
	closers        *app.Closers
	tracingCleanup func()
}

// Option adjusts the injector before modules register. Tests use it to swap
// upstream clients for fakes.
type Option func(i do.Injector)

// New wires the bus, the shared services and every module. ctx bounds the
// background work started by modules.
func New(ctx context.Context, cfg *config.Config, opts ...Option) (*Server, error) {
	tracer, cleanup, err := pubsub.SetupOTel(ctx, pubsub.TracingConfigFrom(cfg))
	if err != nil {
		return nil, fmt.Errorf("set up tracing: %w", err)
	}
	var bus *pubsub.WatermillBridge
	if cfg.TracingEnabled {
		bus = pubsub.NewWatermillBridge(pubsub.WithTracer(tracer))
	} else {
		bus = pubsub.NewWatermillBridge()
	}

	s := &Server{
		E:              echo.New(),
		Cfg:            cfg,
		injector:       do.New(),
		modules:        app.NewModules(),
		bus:            bus,
		closers:        &app.Closers{},
		tracingCleanup: cleanup,
	}
	app.Provide(ctx, s.injector, cfg, bus, s.closers)
	for _, opt := range opts {
		opt(s.injector)
	}

	s.E.HideBanner = true
	s.E.HidePort = true
	s.E.Renderer = do.MustInvoke[rendering.Renderer](s.injector).(echo.Renderer)
	setupErrorHandling(s.E)
	s.setupMiddleware()

	if err := s.RegisterRoutes(); err != nil {
		s.release(context.Background())
		return nil, err
	}
	if err := s.bootModules(ctx); err != nil {
		s.release(context.Background())
		return nil, err
	}
	return s, nil
}

func setupErrorHandling(e *echo.Echo) {
	e.HTTPErrorHandler = handlers.ErrorHandler
	e.Validator = handlers.NewValidator()
}

func (s *Server) setupMiddleware() {
	s.E.Use(echomw.Recover())
	s.E.Use(echomw.RequestID())
	s.E.Use(session.Middleware(middleware.NewCookieStore(s.Cfg.SessionSecret, s.Cfg.IsProduction())))
	s.E.Use(middleware.Conversation)
	s.E.Use(middleware.Logger)
	s.E.Use(echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogStatus:   true,
		LogURI:      true,
		LogMethod:   true,
		LogLatency:  true,
		LogError:    true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			logger := middleware.FromContext(c.Request().Context())
			attrs := []any{"method", v.Method, "uri", v.URI, "status", v.Status, "latency", v.Latency}
			if v.Error != nil {
				logger.Warn("Request", append(attrs, "error", v.Error)...)
				return nil
			}
			logger.Info("Request", attrs...)
			return nil
		},
	}))
}

func (s *Server) bootModules(ctx context.Context) error {
	for _, m := range s.modules {
		if err := m.Register(s.injector); err != nil {
			return fmt.Errorf("register module %s: %w", m.Name(), err)
		}
	}
	root := s.E.Group("")
	for _, m := range s.modules {
		start := time.Now()
		if err := m.Boot(ctx, root, s.injector); err != nil {
			return fmt.Errorf("boot module %s: %w", m.Name(), err)
		}
		slog.Info("Module booted", "module", m.Name(), "elapsed", time.Since(start))
	}
	return nil
}
