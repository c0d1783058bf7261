package server

import (
	"github.com/labstack/echo/v4"
	"github.com/samber/do/v2"

	"github.com/nfrund/tafep-voice/internal/handlers"
	"github.com/nfrund/tafep-voice/internal/session"
	"github.com/nfrund/tafep-voice/web"
)

// RegisterRoutes mounts the routes that belong to no module.
func (s *Server) RegisterRoutes() error {
	s.E.StaticFS("/static", echo.MustSubFS(web.FS, "static"))

	store, err := do.Invoke[session.Store](s.injector)
	if err != nil {
		return err
	}
	checks := map[string]handlers.Pinger{}
	if p, ok := store.(handlers.Pinger); ok {
		checks["session_store"] = p
	}
	health := handlers.NewHealthHandler(checks)
	s.E.GET("/health", health.Get)
	s.E.HEAD("/health", health.Get)
	return nil
}
