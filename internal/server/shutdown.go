package server

import (
	"context"
	"errors"
	"log/slog"
)

// Shutdown stops accepting requests, lets modules drain, then closes the bus
// and every upstream connection.
func (s *Server) Shutdown(ctx context.Context) error {
	slog.Info("Shutting down server...")
	var errs []error
	if err := s.E.Shutdown(ctx); err != nil {
		errs = append(errs, err)
	}
	for i := len(s.modules) - 1; i >= 0; i-- {
		if err := s.modules[i].Shutdown(ctx); err != nil {
			slog.Error("Module shutdown failed", "module", s.modules[i].Name(), "error", err)
			errs = append(errs, err)
		}
	}
	if err := s.release(ctx); err != nil {
		errs = append(errs, err)
	}
	slog.Info("Server stopped")
	return errors.Join(errs...)
}

func (s *Server) release(ctx context.Context) error {
	var errs []error
	if err := s.bus.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := s.closers.Close(ctx); err != nil {
		errs = append(errs, err)
	}
	s.tracingCleanup()
	return errors.Join(errs...)
}
