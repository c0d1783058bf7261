// Package module defines the lifecycle every application feature follows.
package module

import (
	"context"

	"github.com/labstack/echo/v4"
	"github.com/samber/do/v2"
)

// Module is a self-contained application feature.
type Module interface {
	// Name returns a unique identifier for the module.
	Name() string

	// Register provides the module's services to the injector. It runs for
	// every module before any Boot.
	Register(i do.Injector) error

	// Boot mounts routes and starts background work.
	Boot(ctx context.Context, router *echo.Group, i do.Injector) error

	// Shutdown stops background work. It must return once ctx is done.
	Shutdown(ctx context.Context) error
}

// BaseModule provides no-op lifecycle methods for embedding.
type BaseModule struct{}

func (BaseModule) Register(do.Injector) error { return nil }

func (BaseModule) Boot(context.Context, *echo.Group, do.Injector) error { return nil }

func (BaseModule) Shutdown(context.Context) error { return nil }
