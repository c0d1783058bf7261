package cmd

import (
	"context"
	"log/slog"

	"github.com/samber/do/v2"

	"github.com/nfrund/tafep-voice/internal/app"
	"github.com/nfrund/tafep-voice/internal/config"
	"github.com/nfrund/tafep-voice/internal/pubsub"
)

// withServices builds the server's injector from the environment and hands
// it to fn. Everything acquired is released before returning.
func withServices(ctx context.Context, fn func(do.Injector) error) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	bus := pubsub.NewWatermillBridge()
	closers := &app.Closers{}
	i := do.New()
	app.Provide(ctx, i, cfg, bus, closers)

	defer func() {
		if err := closers.Close(context.Background()); err != nil {
			slog.Warn("Failed to release resources", "error", err)
		}
		_ = bus.Close()
	}()
	return fn(i)
}
