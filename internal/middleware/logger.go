package middleware

import (
	"context"
	"log/slog"

	"github.com/labstack/echo/v4"
)

type contextKey string

const loggerKey = contextKey("logger")

// Logger injects a request-scoped logger carrying the request id and, when
// the Conversation middleware ran first, the conversation id. It must run
// after echo's RequestID middleware.
func Logger(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		attrs := []any{"request_id", c.Response().Header().Get(echo.HeaderXRequestID)}
		if id := ConversationID(c); id != "" {
			attrs = append(attrs, "conversation_id", id)
		}
		ctx := WithLogger(c.Request().Context(), slog.Default().With(attrs...))
		c.SetRequest(c.Request().WithContext(ctx))
		return next(c)
	}
}

// WithLogger stores l in ctx for FromContext.
func WithLogger(ctx context.Context, l *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, l)
}

func FromContext(ctx context.Context) *slog.Logger {
	if logger, ok := ctx.Value(loggerKey).(*slog.Logger); ok {
		return logger
	}
	return slog.Default()
}
