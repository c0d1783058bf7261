package handlers

import (
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/nfrund/tafep-voice/internal/audio"
	"github.com/nfrund/tafep-voice/internal/domain"
	"github.com/nfrund/tafep-voice/internal/llm"
	"github.com/nfrund/tafep-voice/internal/middleware"
	"github.com/nfrund/tafep-voice/internal/stt"
	"github.com/nfrund/tafep-voice/internal/tts"
)

// ErrorResponse is the JSON body of every API error.
type ErrorResponse struct {
	Message string `json:"message"`
}

// StatusFor maps a service error to its HTTP status.
func StatusFor(err error) int {
	var verrs validator.ValidationErrors
	switch {
	case errors.Is(err, domain.ErrUnsupportedMedia), errors.Is(err, stt.ErrUnsupportedFormat):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, audio.ErrTooShort), errors.Is(err, audio.ErrSilent),
		errors.Is(err, audio.ErrInvalidWAV), errors.Is(err, stt.ErrNoSpeech):
		return http.StatusUnprocessableEntity
	case errors.Is(err, stt.ErrUpstream), errors.Is(err, llm.ErrUpstream),
		errors.Is(err, llm.ErrEmptyResponse), errors.Is(err, tts.ErrUpstream):
		return http.StatusBadGateway
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidInput), errors.Is(err, tts.ErrEmptyText), errors.As(err, &verrs):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrCaseFiled):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// userMessage keeps internal details out of 5xx responses.
func userMessage(status int, err error) string {
	switch status {
	case http.StatusInternalServerError:
		return "Internal server error"
	case http.StatusBadGateway:
		return "An upstream service failed. Please try again."
	case http.StatusUnprocessableEntity:
		return FailureText(err)
	default:
		return err.Error()
	}
}

// FailureText is the user-facing explanation of a failed turn.
func FailureText(err error) string {
	switch {
	case errors.Is(err, audio.ErrTooShort):
		return "That recording was too short. Please speak a little longer."
	case errors.Is(err, audio.ErrSilent), errors.Is(err, stt.ErrNoSpeech):
		return "I couldn't hear any speech in that recording. Please try again."
	case errors.Is(err, audio.ErrInvalidWAV), errors.Is(err, stt.ErrUnsupportedFormat):
		return "That audio format isn't supported."
	case errors.Is(err, stt.ErrUpstream):
		return "Speech recognition is unavailable right now. Please try again."
	default:
		return "Something went wrong while preparing a reply."
	}
}

// ErrorHandler is echo's HTTPErrorHandler. Every error becomes {"message": ...}.
func ErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	var (
		status int
		msg    string
		he     *echo.HTTPError
	)
	if errors.As(err, &he) {
		status = he.Code
		msg = http.StatusText(he.Code)
		if m, ok := he.Message.(string); ok {
			msg = m
		}
	} else {
		status = StatusFor(err)
		msg = userMessage(status, err)
	}

	logger := middleware.FromContext(c.Request().Context())
	if status >= http.StatusInternalServerError {
		logger.Error("Request failed", "status", status, "path", c.Path(), "error", err)
	} else {
		logger.Info("Request rejected", "status", status, "path", c.Path(), "error", err)
	}

	if c.Request().Method == http.MethodHead {
		err = c.NoContent(status)
	} else {
		err = c.JSON(status, ErrorResponse{Message: msg})
	}
	if err != nil {
		logger.Error("Failed to write error response", "error", err)
	}
}
