package assistant

import (
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/labstack/echo/v4"

	"github.com/nfrund/tafep-voice/internal/audio"
	"github.com/nfrund/tafep-voice/internal/domain"
	"github.com/nfrund/tafep-voice/internal/middleware"
	"github.com/nfrund/tafep-voice/internal/rendering"
	"github.com/nfrund/tafep-voice/internal/view"
)

// declaredTypes are the upload content types accepted as-is.
var declaredTypes = map[string]string{
	"audio/wav":   audio.MIMEWAV,
	"audio/x-wav": audio.MIMEWAV,
	"audio/wave":  audio.MIMEWAV,
	"audio/webm":  audio.MIMEWebM,
	"audio/ogg":   audio.MIMEOgg,
}

// Handler serves the chat page and the JSON API.
type Handler struct {
	service   *Service
	renderer  rendering.Renderer
	maxUpload int64
}

func NewHandler(service *Service, renderer rendering.Renderer, maxUpload int64) *Handler {
	return &Handler{service: service, renderer: renderer, maxUpload: maxUpload}
}

// MessageRequest is typed input from the form or API.
type MessageRequest struct {
	Text string `json:"text" form:"text" validate:"required,max=2000"`
}

// ContactRequest sets the case confirmation address.
type ContactRequest struct {
	Email string `json:"email" form:"email" validate:"required,email"`
}

// HistoryResponse is the body of GET /api/v1/messages.
type HistoryResponse struct {
	ConversationID string                   `json:"conversation_id"`
	Messages       []domain.Message         `json:"messages"`
	State          domain.ConversationState `json:"state"`
	ContactEmail   string                   `json:"contact_email,omitempty"`
}

// ChatGet renders the chat page.
func (h *Handler) ChatGet(c echo.Context) error {
	conv, err := h.service.History(c.Request().Context(), middleware.ConversationID(c))
	if err != nil {
		return err
	}
	return h.renderer.RenderPage(c, http.StatusOK, view.ChatPage(view.PageData{
		Messages:     conv.Messages,
		ContactEmail: conv.ContactEmail,
		Flashes:      view.GetFlashData(c),
		MaxUpload:    h.maxUpload,
	}))
}

// RecordingPost accepts a recording as multipart field "audio" or as the raw
// request body.
func (h *Handler) RecordingPost(c echo.Context) error {
	data, declared, err := h.readRecording(c)
	if err != nil {
		return err
	}
	mimeType, err := resolveMIME(declared, data)
	if err != nil {
		return err
	}

	middleware.FromContext(c.Request().Context()).Info("Received recording",
		"bytes", len(data), "declared_type", declared, "mime_type", mimeType)

	turn, err := h.service.ProcessRecording(c.Request().Context(), middleware.ConversationID(c), data, mimeType)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, turn)
}

func (h *Handler) readRecording(c echo.Context) ([]byte, string, error) {
	req := c.Request()
	ct, _, _ := mime.ParseMediaType(req.Header.Get(echo.HeaderContentType))

	var (
		src      io.Reader
		declared string
	)
	if ct == echo.MIMEMultipartForm {
		fh, err := c.FormFile("audio")
		if err != nil {
			return nil, "", echo.NewHTTPError(http.StatusBadRequest, "Missing audio field in upload")
		}
		if h.maxUpload > 0 && fh.Size > h.maxUpload {
			return nil, "", tooLarge(h.maxUpload)
		}
		f, err := fh.Open()
		if err != nil {
			return nil, "", fmt.Errorf("open upload: %w", err)
		}
		defer f.Close()
		src = f
		declared, _, _ = mime.ParseMediaType(fh.Header.Get(echo.HeaderContentType))
	} else {
		src = req.Body
		declared = ct
	}

	limit := h.maxUpload
	if limit <= 0 {
		limit = 10 << 20
	}
	data, err := io.ReadAll(io.LimitReader(src, limit+1))
	if err != nil {
		return nil, "", fmt.Errorf("read upload: %w", err)
	}
	if int64(len(data)) > limit {
		return nil, "", tooLarge(limit)
	}
	if len(data) == 0 {
		return nil, "", echo.NewHTTPError(http.StatusBadRequest, "Recording is empty")
	}
	return data, declared, nil
}

func tooLarge(limit int64) error {
	return echo.NewHTTPError(http.StatusRequestEntityTooLarge,
		fmt.Sprintf("Recording exceeds the %d MB limit", limit>>20))
}

// resolveMIME trusts the sniffed type over the declared one. The declared
// type is only used when sniffing is inconclusive.
func resolveMIME(declared string, data []byte) (string, error) {
	m := mimetype.Detect(data)
	switch {
	case m.Is("audio/wav"):
		return audio.MIMEWAV, nil
	case m.Is("audio/webm"), m.Is("video/webm"):
		return audio.MIMEWebM, nil
	case m.Is("audio/ogg"), m.Is("application/ogg"):
		return audio.MIMEOgg, nil
	}
	if m.Is("application/octet-stream") {
		if t, ok := declaredTypes[strings.ToLower(declared)]; ok {
			return t, nil
		}
	}
	return "", fmt.Errorf("%w: %s", domain.ErrUnsupportedMedia, m.String())
}

// MessagePost answers typed input. htmx form posts get 204 since the
// bubbles arrive over the websocket.
func (h *Handler) MessagePost(c echo.Context) error {
	var req MessageRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid message")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	turn, err := h.service.ProcessText(c.Request().Context(), middleware.ConversationID(c), req.Text)
	if err != nil {
		return err
	}
	if c.Request().Header.Get("HX-Request") == "true" {
		return c.NoContent(http.StatusNoContent)
	}
	return c.JSON(http.StatusOK, turn)
}

func (h *Handler) MessagesGet(c echo.Context) error {
	id := middleware.ConversationID(c)
	conv, err := h.service.History(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, HistoryResponse{
		ConversationID: id,
		Messages:       conv.Messages,
		State:          conv.State,
		ContactEmail:   conv.ContactEmail,
	})
}

func (h *Handler) MessagesDelete(c echo.Context) error {
	if _, err := h.service.Clear(c.Request().Context(), middleware.ConversationID(c)); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// ContactPost stores the confirmation address. Browser form posts are
// redirected back to the page with a flash message.
func (h *Handler) ContactPost(c echo.Context) error {
	form := strings.HasPrefix(c.Request().Header.Get(echo.HeaderContentType), echo.MIMEApplicationForm)

	var req ContactRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid contact details")
	}
	err := c.Validate(&req)
	if err == nil {
		err = h.service.SetContact(c.Request().Context(), middleware.ConversationID(c), req.Email)
	}

	if form {
		if err != nil {
			middleware.FromContext(c.Request().Context()).Info("Rejected contact email", "error", err)
			view.SetFlashError(c, "Please enter a valid email address.")
		} else {
			view.SetFlashSuccess(c, "We'll send your case confirmation to "+req.Email+".")
		}
		return c.Redirect(http.StatusSeeOther, "/")
	}
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]string{"email": req.Email})
}

// CaseGet returns a case filed from the caller's own conversation.
func (h *Handler) CaseGet(c echo.Context) error {
	ref := strings.ToUpper(strings.TrimSpace(c.Param("reference")))
	found, err := h.service.FindCase(c.Request().Context(), ref)
	if err != nil {
		return err
	}
	if found.ConversationID != middleware.ConversationID(c) {
		return domain.ErrNotFound
	}
	return c.JSON(http.StatusOK, found)
}
