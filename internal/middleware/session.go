package middleware

import (
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/sessions"
	"github.com/labstack/echo-contrib/session"
	"github.com/labstack/echo/v4"
)

const (
	sessionName       = "tafep-session"
	conversationField = "conversation_id"
	conversationKey   = "conversation_id"
)

// NewCookieStore builds the signed cookie store for anonymous browser
// sessions.
func NewCookieStore(secret string, secure bool) *sessions.CookieStore {
	store := sessions.NewCookieStore([]byte(secret))
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   86400 * 7,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
	return store
}

// Conversation assigns each browser a conversation id kept in the session
// cookie. It must run after echo-contrib's session middleware.
func Conversation(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		sess, err := session.Get(sessionName, c)
		if err != nil {
			// A cookie signed with an old secret still yields a fresh session.
			slog.Debug("Discarding unreadable session cookie", "error", err)
		}
		if sess == nil {
			return echo.NewHTTPError(http.StatusInternalServerError, "session unavailable")
		}

		id, _ := sess.Values[conversationField].(string)
		if id == "" {
			id = uuid.NewString()
			sess.Values[conversationField] = id
			if err := sess.Save(c.Request(), c.Response()); err != nil {
				return err
			}
		}
		c.Set(conversationKey, id)
		return next(c)
	}
}

// ConversationID returns the id set by Conversation, or "".
func ConversationID(c echo.Context) string {
	id, _ := c.Get(conversationKey).(string)
	return id
}
