// Package view renders the chat page and the fragments pushed over the
// websocket.
package view

import (
	"context"
	"fmt"
	"io"

	"github.com/a-h/templ"
	g "maragu.dev/gomponents"
	hx "maragu.dev/gomponents-htmx"
	h "maragu.dev/gomponents/html"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/nfrund/tafep-voice/internal/conversation"
	"github.com/nfrund/tafep-voice/internal/domain"
)

// Element ids the browser script targets.
const (
	ChatMessagesID = "chat-messages"
	ErrorBannerID  = "error-banner"
	SpeakingID     = "speaking-indicator"
)

const (
	Title      = "TAFEP Voice Assistant"
	htmxSrc    = "https://unpkg.com/htmx.org@2.0.4"
	timeLayout = "15:04"
)

var titleCaser = cases.Title(language.English)

// PageData is everything the chat page needs.
type PageData struct {
	Messages     []domain.Message
	ContactEmail string
	Flashes      FlashData
	MaxUpload    int64
}

// ChatPage is the full document served at /.
func ChatPage(data PageData) g.Node {
	return h.Doctype(
		h.HTML(
			h.Lang("en"),
			h.Head(
				h.Meta(h.Charset("utf-8")),
				h.Meta(h.Name("viewport"), h.Content("width=device-width, initial-scale=1")),
				h.TitleEl(g.Text(Title)),
				h.Link(h.Rel("stylesheet"), h.Href("/static/css/style.css")),
				h.Script(h.Src(htmxSrc), h.Defer()),
			),
			h.Body(
				h.Main(
					h.Class("chat-app"),
					h.H1(g.Text(Title+" 🎙️")),
					h.Div(h.ID(ErrorBannerID)),
					flashes(data.Flashes),
					h.Div(
						h.ID(ChatMessagesID),
						h.Class("chat-container"),
						g.Attr("aria-live", "polite"),
						g.Map(data.Messages, MessageBubble),
					),
					recorderFooter(data),
					contactForm(data.ContactEmail),
				),
				h.Audio(h.ID("assistant-audio"), g.Attr("preload", "none")),
				h.Script(h.Src("/static/js/recorder.js"), h.Defer()),
				h.Script(h.Src("/static/js/app.js"), h.Defer()),
			),
		),
	)
}

func flashes(f FlashData) g.Node {
	if f.Empty() {
		return nil
	}
	return h.Div(
		h.Class("flash-messages"),
		g.Map(f.Success, func(msg string) g.Node {
			return h.Div(h.Class("flash flash-success"), g.Text(msg))
		}),
		g.Map(f.Error, func(msg string) g.Node {
			return Templ(ErrorBanner(msg))
		}),
	)
}

func recorderFooter(data PageData) g.Node {
	return h.Footer(
		h.Class("audio-recorder"),
		h.Button(
			h.ID("record-button"),
			h.Class("record-button"),
			h.Type("button"),
			g.Attr("aria-label", "Start recording"),
			g.Attr("data-max-bytes", fmt.Sprint(data.MaxUpload)),
			g.Text("🎤"),
		),
		h.Span(h.ID("recorder-status"), h.Class("recorder-status"), g.Text("Click the microphone to speak")),
		h.Span(h.ID(SpeakingID), h.Class("speaking-indicator"), g.Attr("hidden"), g.Text("Speaking…")),
		h.Form(
			h.ID("text-form"),
			h.Class("text-form"),
			hx.Post("/api/v1/messages"),
			hx.Swap("none"),
			g.Attr("hx-on::after-request", "if(event.detail.successful) this.reset()"),
			h.Input(h.Type("text"), h.Name("text"), h.Placeholder("Or type your message"), g.Attr("autocomplete", "off"), h.Required()),
			h.Button(h.Type("submit"), g.Text("Send")),
		),
		h.Button(
			h.Class("clear-button"),
			h.Type("button"),
			hx.Delete("/api/v1/messages"),
			hx.Swap("none"),
			hx.Confirm("Clear the conversation?"),
			g.Text("Clear chat"),
		),
	)
}

func contactForm(email string) g.Node {
	return h.Details(
		h.Class("contact-details"),
		h.Summary(g.Text("Case confirmation email")),
		h.Form(
			h.Method("post"),
			h.Action("/api/v1/contact"),
			h.Input(h.Type("email"), h.Name("email"), h.Value(email), h.Placeholder("you@example.com"), h.Required()),
			h.Button(h.Type("submit"), g.Text("Save")),
		),
	)
}

func roleLabel(r domain.Role) string {
	if r == domain.RoleUser {
		return "You"
	}
	return "TAFEP Advisor"
}

// MessageBubble renders one chat message with its emotions, if any.
func MessageBubble(msg domain.Message) g.Node {
	roleClass := "assistant-message"
	if msg.Role == domain.RoleUser {
		roleClass = "user-message"
	}
	return h.Div(
		h.ID("msg-"+msg.ID),
		h.Class("chat-message "+roleClass),
		h.Div(h.Class("message-role"), g.Text(roleLabel(msg.Role))),
		h.Div(h.Class("message-content"), g.Text(msg.Content)),
		g.If(len(msg.Emotions) > 0, EmotionExpander(msg.Emotions)),
		g.If(!msg.CreatedAt.IsZero(),
			h.Span(h.Class("message-time"), g.Text(msg.CreatedAt.Local().Format(timeLayout)))),
	)
}

// EmotionExpander is the collapsible panel of percentage bars.
func EmotionExpander(emotions []domain.EmotionScore) g.Node {
	return h.Details(
		h.Class("emotion-expander"),
		h.Summary(g.Text("View emotions")),
		g.Map(emotions, func(e domain.EmotionScore) g.Node {
			return h.Div(
				h.Class("emotion-metric"),
				h.Span(h.Class("emotion-label"), g.Textf("%s: %s", titleCaser.String(e.Name), e.Percent())),
				h.Div(
					h.Class("emotion-bar"),
					h.Div(
						h.Class("emotion-bar-fill"),
						h.Style(fmt.Sprintf("width: %s; background-color: %s", e.ShortPercent(), conversation.EmotionColor(e.Name))),
					),
				),
			)
		}),
	)
}

// ErrorBanner is the alert shown when a turn fails.
func ErrorBanner(message string) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		_, err := io.WriteString(w, `<div class="streamlit-error error-banner" role="alert">`+
			templ.EscapeString(message)+`</div>`)
		return err
	})
}
