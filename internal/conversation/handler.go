package conversation

import (
	"context"
	"errors"
	"fmt"
	"html"
	"log/slog"
	"regexp"
	"time"

	"github.com/nfrund/tafep-voice/internal/domain"
	"github.com/nfrund/tafep-voice/internal/llm"
	"github.com/nfrund/tafep-voice/internal/prompts"
)

const (
	// Apology is spoken whenever a turn cannot be completed.
	Apology = "I apologize, but I encountered an error. Could you please repeat that?"
	// CaseFiledReply confirms a successful filing.
	CaseFiledReply = "Thank you. Your case has been filed with TAFEP. You will receive a confirmation email shortly."
)

var ErrEmptySummary = errors.New("conversation: case summary is empty")

var consent = regexp.MustCompile(`(?i)\byes\b`)

// referenceAttempts bounds how many later seconds are tried when a case
// reference is already taken.
const referenceAttempts = 30

// CaseStore archives filed cases.
type CaseStore interface {
	Create(ctx context.Context, c *domain.Case) error
}

// Options tunes the dialogue.
type Options struct {
	ProbeLimit int
	HistoryLen int
	// CaseInbox receives a copy of every filed case when set.
	CaseInbox string
}

// Handler generates the assistant reply for a user turn.
type Handler struct {
	analyzer *Analyzer
	llm      llm.Provider
	prompts  *prompts.Registry
	cases    CaseStore
	mailer   domain.EmailSender
	opts     Options
	now      func() time.Time
}

// NewHandler wires a handler. mailer may be nil.
func NewHandler(provider llm.Provider, reg *prompts.Registry, cases CaseStore, mailer domain.EmailSender, opts Options) *Handler {
	if opts.ProbeLimit <= 0 {
		opts.ProbeLimit = 3
	}
	return &Handler{
		analyzer: NewAnalyzer(provider, reg, opts.ProbeLimit),
		llm:      provider,
		prompts:  reg,
		cases:    cases,
		mailer:   mailer,
		opts:     opts,
		now:      time.Now,
	}
}

// Respond advances conv by one turn and returns the reply to speak. The
// conversation state is updated in place. On failure the reply is the
// apology and the error says what went wrong.
func (h *Handler) Respond(ctx context.Context, conv *domain.Conversation, input string, emotions []domain.EmotionScore) (string, error) {
	history := FormatHistory(conv.History(h.opts.HistoryLen))

	action, err := h.analyzer.Classify(ctx, input, history, conv.State)
	if err != nil {
		slog.ErrorContext(ctx, "Error determining conversation category", "conversation_id", conv.ID, "error", err)
		return Apology, err
	}
	slog.InfoContext(ctx, "Next conversation step", "conversation_id", conv.ID, "action", action)

	data := prompts.Data{
		Input:      input,
		History:    history,
		ProbeLimit: h.opts.ProbeLimit,
		Emotions:   emotions,
		Tone:       h.analyzer.Tone(ctx, emotions),
	}

	reply, err := h.dispatch(ctx, conv, action, data)
	if err != nil {
		slog.ErrorContext(ctx, "Error generating response", "conversation_id", conv.ID, "action", action, "error", err)
		return Apology, err
	}
	return reply, nil
}

func (h *Handler) dispatch(ctx context.Context, conv *domain.Conversation, action domain.Action, data prompts.Data) (string, error) {
	st := &conv.State

	switch action {
	case domain.ActionEstablishIssue:
		reply, err := h.generate(ctx, prompts.Establish, st, data)
		if err == nil {
			st.IssueEstablished = true
		}
		return reply, err

	case domain.ActionCategorize:
		reply, err := h.generate(ctx, prompts.Categorize, st, data)
		if err == nil {
			st.DiscriminationTypeCategorized = true
		}
		return reply, err

	case domain.ActionProbe:
		st.ProbeCounter++
		if st.ProbeCounter >= h.opts.ProbeLimit {
			st.ProbingCompleted = true
			return h.askToFile(ctx, conv, data)
		}
		return h.generate(ctx, prompts.Probe, st, data)

	case domain.ActionAskToFile:
		return h.askToFile(ctx, conv, data)

	case domain.ActionClosure:
		data.CaseReference = st.CaseReference
		return h.generate(ctx, prompts.Closure, st, data)
	}
	return "", fmt.Errorf("no handler for action %q", action)
}

func (h *Handler) askToFile(ctx context.Context, conv *domain.Conversation, data prompts.Data) (string, error) {
	if conv.State.CaseFiled {
		data.CaseReference = conv.State.CaseReference
		return h.generate(ctx, prompts.Closure, &conv.State, data)
	}
	if consent.MatchString(data.Input) {
		return h.fileCase(ctx, conv)
	}
	return h.generate(ctx, prompts.AskToFile, &conv.State, data)
}

func (h *Handler) generate(ctx context.Context, name string, st *domain.ConversationState, data prompts.Data) (string, error) {
	data.State = *st
	prompt, err := h.prompts.Render(name, data)
	if err != nil {
		return "", err
	}
	return h.llm.Generate(ctx, llm.DefaultSystemPrompt, prompt)
}

func (h *Handler) fileCase(ctx context.Context, conv *domain.Conversation) (string, error) {
	if conv.State.CaseFiled {
		return "", fmt.Errorf("%w: %s", domain.ErrCaseFiled, conv.State.CaseReference)
	}

	transcript := FormatTranscript(conv.Messages)
	summary, err := h.generate(ctx, prompts.CaseSummary, &conv.State, prompts.Data{History: FormatHistory(conv.Messages)})
	if err != nil {
		return "", fmt.Errorf("case summary: %w", err)
	}
	if summary == "" {
		return "", ErrEmptySummary
	}

	now := h.now().UTC()
	c := &domain.Case{
		Reference:      domain.NewCaseReference(now),
		ConversationID: conv.ID,
		Summary:        CleanText(summary),
		Transcript:     transcript,
		ContactEmail:   conv.ContactEmail,
		CreatedAt:      now,
	}
	if err := c.Validate(); err != nil {
		return "", err
	}
	if err := h.archive(ctx, c); err != nil {
		return "", fmt.Errorf("archive case: %w", err)
	}

	conv.State.UserAgreedToFileCase = true
	conv.State.CaseFiled = true
	conv.State.CaseReference = c.Reference
	slog.InfoContext(ctx, "Case filed", "conversation_id", conv.ID, "reference", c.Reference)

	h.notify(ctx, c)
	return CaseFiledReply, nil
}

// archive stores c. A reference taken by a case filed in the same second is
// moved to the next free second.
func (h *Handler) archive(ctx context.Context, c *domain.Case) error {
	filedAt := c.CreatedAt
	var err error
	for i := range referenceAttempts {
		c.Reference = domain.NewCaseReference(filedAt.Add(time.Duration(i) * time.Second))
		err = h.cases.Create(ctx, c)
		if !errors.Is(err, domain.ErrDuplicateReference) {
			return err
		}
		slog.DebugContext(ctx, "Case reference taken", "reference", c.Reference)
	}
	return err
}

// notify emails the case. Delivery problems are logged only; the case is
// already archived.
func (h *Handler) notify(ctx context.Context, c *domain.Case) {
	if h.mailer == nil {
		return
	}
	subject := "Your TAFEP case " + c.Reference
	body := CaseEmailHTML(c)

	for _, to := range []string{c.ContactEmail, h.opts.CaseInbox} {
		if to == "" {
			continue
		}
		if err := h.mailer.Send(to, subject, body); err != nil {
			slog.ErrorContext(ctx, "Failed to send case email", "reference", c.Reference, "to", to, "error", err)
		}
	}
}

// CaseEmailHTML renders the confirmation email body.
func CaseEmailHTML(c *domain.Case) string {
	return fmt.Sprintf(`<h2>TAFEP case %s</h2>
<p>Thank you for contacting TAFEP. Your case has been filed and an advisor will follow up.</p>
<h3>Summary</h3>
<p>%s</p>
<pre>%s</pre>`,
		html.EscapeString(c.Reference),
		html.EscapeString(c.Summary),
		html.EscapeString(c.Transcript))
}
