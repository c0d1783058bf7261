package domain

import (
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
)

// Greeting opens every conversation.
const Greeting = "Hello, welcome to TAFEP! How may I assist you today?"

// Role identifies who authored a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is a single chat bubble.
type Message struct {
	ID        string         `json:"id"`
	Role      Role           `json:"role"`
	Content   string         `json:"content"`
	Emotions  []EmotionScore `json:"emotions,omitempty"`
	Language  string         `json:"language,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// ConversationState tracks progress through the advisory flow.
type ConversationState struct {
	IssueEstablished              bool   `json:"issue_established"`
	DiscriminationTypeCategorized bool   `json:"discrimination_type_categorized"`
	ProbeCounter                  int    `json:"probe_counter"`
	ProbingCompleted              bool   `json:"probing_completed"`
	UserAgreedToFileCase          bool   `json:"user_agreed_to_file_case"`
	CaseFiled                     bool   `json:"case_filed"`
	CaseReference                 string `json:"case_reference,omitempty"`
}

// NextAction is the deterministic rule the classifier is asked to follow.
func (s ConversationState) NextAction() Action {
	switch {
	case s.CaseFiled:
		return ActionClosure
	case !s.IssueEstablished:
		return ActionEstablishIssue
	case !s.DiscriminationTypeCategorized:
		return ActionCategorize
	case !s.ProbingCompleted:
		return ActionProbe
	default:
		return ActionAskToFile
	}
}

// Conversation is the per-session chat history and state.
type Conversation struct {
	ID           string            `json:"id"`
	Messages     []Message         `json:"messages"`
	State        ConversationState `json:"state"`
	ContactEmail string            `json:"contact_email,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at"`
}

// NewConversation starts a conversation with the greeting already spoken.
func NewConversation(id string) *Conversation {
	now := time.Now().UTC()
	c := &Conversation{ID: id, CreatedAt: now, UpdatedAt: now}
	c.Append(Message{Role: RoleAssistant, Content: Greeting})
	return c
}

// Append adds a message, filling in its ID and timestamp when missing.
func (c *Conversation) Append(msg Message) Message {
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}
	c.Messages = append(c.Messages, msg)
	c.UpdatedAt = msg.CreatedAt
	return msg
}

// History returns the last n messages, or all of them when n <= 0.
func (c *Conversation) History(n int) []Message {
	if n <= 0 || n >= len(c.Messages) {
		return slices.Clone(c.Messages)
	}
	return slices.Clone(lo.Subset(c.Messages, -n, uint(n)))
}

// Reset clears the chat back to the greeting. The contact address is kept.
func (c *Conversation) Reset() {
	c.Messages = nil
	c.State = ConversationState{}
	c.Append(Message{Role: RoleAssistant, Content: Greeting})
}

// Clone returns a deep copy safe to hand to another goroutine.
func (c *Conversation) Clone() *Conversation {
	cp := *c
	cp.Messages = make([]Message, len(c.Messages))
	for i, m := range c.Messages {
		m.Emotions = slices.Clone(m.Emotions)
		cp.Messages[i] = m
	}
	return &cp
}
