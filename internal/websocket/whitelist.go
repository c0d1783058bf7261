package websocket

import (
	"errors"
	"log/slog"
	"slices"
	"sync"
)

var (
	ErrActionAlreadyExists = errors.New("action already exists in whitelist")
	ErrInvalidAction       = errors.New("action cannot be empty")
)

// Browser actions forwarded to the bus by default.
const (
	ActionChatMessage = "chat.message"
	ActionPing        = "ping"
)

// Whitelist holds the actions browsers may send up the socket.
type Whitelist struct {
	mu      sync.RWMutex
	allowed []string
}

func NewWhitelist(actions ...string) *Whitelist {
	valid := make([]string, 0, len(actions))
	for _, a := range actions {
		if a != "" && !slices.Contains(valid, a) {
			valid = append(valid, a)
		}
	}
	return &Whitelist{allowed: valid}
}

// DefaultWhitelist allows typed chat messages and keepalive pings.
func DefaultWhitelist() *Whitelist {
	return NewWhitelist(ActionChatMessage, ActionPing)
}

func (w *Whitelist) IsAllowed(action string) bool {
	if action == "" {
		return false
	}
	w.mu.RLock()
	defer w.mu.RUnlock()
	return slices.Contains(w.allowed, action)
}

// Allow adds an action. It fails on empty or duplicate actions.
func (w *Whitelist) Allow(action string) error {
	if action == "" {
		return ErrInvalidAction
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if slices.Contains(w.allowed, action) {
		return ErrActionAlreadyExists
	}
	w.allowed = append(w.allowed, action)
	slog.Info("Added action to websocket whitelist", "action", action)
	return nil
}
