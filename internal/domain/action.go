package domain

import (
	"strings"
	"unicode"
)

// Action is the next conversational step chosen by the analyzer.
type Action string

const (
	ActionEstablishIssue Action = "Establish Issue"
	ActionCategorize     Action = "Categorize Discrimination Type"
	ActionProbe          Action = "Probe for Further Information"
	ActionAskToFile      Action = "Ask About Filing Case"
	ActionClosure        Action = "Closure Conversation"
)

// Actions lists every step in conversation order.
var Actions = []Action{
	ActionEstablishIssue,
	ActionCategorize,
	ActionProbe,
	ActionAskToFile,
	ActionClosure,
}

// NormalizeCategory keeps ASCII letters only, lower-cased.
func NormalizeCategory(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r < unicode.MaxASCII && unicode.IsLetter(r) {
			b.WriteRune(unicode.ToLower(r))
		}
	}
	return b.String()
}

// ParseAction matches a model answer against the known actions. An exact match
// after normalization wins; otherwise the answer must mention exactly one action.
func ParseAction(answer string) (Action, bool) {
	norm := NormalizeCategory(answer)
	if norm == "" {
		return "", false
	}
	var found []Action
	for _, a := range Actions {
		key := NormalizeCategory(string(a))
		if key == norm {
			return a, true
		}
		if strings.Contains(norm, key) {
			found = append(found, a)
		}
	}
	if len(found) == 1 {
		return found[0], true
	}
	return "", false
}
