package conversation

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/nfrund/tafep-voice/internal/domain"
)

const separator = "--------------------------------------------------"

func speaker(r domain.Role) string {
	if r == domain.RoleUser {
		return "User"
	}
	return "TAFEP Advisor"
}

func emotionList(scores []domain.EmotionScore) string {
	parts := make([]string, len(scores))
	for i, e := range scores {
		parts[i] = e.Name + ": " + e.ShortPercent()
	}
	return strings.Join(parts, ", ")
}

// FormatHistory renders messages for a prompt, one speaker line per message
// followed by the detected emotions when there are any.
func FormatHistory(msgs []domain.Message) string {
	var b strings.Builder
	for _, m := range msgs {
		fmt.Fprintf(&b, "%s: %s\n", speaker(m.Role), m.Content)
		if len(m.Emotions) > 0 {
			fmt.Fprintf(&b, "Emotions: %s\n", emotionList(m.Emotions))
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

// FormatTranscript renders the whole conversation for the case email.
func FormatTranscript(msgs []domain.Message) string {
	var b strings.Builder
	b.WriteString("\nConversation Details:\n")
	b.WriteString(separator + "\n")
	for _, m := range msgs {
		fmt.Fprintf(&b, "%s: %s\n", speaker(m.Role), m.Content)
		if len(m.Emotions) > 0 {
			fmt.Fprintf(&b, "Emotions detected: %s\n", emotionList(m.Emotions))
		}
		b.WriteString(separator + "\n")
	}
	if n := len(msgs); n > 1 && !msgs[0].CreatedAt.IsZero() && !msgs[n-1].CreatedAt.IsZero() {
		fmt.Fprintf(&b, "Conversation length: %s\n", FormatDuration(msgs[n-1].CreatedAt.Sub(msgs[0].CreatedAt)))
	}
	return b.String()
}

var disallowed = regexp.MustCompile(`[^\w\s.,:;!?'-]`)

// CleanText collapses whitespace and strips everything except word
// characters and basic punctuation. Case summaries are stored through it.
func CleanText(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	return strings.TrimSpace(disallowed.ReplaceAllString(s, ""))
}

// FormatDuration renders whole seconds as "1h 2m 3s", "2m 3s" or "3s".
func FormatDuration(d time.Duration) string {
	total := int(d.Seconds())
	h, m, s := total/3600, (total%3600)/60, total%60
	switch {
	case h > 0:
		return fmt.Sprintf("%dh %dm %ds", h, m, s)
	case m > 0:
		return fmt.Sprintf("%dm %ds", m, s)
	default:
		return fmt.Sprintf("%ds", s)
	}
}

var emotionColors = map[string]string{
	"angry":      "#FF4D4D",
	"sad":        "#4D79FF",
	"happy":      "#FFD700",
	"neutral":    "#808080",
	"frustrated": "#FF6B6B",
	"concerned":  "#9370DB",
}

// EmotionColor maps an emotion name to its display color, grey if unknown.
func EmotionColor(name string) string {
	if c, ok := emotionColors[strings.ToLower(name)]; ok {
		return c
	}
	return "#808080"
}
