package domain

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/samber/lo"
)

// MaxEmotions is how many prosody scores are kept per utterance.
const MaxEmotions = 3

// EmotionScore is a single vocal expression score in [0,1].
type EmotionScore struct {
	Name  string  `json:"name"`
	Score float64 `json:"score"`
}

// Percent renders the score with two decimals, e.g. "45.00%".
func (e EmotionScore) Percent() string {
	return fmt.Sprintf("%.2f%%", e.Score*100)
}

// ShortPercent renders the score with one decimal, e.g. "45.0%".
func (e EmotionScore) ShortPercent() string {
	return fmt.Sprintf("%.1f%%", e.Score*100)
}

// TopEmotions orders scores by value, highest first, with ties broken by name,
// and keeps at most n of them.
func TopEmotions(scores map[string]float64, n int) []EmotionScore {
	if len(scores) == 0 || n <= 0 {
		return nil
	}
	out := lo.MapToSlice(scores, func(name string, score float64) EmotionScore {
		return EmotionScore{Name: name, Score: score}
	})
	slices.SortFunc(out, func(a, b EmotionScore) int {
		if c := cmp.Compare(b.Score, a.Score); c != 0 {
			return c
		}
		return cmp.Compare(a.Name, b.Name)
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}
