package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTopEmotions(t *testing.T) {
	scores := map[string]float64{
		"Calmness":  0.20,
		"Anger":     0.45,
		"Sadness":   0.45,
		"Confusion": 0.10,
		"Distress":  0.30,
	}

	top := TopEmotions(scores, MaxEmotions)
	require.Len(t, top, 3)
	assert.Equal(t, "Anger", top[0].Name, "ties break by name")
	assert.Equal(t, "Sadness", top[1].Name)
	assert.Equal(t, "Distress", top[2].Name)

	assert.Nil(t, TopEmotions(nil, 3))
	assert.Len(t, TopEmotions(map[string]float64{"Joy": 1}, 3), 1)
}

func TestEmotionScore_Percent(t *testing.T) {
	e := EmotionScore{Name: "Anger", Score: 0.45}
	assert.Equal(t, "45.00%", e.Percent())
	assert.Equal(t, "45.0%", e.ShortPercent())
}

func TestNormalizeCategory(t *testing.T) {
	assert.Equal(t, "probeforfurtherinformation", NormalizeCategory("Probe for Further Information."))
	assert.Equal(t, "establishissue", NormalizeCategory(`"Establish Issue"`))
	assert.Equal(t, "", NormalizeCategory("123 !?"))
}

func TestParseAction(t *testing.T) {
	tests := []struct {
		answer string
		want   Action
		ok     bool
	}{
		{"Establish Issue", ActionEstablishIssue, true},
		{`"Ask About Filing Case"`, ActionAskToFile, true},
		{"closure conversation.", ActionClosure, true},
		{"The next step is: Probe for Further Information", ActionProbe, true},
		{"Establish Issue or Closure Conversation", "", false},
		{"Error", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.answer, func(t *testing.T) {
			got, ok := ParseAction(tt.answer)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestConversationState_NextAction(t *testing.T) {
	var s ConversationState
	assert.Equal(t, ActionEstablishIssue, s.NextAction())

	s.IssueEstablished = true
	assert.Equal(t, ActionCategorize, s.NextAction())

	s.DiscriminationTypeCategorized = true
	assert.Equal(t, ActionProbe, s.NextAction())

	s.ProbingCompleted = true
	assert.Equal(t, ActionAskToFile, s.NextAction())

	s.CaseFiled = true
	assert.Equal(t, ActionClosure, s.NextAction())
}

func TestConversation(t *testing.T) {
	c := NewConversation("conv-1")
	require.Len(t, c.Messages, 1)
	assert.Equal(t, Greeting, c.Messages[0].Content)
	assert.Equal(t, RoleAssistant, c.Messages[0].Role)

	for _, text := range []string{"one", "two", "three"} {
		msg := c.Append(Message{Role: RoleUser, Content: text, Emotions: []EmotionScore{{Name: "Joy", Score: 0.5}}})
		assert.NotEmpty(t, msg.ID)
		assert.False(t, msg.CreatedAt.IsZero())
	}

	t.Run("History keeps the most recent", func(t *testing.T) {
		h := c.History(2)
		require.Len(t, h, 2)
		assert.Equal(t, "two", h[0].Content)
		assert.Equal(t, "three", h[1].Content)
		assert.Len(t, c.History(0), 4)
		assert.Len(t, c.History(10), 4)
	})

	t.Run("Clone is deep", func(t *testing.T) {
		cp := c.Clone()
		cp.Messages[1].Emotions[0].Score = 0.9
		cp.Messages[1].Content = "changed"
		assert.Equal(t, 0.5, c.Messages[1].Emotions[0].Score)
		assert.Equal(t, "one", c.Messages[1].Content)
	})

	t.Run("Reset returns to greeting", func(t *testing.T) {
		c.ContactEmail = "a@b.co"
		c.State.ProbeCounter = 2
		c.Reset()
		require.Len(t, c.Messages, 1)
		assert.Zero(t, c.State.ProbeCounter)
		assert.Equal(t, "a@b.co", c.ContactEmail)
	})
}

func TestCase(t *testing.T) {
	ts := time.Date(2024, 1, 31, 15, 45, 0, 0, time.UTC)
	assert.Equal(t, "TAFEP-20240131154500", NewCaseReference(ts))

	valid := Case{Reference: NewCaseReference(ts), ConversationID: "c1", Summary: "summary", CreatedAt: ts}
	assert.NoError(t, valid.Validate())

	bad := valid
	bad.Reference = "CASE-1"
	assert.ErrorIs(t, bad.Validate(), ErrInvalidInput)

	bad = valid
	bad.ContactEmail = "not-an-email"
	assert.ErrorIs(t, bad.Validate(), ErrInvalidInput)

	assert.True(t, ValidEmail("user@example.com"))
	assert.False(t, ValidEmail("user@"))
	assert.False(t, ValidEmail(""))
}
