package prompts

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nfrund/tafep-voice/internal/domain"
)

func TestDefaultsAreEmbedded(t *testing.T) {
	r, err := New("")
	require.NoError(t, err)

	var names []string
	for _, m := range r.List() {
		names = append(names, m.Name)
		assert.Equal(t, SourceEmbedded, m.Source)
		assert.Len(t, m.Checksum, 64)
	}
	assert.Equal(t, []string{AskToFile, CaseSummary, Categorize, Classify, ClassifyXML, Closure, Establish, Probe, Tone}, names)
}

func TestRenderClassify(t *testing.T) {
	r, err := New("")
	require.NoError(t, err)

	data := Data{
		Input:      "they passed me over",
		History:    "User: hello",
		State:      domain.ConversationState{IssueEstablished: true, ProbeCounter: 2},
		ProbeLimit: 3,
	}

	plain, err := r.Render(Classify, data)
	require.NoError(t, err)
	assert.Contains(t, plain, `User input: "they passed me over"`)
	assert.Contains(t, plain, "- Issue Established: Yes")
	assert.Contains(t, plain, "- Discrimination Type Categorized: No")
	assert.Contains(t, plain, "- Probe Count: 2 of 3")

	xml, err := r.Render(ClassifyXML, data)
	require.NoError(t, err)
	assert.Contains(t, xml, "<issue_established>true</issue_established>")
	assert.Contains(t, xml, "<probe_count>2</probe_count>")
	assert.Contains(t, xml, "<input>they passed me over</input>")
}

func TestRenderTone(t *testing.T) {
	r, err := New("")
	require.NoError(t, err)

	out, err := r.Render(Tone, Data{Emotions: []domain.EmotionScore{
		{Name: "Sadness", Score: 0.45},
		{Name: "Anger", Score: 0.1234},
	}})
	require.NoError(t, err)
	assert.Contains(t, out, "Sadness: 45.00%, Anger: 12.34%")
	assert.Contains(t, out, "SHORT phrase")
}

func TestToneGuidanceIsOptional(t *testing.T) {
	r, err := New("")
	require.NoError(t, err)

	without, err := r.Render(Establish, Data{Input: "hi"})
	require.NoError(t, err)
	assert.NotContains(t, without, "Tone guidance")
	assert.Contains(t, without, "max 30 words")

	with, err := r.Render(Establish, Data{Input: "hi", Tone: "be more empathetic"})
	require.NoError(t, err)
	assert.Contains(t, with, "Tone guidance: be more empathetic")
}

func TestClosureMentionsReference(t *testing.T) {
	r, err := New("")
	require.NoError(t, err)

	out, err := r.Render(Closure, Data{CaseReference: "TAFEP-20240131154500"})
	require.NoError(t, err)
	assert.Contains(t, out, "TAFEP-20240131154500")
}

func TestUnknownPrompt(t *testing.T) {
	r, err := New("")
	require.NoError(t, err)

	_, err = r.Render("nope", Data{})
	assert.ErrorIs(t, err, ErrUnknownPrompt)
}

func TestOverrideDirectory(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "closure.tmpl"), []byte("Goodbye from override{{template \"tone_guidance\" .}}"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.tmpl"), []byte("{{.Input"), 0o644))

	r, err := New(dir)
	require.NoError(t, err)

	out, err := r.Render(Closure, Data{Tone: "stay calm"})
	require.NoError(t, err)
	assert.Equal(t, "Goodbye from override\nTone guidance: stay calm", out)

	_, err = r.Render("broken", Data{})
	assert.ErrorIs(t, err, ErrUnknownPrompt, "invalid overrides are skipped")
}

func TestWatchReloadsAndReverts(t *testing.T) {
	dir := t.TempDir()
	r, err := New(dir)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, r.Watch(ctx))

	path := filepath.Join(dir, "probe.tmpl")
	require.NoError(t, os.WriteFile(path, []byte("custom probe {{.State.ProbeCounter}}"), 0o644))

	assert.Eventually(t, func() bool {
		out, err := r.Render(Probe, Data{State: domain.ConversationState{ProbeCounter: 1}})
		return err == nil && out == "custom probe 1"
	}, 2*time.Second, 20*time.Millisecond)

	require.NoError(t, os.Remove(path))
	assert.Eventually(t, func() bool {
		out, err := r.Render(Probe, Data{})
		return err == nil && out != "custom probe 0"
	}, 2*time.Second, 20*time.Millisecond)
}
