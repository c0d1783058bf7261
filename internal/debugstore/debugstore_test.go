package debugstore

import (
	"context"
	"encoding/json"
	"path"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedClock() func() time.Time {
	ts := time.Date(2024, 1, 31, 15, 45, 0, 0, time.UTC)
	return func() time.Time { return ts }
}

func TestSaveRecording(t *testing.T) {
	memFs := afero.NewMemMapFs()
	s := newStore(memFs, "debug", fixedClock())
	assert.Equal(t, "debug/session_20240131_154500", s.SessionDir())

	rec, err := s.SaveRecording(context.Background(), []byte("RIFFdata"), "audio/wav", 1500*time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, 1, rec.Counter)
	assert.Equal(t, "recording_20240131_154500_1.wav", rec.Name)

	dir := path.Join(s.SessionDir(), "audio")
	data, err := afero.ReadFile(memFs, path.Join(dir, rec.Name))
	require.NoError(t, err)
	assert.Equal(t, []byte("RIFFdata"), data)

	raw, err := afero.ReadFile(memFs, path.Join(dir, "recording_20240131_154500_1.json"))
	require.NoError(t, err)
	var meta metadata
	require.NoError(t, json.Unmarshal(raw, &meta))
	assert.Equal(t, "20240131_154500", meta.Timestamp)
	assert.Equal(t, 1.5, meta.DurationSeconds)
	assert.Equal(t, 8, meta.FileSizeBytes)

	rec2, err := s.SaveRecording(context.Background(), []byte{0x1a}, "audio/webm", 0)
	require.NoError(t, err)
	assert.Equal(t, "recording_20240131_154500_2.webm", rec2.Name)
}

func TestRecordFrame(t *testing.T) {
	memFs := afero.NewMemMapFs()
	s := newStore(memFs, "debug", fixedClock())
	frame := []byte(`{"type":"user_message","message":{"content":"hi"}}`)

	s.RecordFrame(context.Background(), "user_message", frame)
	exists, err := afero.DirExists(memFs, path.Join(s.SessionDir(), "hume_responses"))
	require.NoError(t, err)
	assert.False(t, exists, "untagged frames are ignored")

	rec := &Recording{Timestamp: "20240131_154500", Counter: 3, Name: "recording_20240131_154500_3.wav"}
	s.RecordFrame(WithRecording(context.Background(), rec), "user_message", frame)

	raw, err := afero.ReadFile(memFs, path.Join(s.SessionDir(), "hume_responses", "user_message_20240131_154500_3.json"))
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(raw, &doc))
	assert.Equal(t, "user_message", doc["type"])
	info, ok := doc["debug_info"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "recording_20240131_154500_3.wav", info["corresponding_audio"])
	assert.Equal(t, "user_message", info["message_type"])
}

func TestRecordFrame_NonJSON(t *testing.T) {
	memFs := afero.NewMemMapFs()
	s := newStore(memFs, "debug", fixedClock())
	ctx := WithRecording(context.Background(), &Recording{Counter: 1, Name: "r.wav"})

	s.RecordFrame(ctx, "", []byte("not json"))

	raw, err := afero.ReadFile(memFs, path.Join(s.SessionDir(), "hume_responses", "unknown_20240131_154500_1.json"))
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"raw": "not json"`)
}

func TestCleanup(t *testing.T) {
	memFs := afero.NewMemMapFs()
	s := newStore(memFs, "debug", fixedClock())
	ctx := context.Background()

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	var recs []*Recording
	for i := range 4 {
		rec, err := s.SaveRecording(ctx, []byte("x"), "audio/wav", time.Second)
		require.NoError(t, err)
		p := path.Join(s.SessionDir(), "audio", rec.Name)
		mt := base.Add(time.Duration(i) * time.Minute)
		require.NoError(t, memFs.Chtimes(p, mt, mt))
		recs = append(recs, rec)
	}

	removed, err := s.Cleanup(2)
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	for i, rec := range recs {
		p := path.Join(s.SessionDir(), "audio", rec.Name)
		exists, err := afero.Exists(memFs, p)
		require.NoError(t, err)
		sidecar, err := afero.Exists(memFs, p[:len(p)-len(".wav")]+".json")
		require.NoError(t, err)
		if i < 2 {
			assert.False(t, exists, "oldest recording %d is removed", i)
			assert.False(t, sidecar)
		} else {
			assert.True(t, exists, "newest recording %d is kept", i)
			assert.True(t, sidecar)
		}
	}

	removed, err = s.Cleanup(10)
	require.NoError(t, err)
	assert.Zero(t, removed)
}
