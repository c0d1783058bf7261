// Package debugstore keeps copies of recordings and upstream frames for
// troubleshooting the speech pipeline.
package debugstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/spf13/afero"
)

const (
	tsLayout  = "20060102_150405"
	audioDir  = "audio"
	framesDir = "hume_responses"
	recPrefix = "recording_"
)

// Recording identifies a saved recording so frames can point back to it.
type Recording struct {
	Timestamp string
	Counter   int
	Name      string
}

type metadata struct {
	Timestamp       string  `json:"timestamp"`
	DurationSeconds float64 `json:"duration_seconds"`
	FileSizeBytes   int     `json:"file_size_bytes"`
	MIMEType        string  `json:"mime_type"`
}

type debugInfo struct {
	CorrespondingAudio string `json:"corresponding_audio"`
	ResponseTimestamp  string `json:"response_timestamp"`
	MessageType        string `json:"message_type"`
}

// Store writes debug artifacts under root/session_<ts>/.
type Store struct {
	fs      afero.Fs
	root    string
	session string
	now     func() time.Time

	mu      sync.Mutex
	counter int
}

// New creates a store for one process run.
func New(fsys afero.Fs, root string) *Store {
	return newStore(fsys, root, time.Now)
}

func newStore(fsys afero.Fs, root string, now func() time.Time) *Store {
	return &Store{
		fs:      fsys,
		root:    root,
		session: path.Join(root, "session_"+now().Format(tsLayout)),
		now:     now,
	}
}

// SessionDir is the directory this run writes into.
func (s *Store) SessionDir() string { return s.session }

func extFor(mimeType string) string {
	switch mimeType {
	case "audio/webm":
		return ".webm"
	case "audio/ogg":
		return ".ogg"
	default:
		return ".wav"
	}
}

// SaveRecording writes the audio and a JSON metadata sidecar.
func (s *Store) SaveRecording(_ context.Context, data []byte, mimeType string, duration time.Duration) (*Recording, error) {
	s.mu.Lock()
	s.counter++
	n := s.counter
	s.mu.Unlock()

	ts := s.now().Format(tsLayout)
	base := fmt.Sprintf("%s%s_%d", recPrefix, ts, n)
	dir := path.Join(s.session, audioDir)
	if err := s.fs.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create debug audio dir: %w", err)
	}

	name := base + extFor(mimeType)
	if err := afero.WriteFile(s.fs, path.Join(dir, name), data, 0o644); err != nil {
		return nil, fmt.Errorf("failed to save debug recording: %w", err)
	}

	meta, err := json.MarshalIndent(metadata{
		Timestamp:       ts,
		DurationSeconds: duration.Seconds(),
		FileSizeBytes:   len(data),
		MIMEType:        mimeType,
	}, "", "    ")
	if err != nil {
		return nil, err
	}
	if err := afero.WriteFile(s.fs, path.Join(dir, base+".json"), meta, 0o644); err != nil {
		return nil, fmt.Errorf("failed to save debug metadata: %w", err)
	}

	slog.Debug("Saved debug recording", "file", name, "bytes", len(data))
	return &Recording{Timestamp: ts, Counter: n, Name: name}, nil
}

type recordingKey struct{}

// WithRecording tags ctx so frames recorded under it reference rec.
func WithRecording(ctx context.Context, rec *Recording) context.Context {
	if rec == nil {
		return ctx
	}
	return context.WithValue(ctx, recordingKey{}, rec)
}

func recordingFrom(ctx context.Context) *Recording {
	rec, _ := ctx.Value(recordingKey{}).(*Recording)
	return rec
}

// RecordFrame saves one upstream frame. Frames outside a tagged context are
// ignored. Failures are logged only.
func (s *Store) RecordFrame(ctx context.Context, frameType string, raw []byte) {
	rec := recordingFrom(ctx)
	if rec == nil {
		return
	}
	if frameType == "" {
		frameType = "unknown"
	}

	doc := map[string]any{}
	if err := json.Unmarshal(raw, &doc); err != nil {
		doc = map[string]any{"raw": string(raw)}
	}
	ts := s.now().Format(tsLayout)
	doc["debug_info"] = debugInfo{
		CorrespondingAudio: rec.Name,
		ResponseTimestamp:  ts,
		MessageType:        frameType,
	}

	out, err := json.MarshalIndent(doc, "", "    ")
	if err != nil {
		slog.Error("Error encoding upstream frame", "error", err)
		return
	}
	dir := path.Join(s.session, framesDir)
	if err := s.fs.MkdirAll(dir, 0o755); err != nil {
		slog.Error("Error creating frames dir", "error", err)
		return
	}
	name := fmt.Sprintf("%s_%s_%d.json", frameType, ts, rec.Counter)
	if err := afero.WriteFile(s.fs, path.Join(dir, name), out, 0o644); err != nil {
		slog.Error("Error saving upstream frame", "file", name, "error", err)
	}
}

type savedRecording struct {
	path    string
	modTime time.Time
}

// Cleanup keeps the newest max recordings across all sessions and removes
// the rest along with their sidecars. It returns how many were removed.
func (s *Store) Cleanup(maxKeep int) (int, error) {
	if ok, _ := afero.DirExists(s.fs, s.root); !ok {
		return 0, nil
	}
	var recs []savedRecording
	err := afero.Walk(s.fs, s.root, func(p string, info fs.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() || path.Base(path.Dir(p)) != audioDir {
			return nil
		}
		name := info.Name()
		if !strings.HasPrefix(name, recPrefix) || strings.HasSuffix(name, ".json") {
			return nil
		}
		recs = append(recs, savedRecording{path: p, modTime: info.ModTime()})
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to scan debug recordings: %w", err)
	}
	if len(recs) <= maxKeep {
		return 0, nil
	}

	slices.SortFunc(recs, func(a, b savedRecording) int {
		if c := b.modTime.Compare(a.modTime); c != 0 {
			return c
		}
		return strings.Compare(b.path, a.path)
	})

	removed := 0
	for _, r := range recs[max(maxKeep, 0):] {
		if err := s.fs.Remove(r.path); err != nil {
			slog.Warn("Failed to remove debug recording", "file", r.path, "error", err)
			continue
		}
		sidecar := strings.TrimSuffix(r.path, path.Ext(r.path)) + ".json"
		if err := s.fs.Remove(sidecar); err != nil && !errors.Is(err, fs.ErrNotExist) {
			slog.Warn("Failed to remove debug metadata", "file", sidecar, "error", err)
		}
		removed++
	}
	slog.Info("Cleaned up debug recordings", "removed", removed, "kept", maxKeep)
	return removed, nil
}
