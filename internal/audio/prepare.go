package audio

import (
	"fmt"
	"log/slog"
	"time"
)

// MIME types the recorder may upload.
const (
	MIMEWAV  = "audio/wav"
	MIMEWebM = "audio/webm"
	MIMEOgg  = "audio/ogg"
)

// Prepared is a recording ready to send to a transcriber.
type Prepared struct {
	Data       []byte
	MIMEType   string
	SampleRate int
	Duration   time.Duration
}

// Preparer applies the capture settings to uploaded recordings.
type Preparer struct {
	SampleRate       int
	SilenceThreshold int
	ChunkSize        int
	MinLength        time.Duration
	MaxSilence       time.Duration
}

// Prepare runs WAV input through mono, resample, trim and normalize, and
// rejects clips that are silent or shorter than MinLength. Compressed
// formats are passed through untouched.
func (p Preparer) Prepare(data []byte, mimeType string) (*Prepared, error) {
	if mimeType != MIMEWAV {
		return &Prepared{Data: data, MIMEType: mimeType}, nil
	}

	clip, err := Decode(data)
	if err != nil {
		return nil, err
	}
	original := clip.Duration()

	clip = clip.Mono().Resample(p.SampleRate)
	if Peak(clip.Samples) == 0 {
		return nil, ErrSilent
	}
	clip = clip.TrimSilence(p.SilenceThreshold, p.ChunkSize, p.MaxSilence)
	if len(clip.Samples) == 0 {
		return nil, ErrSilent
	}
	if clip.Duration() < p.MinLength {
		return nil, fmt.Errorf("%w: %.2fs < %.2fs", ErrTooShort, clip.Duration().Seconds(), p.MinLength.Seconds())
	}
	clip = clip.Normalize()

	out, err := Encode(clip)
	if err != nil {
		return nil, err
	}
	slog.Debug("Prepared recording",
		"original_seconds", original.Seconds(),
		"trimmed_seconds", clip.Duration().Seconds(),
		"sample_rate", clip.SampleRate,
		"bytes", len(out))

	return &Prepared{Data: out, MIMEType: MIMEWAV, SampleRate: clip.SampleRate, Duration: clip.Duration()}, nil
}
