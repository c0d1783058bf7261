// Package audio decodes browser recordings and prepares them for speech recognition.
package audio

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"time"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/spf13/afero/mem"
)

var (
	ErrInvalidWAV = errors.New("audio: not a valid PCM WAV stream")
	ErrTooShort   = errors.New("audio: recording is too short")
	ErrSilent     = errors.New("audio: recording contains no speech")
)

const maxInt16 = 32767

// Clip is interleaved PCM scaled to the 16-bit range.
type Clip struct {
	Samples    []int
	SampleRate int
	Channels   int
}

// Frames is the number of sample frames (samples per channel).
func (c *Clip) Frames() int {
	if c.Channels <= 0 {
		return 0
	}
	return len(c.Samples) / c.Channels
}

// Duration is the playback length of the clip.
func (c *Clip) Duration() time.Duration {
	if c.SampleRate <= 0 {
		return 0
	}
	return time.Duration(float64(c.Frames()) / float64(c.SampleRate) * float64(time.Second))
}

// Decode reads a RIFF/WAV byte stream.
func Decode(data []byte) (*Clip, error) {
	d := wav.NewDecoder(bytes.NewReader(data))
	if !d.IsValidFile() {
		return nil, ErrInvalidWAV
	}
	buf, err := d.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidWAV, err)
	}
	if buf.Format == nil || buf.Format.NumChannels <= 0 {
		return nil, ErrInvalidWAV
	}
	samples := make([]int, len(buf.Data))
	for i, v := range buf.Data {
		samples[i] = toInt16Range(v, int(d.BitDepth))
	}
	return &Clip{Samples: samples, SampleRate: buf.Format.SampleRate, Channels: buf.Format.NumChannels}, nil
}

func toInt16Range(v, depth int) int {
	switch depth {
	case 8:
		return (v - 128) << 8
	case 24:
		return v >> 8
	case 32:
		return v >> 16
	default:
		return v
	}
}

// Encode writes the clip as a 16-bit PCM WAV.
func Encode(c *Clip) ([]byte, error) {
	f := mem.NewFileHandle(mem.CreateFile("clip.wav"))
	enc := wav.NewEncoder(f, c.SampleRate, 16, c.Channels, 1)
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: c.Channels, SampleRate: c.SampleRate},
		Data:           c.Samples,
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		return nil, fmt.Errorf("failed to encode wav: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize wav: %w", err)
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}
	return io.ReadAll(f)
}

// Mono averages interleaved channels into a single channel.
func (c *Clip) Mono() *Clip {
	if c.Channels <= 1 {
		return c
	}
	frames := c.Frames()
	out := make([]int, frames)
	for i := 0; i < frames; i++ {
		sum := 0
		for ch := 0; ch < c.Channels; ch++ {
			sum += c.Samples[i*c.Channels+ch]
		}
		out[i] = sum / c.Channels
	}
	return &Clip{Samples: out, SampleRate: c.SampleRate, Channels: 1}
}

// Peak is the largest absolute sample value.
func Peak(samples []int) int {
	peak := 0
	for _, s := range samples {
		if s < 0 {
			s = -s
		}
		if s > peak {
			peak = s
		}
	}
	return peak
}

// Normalize scales the clip so its peak reaches full 16-bit range.
// A silent clip is returned unchanged.
func (c *Clip) Normalize() *Clip {
	peak := Peak(c.Samples)
	if peak == 0 {
		return c
	}
	scale := float64(maxInt16) / float64(peak)
	out := make([]int, len(c.Samples))
	for i, s := range c.Samples {
		out[i] = clamp(int(math.Round(float64(s) * scale)))
	}
	return &Clip{Samples: out, SampleRate: c.SampleRate, Channels: c.Channels}
}

// Resample converts a mono clip to the target rate with linear interpolation.
func (c *Clip) Resample(rate int) *Clip {
	if rate <= 0 || rate == c.SampleRate || len(c.Samples) == 0 || c.Channels != 1 {
		return c
	}
	ratio := float64(c.SampleRate) / float64(rate)
	n := int(float64(len(c.Samples)) / ratio)
	out := make([]int, n)
	last := len(c.Samples) - 1
	for i := range out {
		pos := float64(i) * ratio
		j := int(pos)
		if j >= last {
			out[i] = c.Samples[last]
			continue
		}
		frac := pos - float64(j)
		out[i] = int(math.Round(float64(c.Samples[j])*(1-frac) + float64(c.Samples[j+1])*frac))
	}
	return &Clip{Samples: out, SampleRate: rate, Channels: 1}
}

// RMS is the root mean square amplitude of samples.
func RMS(samples []int) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		sum += float64(s) * float64(s)
	}
	return math.Sqrt(sum / float64(len(samples)))
}

// TrimSilence drops silent chunks at both ends of a mono clip and shortens
// inner silent stretches to at most maxSilence.
func (c *Clip) TrimSilence(threshold, chunk int, maxSilence time.Duration) *Clip {
	if chunk <= 0 || c.Channels != 1 || len(c.Samples) == 0 {
		return c
	}
	type window struct {
		start, end int
		silent     bool
	}
	var windows []window
	for start := 0; start < len(c.Samples); start += chunk {
		end := min(start+chunk, len(c.Samples))
		windows = append(windows, window{start, end, RMS(c.Samples[start:end]) < float64(threshold)})
	}

	first, last := -1, -1
	for i, w := range windows {
		if !w.silent {
			if first < 0 {
				first = i
			}
			last = i
		}
	}
	if first < 0 {
		return &Clip{SampleRate: c.SampleRate, Channels: 1}
	}

	maxSamples := int(maxSilence.Seconds() * float64(c.SampleRate))
	out := make([]int, 0, len(c.Samples))
	silentRun := 0
	for _, w := range windows[first : last+1] {
		if w.silent {
			room := maxSamples - silentRun
			if room <= 0 {
				continue
			}
			seg := c.Samples[w.start:w.end]
			if len(seg) > room {
				seg = seg[:room]
			}
			out = append(out, seg...)
			silentRun += len(seg)
			continue
		}
		silentRun = 0
		out = append(out, c.Samples[w.start:w.end]...)
	}
	return &Clip{Samples: out, SampleRate: c.SampleRate, Channels: 1}
}

func clamp(v int) int {
	if v > maxInt16 {
		return maxInt16
	}
	if v < -maxInt16-1 {
		return -maxInt16 - 1
	}
	return v
}
