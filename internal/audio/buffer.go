package audio

import (
	"math"
	"path/filepath"
	"strings"
	"time"
)

// Format identifies an audio container/codec by its file extension
type Format string

const (
	FormatMP3  Format = "mp3"
	FormatWAV  Format = "wav"
	FormatFLAC Format = "flac"
	FormatM4A  Format = "m4a"
	FormatOGG  Format = "ogg"
)

// FormatFromPath returns the format implied by the file extension of path.
// Unknown extensions are returned as-is (lowercased, without the dot).
func FormatFromPath(path string) Format {
	return Format(strings.ToLower(strings.TrimPrefix(filepath.Ext(path), ".")))
}

// Ext returns the file extension for the format, including the leading dot
func (f Format) Ext() string {
	return "." + string(f)
}

// Buffer is a decoded clip held in memory.
// Samples are interleaved by channel and scaled to [-1, 1].
type Buffer struct {
	Samples    []float64
	SampleRate int
	Channels   int
}

// Interval delimits a sub-range of a buffer.
// Invariant: 0 <= Start <= End <= buffer duration.
type Interval struct {
	Start time.Duration
	End   time.Duration
}

// Length returns End - Start
func (iv Interval) Length() time.Duration {
	return iv.End - iv.Start
}

// IsEmpty reports whether the interval covers no signal
func (iv Interval) IsEmpty() bool {
	return iv.End <= iv.Start
}

// FramesToDuration converts a frame count to a duration, rounding up to the next
// nanosecond so that DurationToFrames(FramesToDuration(n)) == n for any rate.
func FramesToDuration(frames, sampleRate int) time.Duration {
	if sampleRate <= 0 || frames <= 0 {
		return 0
	}
	num := int64(frames) * int64(time.Second)
	rate := int64(sampleRate)
	return time.Duration((num + rate - 1) / rate)
}

// DurationToFrames converts a duration to a whole number of frames, rounding down
func DurationToFrames(d time.Duration, sampleRate int) int {
	if sampleRate <= 0 || d <= 0 {
		return 0
	}
	return int(int64(d) * int64(sampleRate) / int64(time.Second))
}

// Frames returns the number of sample frames (samples per channel)
func (b *Buffer) Frames() int {
	if b == nil || b.Channels <= 0 {
		return 0
	}
	return len(b.Samples) / b.Channels
}

// Duration is derived from the frame count and sample rate
func (b *Buffer) Duration() time.Duration {
	if b == nil {
		return 0
	}
	return FramesToDuration(b.Frames(), b.SampleRate)
}

// Slice returns a copy of the buffer restricted to iv.
// The interval is clamped to the buffer bounds.
func (b *Buffer) Slice(iv Interval) *Buffer {
	total := b.Frames()
	start := clampFrames(DurationToFrames(iv.Start, b.SampleRate), total)
	end := clampFrames(DurationToFrames(iv.End, b.SampleRate), total)
	if end < start {
		end = start
	}
	return b.sliceFrames(start, end)
}

// Truncate returns a copy holding at most max of audio, discarding the tail.
// A non-positive max leaves the length unchanged.
func (b *Buffer) Truncate(max time.Duration) *Buffer {
	total := b.Frames()
	if max <= 0 {
		return b.sliceFrames(0, total)
	}
	return b.sliceFrames(0, clampFrames(DurationToFrames(max, b.SampleRate), total))
}

// Peak returns the largest absolute sample value
func (b *Buffer) Peak() float64 {
	peak := 0.0
	for _, s := range b.Samples {
		if a := math.Abs(s); a > peak {
			peak = a
		}
	}
	return peak
}

// Scale returns a copy with every sample multiplied by gain and clipped to [-1, 1]
func (b *Buffer) Scale(gain float64) *Buffer {
	out := &Buffer{
		Samples:    make([]float64, len(b.Samples)),
		SampleRate: b.SampleRate,
		Channels:   b.Channels,
	}
	for i, s := range b.Samples {
		out.Samples[i] = clip(s * gain)
	}
	return out
}

func (b *Buffer) sliceFrames(start, end int) *Buffer {
	out := &Buffer{
		SampleRate: b.SampleRate,
		Channels:   b.Channels,
	}
	if end > start {
		out.Samples = make([]float64, (end-start)*b.Channels)
		copy(out.Samples, b.Samples[start*b.Channels:end*b.Channels])
	}
	return out
}

func clampFrames(n, total int) int {
	if n < 0 {
		return 0
	}
	if n > total {
		return total
	}
	return n
}

func clip(s float64) float64 {
	if s > 1.0 {
		return 1.0
	}
	if s < -1.0 {
		return -1.0
	}
	return s
}
