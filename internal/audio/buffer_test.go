package audio

import (
	"math"
	"testing"
	"time"
)

// toneBuffer builds a mono sine at 440 Hz with the given amplitude
func toneBuffer(rate int, d time.Duration, amp float64) *Buffer {
	n := DurationToFrames(d, rate)
	b := &Buffer{Samples: make([]float64, n), SampleRate: rate, Channels: 1}
	for i := range b.Samples {
		b.Samples[i] = amp * math.Sin(2*math.Pi*440*float64(i)/float64(rate))
	}
	return b
}

func TestFormatFromPath(t *testing.T) {
	tests := []struct {
		path string
		want Format
	}{
		{"song/1_0_abc.mp3", FormatMP3},
		{"hum/hum_1_0_abc.WAV", FormatWAV},
		{"a/b.flac", FormatFLAC},
		{"noext", Format("")},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			if got := FormatFromPath(tt.path); got != tt.want {
				t.Errorf("FormatFromPath(%q) = %q, want %q", tt.path, got, tt.want)
			}
		})
	}

	if FormatMP3.Ext() != ".mp3" {
		t.Errorf("FormatMP3.Ext() = %q, want .mp3", FormatMP3.Ext())
	}
}

func TestFrameDurationRoundTrip(t *testing.T) {
	for _, rate := range []int{8000, 16000, 22050, 44100, 48000} {
		for _, frames := range []int{0, 1, 7, 441, 44099, 123457} {
			d := FramesToDuration(frames, rate)
			if got := DurationToFrames(d, rate); got != frames {
				t.Errorf("rate %d: DurationToFrames(FramesToDuration(%d)) = %d", rate, frames, got)
			}
		}
	}
}

func TestBufferDuration(t *testing.T) {
	b := &Buffer{Samples: make([]float64, 32000), SampleRate: 16000, Channels: 2}
	if b.Frames() != 16000 {
		t.Errorf("Frames() = %d, want 16000", b.Frames())
	}
	if b.Duration() != time.Second {
		t.Errorf("Duration() = %v, want 1s", b.Duration())
	}

	var nilBuf *Buffer
	if nilBuf.Duration() != 0 {
		t.Errorf("nil buffer Duration() = %v, want 0", nilBuf.Duration())
	}
}

func TestBufferSlice(t *testing.T) {
	b := toneBuffer(8000, 2*time.Second, 0.5)

	tests := []struct {
		name string
		iv   Interval
		want time.Duration
	}{
		{"inner", Interval{Start: 500 * time.Millisecond, End: 1500 * time.Millisecond}, time.Second},
		{"clamped end", Interval{Start: time.Second, End: 10 * time.Second}, time.Second},
		{"empty", Interval{}, 0},
		{"inverted", Interval{Start: time.Second, End: 500 * time.Millisecond}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := b.Slice(tt.iv)
			if got.Duration() != tt.want {
				t.Errorf("Slice(%v).Duration() = %v, want %v", tt.iv, got.Duration(), tt.want)
			}
			if got.SampleRate != b.SampleRate || got.Channels != b.Channels {
				t.Errorf("Slice changed format to %d Hz / %d ch", got.SampleRate, got.Channels)
			}
		})
	}
}

func TestBufferSliceDoesNotAlias(t *testing.T) {
	b := toneBuffer(8000, time.Second, 0.5)
	s := b.Slice(Interval{End: time.Second})
	s.Samples[1] = 0.99
	if b.Samples[1] == 0.99 {
		t.Error("Slice shares storage with the source buffer")
	}
}

func TestBufferTruncate(t *testing.T) {
	b := toneBuffer(16000, 6*time.Second, 0.5)

	tests := []struct {
		name string
		max  time.Duration
		want time.Duration
	}{
		{"shorter", 4 * time.Second, 4 * time.Second},
		{"longer than buffer", 10 * time.Second, 6 * time.Second},
		{"zero keeps all", 0, 6 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := b.Truncate(tt.max).Duration(); got != tt.want {
				t.Errorf("Truncate(%v).Duration() = %v, want %v", tt.max, got, tt.want)
			}
		})
	}
}

func TestBufferPeakAndScale(t *testing.T) {
	b := &Buffer{Samples: []float64{0.1, -0.4, 0.25}, SampleRate: 8000, Channels: 1}
	if b.Peak() != 0.4 {
		t.Errorf("Peak() = %v, want 0.4", b.Peak())
	}

	scaled := b.Scale(3)
	want := []float64{0.30000000000000004, -1.0, 0.75}
	for i, s := range scaled.Samples {
		if math.Abs(s-want[i]) > 1e-9 {
			t.Errorf("Scale(3)[%d] = %v, want %v", i, s, want[i])
		}
	}
	if b.Samples[1] != -0.4 {
		t.Error("Scale mutated the source buffer")
	}
}

func TestPCMConversion(t *testing.T) {
	in := []float64{0, 0.5, -0.5, 1, -1, 1.7}
	out := BytesToSamples(SamplesToBytes(in))
	if len(out) != len(in) {
		t.Fatalf("got %d samples, want %d", len(out), len(in))
	}
	for i := range in {
		want := clip(in[i])
		if math.Abs(out[i]-want) > 1.0/16384 {
			t.Errorf("sample %d: got %v, want ~%v", i, out[i], want)
		}
	}

	if got := BytesToSamples([]byte{0x00, 0x40, 0x7f}); len(got) != 1 {
		t.Errorf("odd trailing byte: got %d samples, want 1", len(got))
	}
}
