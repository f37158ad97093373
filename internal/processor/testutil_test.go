package processor

import (
	"encoding/binary"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/linuxmatters/humprep/internal/audio"
)

// testRate keeps frame/duration conversions exact in assertions
const testRate = 8000

// clipOptions configures a synthetic clip: silence, tone, silence
type clipOptions struct {
	Lead       time.Duration // leading silence
	Signal     time.Duration // tone length
	Tail       time.Duration // trailing silence
	ToneLevel  float64       // tone peak in dBFS (default -6)
	NoiseLevel float64       // white noise in dBFS across the whole clip, 0 = none
}

// writeClip renders a mono 16-bit WAV at testRate to path, creating parent dirs
func writeClip(t *testing.T, path string, opts clipOptions) string {
	t.Helper()

	if opts.ToneLevel == 0 {
		opts.ToneLevel = -6.0
	}

	lead := audio.DurationToFrames(opts.Lead, testRate)
	signal := audio.DurationToFrames(opts.Signal, testRate)
	tail := audio.DurationToFrames(opts.Tail, testRate)
	samples := make([]int16, lead+signal+tail)

	toneAmp := math.Pow(10.0, opts.ToneLevel/20.0)
	noiseAmp := 0.0
	if opts.NoiseLevel < 0 {
		noiseAmp = math.Pow(10.0, opts.NoiseLevel/20.0)
	}

	// LCG noise keeps fixtures deterministic
	rngState := uint32(12345)
	nextRandom := func() float64 {
		rngState = rngState*1664525 + 1013904223
		return (float64(rngState)/float64(0xFFFFFFFF))*2.0 - 1.0
	}

	for i := range samples {
		var sample float64
		if i >= lead && i < lead+signal {
			sample += toneAmp * math.Sin(2.0*math.Pi*440*float64(i)/testRate)
		}
		if noiseAmp > 0 {
			sample += noiseAmp * nextRandom()
		}
		sample = math.Max(-1, math.Min(1, sample))
		samples[i] = int16(sample * math.MaxInt16)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("failed to create fixture dir: %v", err)
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("failed to create fixture: %v", err)
	}
	if err := writeWAV(f, samples, testRate); err != nil {
		f.Close()
		t.Fatalf("failed to write WAV file: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("failed to close fixture: %v", err)
	}
	return path
}

// writeWAV writes a mono 16-bit WAV file
func writeWAV(w io.Writer, samples []int16, sampleRate int) error {
	const (
		numChannels   = 1
		bitsPerSample = 16
	)

	byteRate := sampleRate * numChannels * bitsPerSample / 8
	blockAlign := numChannels * bitsPerSample / 8
	dataSize := len(samples) * 2
	fileSize := 36 + dataSize

	header := []any{
		[]byte("RIFF"), uint32(fileSize), []byte("WAVE"),
		[]byte("fmt "), uint32(16), uint16(1), uint16(numChannels),
		uint32(sampleRate), uint32(byteRate), uint16(blockAlign), uint16(bitsPerSample),
		[]byte("data"), uint32(dataSize),
	}
	for _, field := range header {
		if err := binary.Write(w, binary.LittleEndian, field); err != nil {
			return err
		}
	}
	return binary.Write(w, binary.LittleEndian, samples)
}

// newTestCleaner reads and writes WAV natively so no ffmpeg binary is needed
func newTestCleaner() *Cleaner {
	dec := audio.NewDecoderRegistry(nil)
	dec.Register(audio.FormatWAV, audio.WAVDecoder{})
	return NewCleaner(dec, audio.WAVEncoder{}, discardLogger())
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// decodedDuration reads back an output written by the test cleaner
func decodedDuration(t *testing.T, path string) time.Duration {
	t.Helper()
	buf, err := audio.WAVDecoder{}.Decode(t.Context(), path)
	if err != nil {
		t.Fatalf("failed to decode %s: %v", path, err)
	}
	return buf.Duration()
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func clipDesc(src, dst string, typ ClipType) ClipDescriptor {
	return ClipDescriptor{
		Source:      src,
		Destination: dst,
		Type:        typ,
		Format:      audio.FormatFromPath(src),
	}
}
