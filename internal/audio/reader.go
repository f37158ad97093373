// Package audio provides in-memory clip buffers and audio file I/O.
// WAV is read and written natively; every other format goes through an ffmpeg subprocess.
package audio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// ErrUnsupportedFormat is returned when no decoder handles a file's format
var ErrUnsupportedFormat = errors.New("unsupported audio format")

// WAV format tags accepted by the native decoder
const (
	wavFormatPCM        = 1
	wavFormatExtensible = 0xFFFE
)

// DecodeError reports a source file that could not be read or decoded.
// It is distinct from a clip being judged too short or silent.
type DecodeError struct {
	Path string
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s: %v", e.Path, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// Decoder turns a file on disk into a Buffer
type Decoder interface {
	Decode(ctx context.Context, path string) (*Buffer, error)
}

// WAVDecoder reads integer PCM WAV files without leaving the process
type WAVDecoder struct{}

// Decode reads the whole file into memory at its native rate and channel count
func (WAVDecoder) Decode(_ context.Context, path string) (*Buffer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &DecodeError{Path: path, Err: err}
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return nil, &DecodeError{Path: path, Err: errors.New("not a valid WAV file")}
	}
	if dec.WavAudioFormat != wavFormatPCM && dec.WavAudioFormat != wavFormatExtensible {
		return nil, &DecodeError{Path: path, Err: fmt.Errorf("%w: WAV format tag %d", ErrUnsupportedFormat, dec.WavAudioFormat)}
	}

	pcm, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, &DecodeError{Path: path, Err: fmt.Errorf("failed to read PCM data: %w", err)}
	}

	return fromIntBuffer(pcm, int(dec.BitDepth)), nil
}

// fromIntBuffer scales go-audio integer samples to [-1, 1]
func fromIntBuffer(pcm *audio.IntBuffer, bitDepth int) *Buffer {
	buf := &Buffer{
		Samples:    make([]float64, len(pcm.Data)),
		SampleRate: pcm.Format.SampleRate,
		Channels:   pcm.Format.NumChannels,
	}

	if bitDepth == 8 {
		// 8-bit WAV is unsigned
		for i, v := range pcm.Data {
			buf.Samples[i] = clip(float64(v-128) / 128.0)
		}
		return buf
	}

	scale := float64(int64(1) << uint(bitDepth-1))
	for i, v := range pcm.Data {
		buf.Samples[i] = clip(float64(v) / scale)
	}
	return buf
}

// FFmpegDecoder decodes any format ffmpeg understands to 16-bit PCM on a pipe
type FFmpegDecoder struct {
	Binary     string // defaults to "ffmpeg" on PATH
	SampleRate int    // output sample rate in Hz
	Channels   int    // output channel count
	Filter     string // optional ffmpeg audio filter chain, e.g. a mains notch
}

// DefaultFFmpegDecoder decodes to 44.1 kHz mono
func DefaultFFmpegDecoder() FFmpegDecoder {
	return FFmpegDecoder{Binary: "ffmpeg", SampleRate: 44100, Channels: 1}
}

// Decode runs ffmpeg and collects raw s16le samples from stdout
func (d FFmpegDecoder) Decode(ctx context.Context, path string) (*Buffer, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, &DecodeError{Path: path, Err: err}
	}

	cmd := exec.CommandContext(ctx, binaryOrDefault(d.Binary), d.args(path)...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	out, err := cmd.Output()
	if err != nil {
		return nil, &DecodeError{Path: path, Err: fmt.Errorf("ffmpeg: %w: %s", err, strings.TrimSpace(stderr.String()))}
	}

	return &Buffer{
		Samples:    BytesToSamples(out),
		SampleRate: d.SampleRate,
		Channels:   d.Channels,
	}, nil
}

// args builds the ffmpeg command line for one decode
func (d FFmpegDecoder) args(path string) []string {
	args := []string{"-nostdin", "-i", path, "-vn"}
	if d.Filter != "" {
		args = append(args, "-af", d.Filter)
	}
	return append(args,
		"-f", "s16le",
		"-acodec", "pcm_s16le",
		"-ar", strconv.Itoa(d.SampleRate),
		"-ac", strconv.Itoa(d.Channels),
		"-loglevel", "error",
		"pipe:1",
	)
}

// Decoders dispatches decoding by format, with an optional catch-all fallback
type Decoders struct {
	byFormat map[Format]Decoder
	fallback Decoder
}

// NewDecoders reads WAV natively and hands everything else, including WAV
// encodings the native reader rejects, to ffmpeg.
func NewDecoders(ffmpeg FFmpegDecoder) *Decoders {
	d := NewDecoderRegistry(ffmpeg)
	d.Register(FormatWAV, WAVDecoder{})
	return d
}

// NewDecoderRegistry builds an empty registry. fallback may be nil.
func NewDecoderRegistry(fallback Decoder) *Decoders {
	return &Decoders{byFormat: make(map[Format]Decoder), fallback: fallback}
}

// Register installs dec for format f, replacing any previous decoder
func (d *Decoders) Register(f Format, dec Decoder) {
	d.byFormat[f] = dec
}

// Decode reads path using the decoder registered for f
func (d *Decoders) Decode(ctx context.Context, path string, f Format) (*Buffer, error) {
	dec, ok := d.byFormat[f]
	if !ok {
		if d.fallback == nil {
			return nil, &DecodeError{Path: path, Err: fmt.Errorf("%w: %q", ErrUnsupportedFormat, f)}
		}
		return d.fallback.Decode(ctx, path)
	}

	buf, err := dec.Decode(ctx, path)
	if err != nil && d.fallback != nil && errors.Is(err, ErrUnsupportedFormat) {
		return d.fallback.Decode(ctx, path)
	}
	return buf, err
}

func binaryOrDefault(binary string) string {
	if binary == "" {
		return "ffmpeg"
	}
	return binary
}
