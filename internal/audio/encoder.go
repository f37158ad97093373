package audio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/cenkalti/backoff/v4"
	"github.com/go-audio/wav"
)

// EncodeError reports a buffer that could not be written to its destination.
// No partial file is left behind when it is returned.
type EncodeError struct {
	Path string
	Err  error
}

func (e *EncodeError) Error() string {
	return fmt.Sprintf("encode %s: %v", e.Path, e.Err)
}

func (e *EncodeError) Unwrap() error {
	return e.Err
}

// Encoder writes a Buffer to a file in a fixed output format
type Encoder interface {
	Encode(ctx context.Context, buf *Buffer, path string) error
	Format() Format
}

// MP3Encoder pipes 16-bit PCM into ffmpeg's libmp3lame encoder
type MP3Encoder struct {
	Binary     string // defaults to "ffmpeg" on PATH
	Quality    int    // LAME VBR quality, 0 (best) to 9
	MaxRetries uint64 // extra attempts after a failed ffmpeg run
}

// DefaultMP3Encoder returns VBR quality 2 with two retries
func DefaultMP3Encoder() MP3Encoder {
	return MP3Encoder{Binary: "ffmpeg", Quality: 2, MaxRetries: 2}
}

// Format returns FormatMP3
func (e MP3Encoder) Format() Format {
	return FormatMP3
}

// Encode writes buf to path as MP3, creating parent directories as needed
func (e MP3Encoder) Encode(ctx context.Context, buf *Buffer, path string) error {
	pcm := SamplesToBytes(buf.Samples)

	err := writeAtomic(path, func(tmpPath string) error {
		operation := func() error {
			return e.run(ctx, buf, pcm, tmpPath)
		}
		b := backoff.WithMaxRetries(backoff.NewExponentialBackOff(), e.MaxRetries)
		return backoff.Retry(operation, backoff.WithContext(b, ctx))
	})
	if err != nil {
		return &EncodeError{Path: path, Err: err}
	}
	return nil
}

func (e MP3Encoder) run(ctx context.Context, buf *Buffer, pcm []byte, outPath string) error {
	cmd := exec.CommandContext(ctx, binaryOrDefault(e.Binary), e.args(buf, outPath)...)
	cmd.Stdin = bytes.NewReader(pcm)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return backoff.Permanent(fmt.Errorf("ffmpeg not available: %w", err))
		}
		return fmt.Errorf("ffmpeg: %w: %s", err, strings.TrimSpace(stderr.String()))
	}
	return nil
}

// args builds the ffmpeg command line for one encode
func (e MP3Encoder) args(buf *Buffer, outPath string) []string {
	return []string{
		"-y",
		"-f", "s16le",
		"-ar", strconv.Itoa(buf.SampleRate),
		"-ac", strconv.Itoa(buf.Channels),
		"-i", "pipe:0",
		"-codec:a", "libmp3lame",
		"-q:a", strconv.Itoa(e.Quality),
		"-f", "mp3",
		"-loglevel", "error",
		outPath,
	}
}

// WAVEncoder writes integer PCM WAV without leaving the process
type WAVEncoder struct {
	BitDepth int // defaults to 16
}

// Format returns FormatWAV
func (e WAVEncoder) Format() Format {
	return FormatWAV
}

// Encode writes buf to path as PCM WAV, creating parent directories as needed
func (e WAVEncoder) Encode(_ context.Context, buf *Buffer, path string) error {
	bitDepth := e.BitDepth
	if bitDepth == 0 {
		bitDepth = 16
	}

	err := writeAtomic(path, func(tmpPath string) error {
		f, err := os.Create(tmpPath)
		if err != nil {
			return err
		}

		enc := wav.NewEncoder(f, buf.SampleRate, bitDepth, buf.Channels, wavFormatPCM)
		if err := enc.Write(toIntBuffer(buf, bitDepth)); err != nil {
			f.Close()
			return fmt.Errorf("failed to write samples: %w", err)
		}
		if err := enc.Close(); err != nil {
			f.Close()
			return fmt.Errorf("failed to finalise WAV header: %w", err)
		}
		return f.Close()
	})
	if err != nil {
		return &EncodeError{Path: path, Err: err}
	}
	return nil
}

// writeAtomic lets write fill a temporary file beside path, then renames it into
// place. The temporary file is removed on any failure.
func writeAtomic(path string, write func(tmpPath string) error) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("mkdir output dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	_ = tmp.Close()
	defer os.Remove(tmpPath)

	if err := write(tmpPath); err != nil {
		return err
	}

	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}
