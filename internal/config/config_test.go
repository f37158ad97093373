package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

var envVars = []string{
	"HUMPREP_FFMPEG", "HUMPREP_RAW_PATH", "HUMPREP_PREPROCESSED_PATH",
	"HUMPREP_WORKERS", "HUMPREP_PARALLEL_GROUPS", "HUMPREP_FORMAT",
	"HUMPREP_THRESHOLD_DB", "HUMPREP_WINDOW", "HUMPREP_HEADROOM_DB",
	"HUMPREP_MAX_SONG_DURATION", "HUMPREP_MAX_HUM_DURATION", "HUMPREP_NOTCH_MAINS", "HUMPREP_MAINS_HZ",
	"HUMPREP_TEST_NAME", "HUMPREP_VAL_SIZE", "HUMPREP_SEED", "HUMPREP_EXT",
}

// clearEnv blanks every HUMPREP_* variable for the duration of the test
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range envVars {
		t.Setenv(k, "")
	}
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "preprocess.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	p := cfg.Preprocessing
	if cfg.FFmpeg != "ffmpeg" {
		t.Errorf("FFmpeg = %q, want ffmpeg", cfg.FFmpeg)
	}
	if p.Format != "mp3" || p.Ext != "mp3" {
		t.Errorf("Format/Ext = %q/%q, want mp3/mp3", p.Format, p.Ext)
	}
	if p.ThresholdDB != -40 || p.Window != 10*time.Millisecond || p.HeadroomDB != 0.1 {
		t.Errorf("detector/normaliser defaults = %v dB, %v, %v dB", p.ThresholdDB, p.Window, p.HeadroomDB)
	}
	if p.ValSize != 181 || p.Seed != 1234 {
		t.Errorf("split defaults = %d, %d; want 181, 1234", p.ValSize, p.Seed)
	}
	if p.MaxSongDuration != 0 || p.MaxHumDuration != 0 {
		t.Error("upper duration bounds should be disabled by default")
	}
	if p.TestName != "public_test" {
		t.Errorf("TestName = %q", p.TestName)
	}
}

func TestLoadYAML(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
path:
  raw_path: /data/chad
  preprocessed_path: /data/clean
preprocessing:
  val_size: 50
  workers: 6
  window: 20ms
  max_song_duration: 10.2s
  max_hum_duration: 20s
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Path.RawPath != "/data/chad" || cfg.Path.PreprocessedPath != "/data/clean" {
		t.Errorf("Path = %+v", cfg.Path)
	}
	p := cfg.Preprocessing
	if p.ValSize != 50 || p.Workers != 6 || p.Window != 20*time.Millisecond {
		t.Errorf("Preprocessing = %+v", p)
	}
	if p.MaxSongDuration != 10200*time.Millisecond || p.MaxHumDuration != 20*time.Second {
		t.Errorf("max durations = %v, %v", p.MaxSongDuration, p.MaxHumDuration)
	}
	// unset keys keep their defaults
	if p.Seed != 1234 || p.Format != "mp3" {
		t.Errorf("defaults lost: seed %d, format %q", p.Seed, p.Format)
	}
}

func TestLoadEnvOverridesFile(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, "preprocessing:\n  val_size: 50\n  format: mp3\n")

	t.Setenv("HUMPREP_VAL_SIZE", "10")
	t.Setenv("HUMPREP_FORMAT", "wav")
	t.Setenv("HUMPREP_NOTCH_MAINS", "true")
	t.Setenv("HUMPREP_MAX_HUM_DURATION", "15s")
	t.Setenv("HUMPREP_WORKERS", "not-a-number")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	p := cfg.Preprocessing
	if p.ValSize != 10 || p.Format != "wav" || !p.NotchMains || p.MaxHumDuration != 15*time.Second {
		t.Errorf("env not applied: %+v", p)
	}
	if p.Workers != 0 {
		t.Errorf("invalid HUMPREP_WORKERS should be ignored, got %d", p.Workers)
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{"unknown key", "preprocessing:\n  val_sise: 3\n", "val_sise"},
		{"bad format", "preprocessing:\n  format: ogg\n", "unsupported output format"},
		{"positive threshold", "preprocessing:\n  threshold_db: 3\n", "threshold"},
		{"negative workers", "preprocessing:\n  workers: -1\n", "workers"},
		{"odd mains", "preprocessing:\n  mains_hz: 55\n", "mains frequency"},
		{"malformed", "path: [\n", "parse config"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			_, err := Load(writeConfig(t, tt.body))
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Load() error = %v, want mention of %q", err, tt.wantErr)
			}
		})
	}

	t.Run("missing file", func(t *testing.T) {
		clearEnv(t)
		if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
			t.Error("expected an error for a missing config file")
		}
	})
}

func TestLoadEmptyFile(t *testing.T) {
	clearEnv(t)
	cfg, err := Load(writeConfig(t, ""))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Preprocessing.ValSize != 181 {
		t.Errorf("ValSize = %d, want default", cfg.Preprocessing.ValSize)
	}
}
