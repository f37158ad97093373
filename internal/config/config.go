// Package config loads humprep settings from an optional YAML file, a .env file
// and HUMPREP_* environment variables, in increasing order of precedence.
// Command-line flags are applied on top by the caller.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config mirrors the YAML layout
type Config struct {
	Path          PathConfig          `yaml:"path"`
	Preprocessing PreprocessingConfig `yaml:"preprocessing"`
	FFmpeg        string              `yaml:"ffmpeg"` // ffmpeg binary name or path
}

// PathConfig locates the raw and cleaned datasets
type PathConfig struct {
	RawPath          string `yaml:"raw_path"`
	PreprocessedPath string `yaml:"preprocessed_path"`
}

// PreprocessingConfig holds cleaning and split settings
type PreprocessingConfig struct {
	Workers         int           `yaml:"workers"` // 0 = one per CPU
	ParallelGroups  bool          `yaml:"parallel_groups"`
	Format          string        `yaml:"format"` // output encoding: mp3 or wav
	ThresholdDB     float64       `yaml:"threshold_db"`
	Window          time.Duration `yaml:"window"`
	HeadroomDB      float64       `yaml:"headroom_db"`
	MaxSongDuration time.Duration `yaml:"max_song_duration"` // 0 = no upper bound
	MaxHumDuration  time.Duration `yaml:"max_hum_duration"`  // 0 = no upper bound
	NotchMains      bool          `yaml:"notch_mains"`
	MainsHz         int           `yaml:"mains_hz"` // 50 or 60; 0 = detect from timezone
	TestName        string        `yaml:"test_name"`
	ValSize         int           `yaml:"val_size"`
	Seed            int64         `yaml:"seed"`
	Ext             string        `yaml:"ext"` // extension of cleaned files when splitting
}

// Default returns the built-in settings
func Default() Config {
	return Config{
		FFmpeg: "ffmpeg",
		Preprocessing: PreprocessingConfig{
			Format:      "mp3",
			ThresholdDB: -40,
			Window:      10 * time.Millisecond,
			HeadroomDB:  0.1,
			TestName:    "public_test",
			ValSize:     181,
			Seed:        1234,
			Ext:         "mp3",
		},
	}
}

// Load builds a Config from defaults, the YAML file at path (skipped when path is
// empty), a .env file in the working directory if present, then the environment.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err := decodeYAML(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return cfg, fmt.Errorf("load .env: %w", err)
	}

	applyEnv(&cfg)
	return cfg, cfg.Validate()
}

// decodeYAML rejects unknown keys so typos in the config surface as errors
func decodeYAML(data []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func applyEnv(cfg *Config) {
	p := &cfg.Preprocessing

	cfg.FFmpeg = envStr("HUMPREP_FFMPEG", cfg.FFmpeg)
	cfg.Path.RawPath = envStr("HUMPREP_RAW_PATH", cfg.Path.RawPath)
	cfg.Path.PreprocessedPath = envStr("HUMPREP_PREPROCESSED_PATH", cfg.Path.PreprocessedPath)

	p.Workers = envInt("HUMPREP_WORKERS", p.Workers)
	p.ParallelGroups = envBool("HUMPREP_PARALLEL_GROUPS", p.ParallelGroups)
	p.Format = envStr("HUMPREP_FORMAT", p.Format)
	p.ThresholdDB = envFloat("HUMPREP_THRESHOLD_DB", p.ThresholdDB)
	p.Window = envDuration("HUMPREP_WINDOW", p.Window)
	p.HeadroomDB = envFloat("HUMPREP_HEADROOM_DB", p.HeadroomDB)
	p.MaxSongDuration = envDuration("HUMPREP_MAX_SONG_DURATION", p.MaxSongDuration)
	p.MaxHumDuration = envDuration("HUMPREP_MAX_HUM_DURATION", p.MaxHumDuration)
	p.NotchMains = envBool("HUMPREP_NOTCH_MAINS", p.NotchMains)
	p.MainsHz = envInt("HUMPREP_MAINS_HZ", p.MainsHz)
	p.TestName = envStr("HUMPREP_TEST_NAME", p.TestName)
	p.ValSize = envInt("HUMPREP_VAL_SIZE", p.ValSize)
	p.Seed = int64(envInt("HUMPREP_SEED", int(p.Seed)))
	p.Ext = envStr("HUMPREP_EXT", p.Ext)
}

// Validate checks settings that would otherwise fail deep inside a batch run
func (c Config) Validate() error {
	p := c.Preprocessing
	switch p.Format {
	case "mp3", "wav":
	default:
		return fmt.Errorf("unsupported output format %q (want mp3 or wav)", p.Format)
	}
	if p.Workers < 0 {
		return fmt.Errorf("workers must not be negative, got %d", p.Workers)
	}
	if p.Window <= 0 {
		return fmt.Errorf("silence window must be positive, got %v", p.Window)
	}
	if p.ThresholdDB >= 0 {
		return fmt.Errorf("silence threshold must be below 0 dBFS, got %.1f", p.ThresholdDB)
	}
	if p.HeadroomDB < 0 {
		return fmt.Errorf("headroom must not be negative, got %.1f", p.HeadroomDB)
	}
	if p.MaxSongDuration < 0 || p.MaxHumDuration < 0 {
		return errors.New("maximum durations must not be negative")
	}
	switch p.MainsHz {
	case 0, 50, 60:
	default:
		return fmt.Errorf("mains frequency must be 50 or 60 Hz, got %d", p.MainsHz)
	}
	if p.ValSize < 0 {
		return fmt.Errorf("val size must not be negative, got %d", p.ValSize)
	}
	return nil
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
