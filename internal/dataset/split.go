package dataset

import (
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// Split defaults
const (
	DefaultValSize = 181
	DefaultSeed    = 1234
	DefaultExt     = "mp3"
	TrainDir       = "train"
	ValDir         = "val"
)

// ErrValSizeTooLarge is returned when more validation ids are requested than exist
var ErrValSizeTooLarge = errors.New("validation size exceeds the number of music ids")

// SplitOptions configures Split
type SplitOptions struct {
	Root    string // cleaned dataset root holding train_meta.csv and train/
	ValSize int    // music ids to move into val/
	Seed    int64
	Ext     string // extension of the cleaned files, without the dot
	Logger  *slog.Logger
}

// SplitResult reports what Split did
type SplitResult struct {
	MusicIDs int      // unique ids in the metadata
	ValIDs   []string // sampled ids, in sample order
	Restored int      // files moved back from a previous val/ before sampling
	Moved    int      // pairs moved into val/
	Skipped  int      // pairs skipped because a member was missing
}

type stemPair struct {
	song string
	hum  string
}

// Split moves the cleaned files of a seeded random sample of music ids from
// train/ into val/. Any previous val/ contents are first returned to train/, so
// repeated runs with the same seed produce the same split.
func Split(opts SplitOptions) (SplitResult, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	ext := strings.TrimPrefix(opts.Ext, ".")
	if ext == "" {
		ext = DefaultExt
	}

	var res SplitResult

	rows, err := ReadCSVFile(filepath.Join(opts.Root, MetaFileName))
	if err != nil {
		return res, err
	}

	groups := GroupByID(rows)
	res.MusicIDs = len(groups)
	if opts.ValSize < 0 || opts.ValSize > len(groups) {
		return res, fmt.Errorf("%w: %d requested, %d available", ErrValSizeTooLarge, opts.ValSize, len(groups))
	}

	pairs := make(map[string][]stemPair, len(groups))
	ids := make([]string, len(groups))
	for i, g := range groups {
		ids[i] = g.MusicID
		for _, r := range g.Rows {
			pairs[g.MusicID] = append(pairs[g.MusicID], stemPair{song: stem(r.SongPath), hum: stem(r.HumPath)})
		}
	}

	rng := rand.New(rand.NewSource(opts.Seed))
	for _, i := range rng.Perm(len(ids))[:opts.ValSize] {
		res.ValIDs = append(res.ValIDs, ids[i])
	}

	trainSong := filepath.Join(opts.Root, TrainDir, SongDir)
	trainHum := filepath.Join(opts.Root, TrainDir, HumDir)
	valSong := filepath.Join(opts.Root, ValDir, SongDir)
	valHum := filepath.Join(opts.Root, ValDir, HumDir)

	for _, dir := range []string{trainSong, trainHum, valSong, valHum} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return res, fmt.Errorf("create split directory: %w", err)
		}
	}

	for _, mv := range [][2]string{{valSong, trainSong}, {valHum, trainHum}} {
		n, err := moveFiles(mv[0], mv[1])
		res.Restored += n
		if err != nil {
			return res, fmt.Errorf("restore previous validation set: %w", err)
		}
	}
	if res.Restored > 0 {
		logger.Info("returned previous validation files to train", slog.Int("files", res.Restored))
	}

	// members shared by several pairs of one id are moved once
	moved := make(map[string]bool)
	present := func(src string) bool {
		if moved[src] {
			return true
		}
		_, err := os.Stat(src)
		return err == nil
	}

	for _, id := range res.ValIDs {
		for _, p := range pairs[id] {
			songName := p.song + "." + ext
			humName := p.hum + "." + ext
			songSrc := filepath.Join(trainSong, songName)
			humSrc := filepath.Join(trainHum, humName)

			if !present(songSrc) || !present(humSrc) {
				logger.Warn("pair not found in train set, skipping",
					slog.String("music_id", id),
					slog.String("song", songName),
					slog.String("hum", humName))
				res.Skipped++
				continue
			}

			for _, mv := range [][2]string{{songSrc, filepath.Join(valSong, songName)}, {humSrc, filepath.Join(valHum, humName)}} {
				if moved[mv[0]] {
					continue
				}
				if err := os.Rename(mv[0], mv[1]); err != nil {
					return res, fmt.Errorf("move %s to validation set: %w", filepath.Base(mv[0]), err)
				}
				moved[mv[0]] = true
			}
			res.Moved++
		}
	}

	return res, nil
}

// stem is the base name of a metadata path up to its first dot
func stem(p string) string {
	base := path.Base(filepath.ToSlash(p))
	if i := strings.IndexByte(base, '.'); i >= 0 {
		return base[:i]
	}
	return base
}

// moveFiles renames every regular file in src into dst and returns how many moved
func moveFiles(src, dst string) (int, error) {
	entries, err := os.ReadDir(src)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		if err := os.Rename(filepath.Join(src, e.Name()), filepath.Join(dst, e.Name())); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}
