// Package dataset builds the song/hum metadata table and splits a cleaned
// dataset into train and validation sets by music id.
package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Directory and file names of the dataset layout
const (
	SongDir      = "song"
	HumDir       = "hum"
	MetaFileName = "train_meta.csv"
	humPrefix    = "hum_"
)

// csvHeader is the column order of the metadata file
var csvHeader = []string{"music_id", "song_path", "hum_path"}

// Row pairs one song with one hum. Paths are relative to the dataset root.
type Row struct {
	MusicID  string
	SongPath string
	HumPath  string
}

// ParseSongName extracts the music id from "{group}_{fragment}_{uid}.mp3".
// The uid part is optional.
func ParseSongName(name string) (string, bool) {
	return musicID(stripExt(name))
}

// ParseHumName extracts the music id from "hum_{group}_{fragment}_{uid}.wav"
func ParseHumName(name string) (string, bool) {
	return musicID(strings.TrimPrefix(stripExt(name), humPrefix))
}

func stripExt(name string) string {
	return strings.TrimSuffix(name, filepath.Ext(name))
}

func musicID(base string) (string, bool) {
	parts := strings.Split(base, "_")
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return "", false
	}
	return parts[0] + "_" + parts[1], true
}

// Report is the result of scanning a dataset root
type Report struct {
	Rows             []Row
	MusicIDs         int      // ids with at least one song
	Songs            int      // parsed song files
	Hums             int      // parsed hum files
	SongsWithoutHums []string // ids skipped because no hum matched
	HumsWithoutSongs []string // ids whose hums have no song
	Unparsed         []string // files whose names do not carry a music id
}

// Generate scans root/song/*.mp3 and root/hum/*.wav and pairs every song with
// every hum of the same music id. Rows are ordered by music id, then song, then hum.
// Unmatched ids are logged and listed in the report.
func Generate(root string, logger *slog.Logger) (Report, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var rep Report
	songs, err := scan(filepath.Join(root, SongDir), ".mp3", ParseSongName, &rep.Unparsed)
	if err != nil {
		return rep, err
	}
	hums, err := scan(filepath.Join(root, HumDir), ".wav", ParseHumName, &rep.Unparsed)
	if err != nil {
		return rep, err
	}

	for _, names := range songs {
		rep.Songs += len(names)
	}
	for _, names := range hums {
		rep.Hums += len(names)
	}
	rep.MusicIDs = len(songs)

	for _, id := range sortedKeys(songs) {
		matched := hums[id]
		if len(matched) == 0 {
			logger.Warn("no hums found for music id", slog.String("music_id", id))
			rep.SongsWithoutHums = append(rep.SongsWithoutHums, id)
			continue
		}
		for _, song := range songs[id] {
			for _, hum := range matched {
				rep.Rows = append(rep.Rows, Row{
					MusicID:  id,
					SongPath: SongDir + "/" + song,
					HumPath:  HumDir + "/" + hum,
				})
			}
		}
	}

	for _, id := range sortedKeys(hums) {
		if _, ok := songs[id]; !ok {
			logger.Warn("no songs found for music id", slog.String("music_id", id))
			rep.HumsWithoutSongs = append(rep.HumsWithoutSongs, id)
		}
	}

	for _, name := range rep.Unparsed {
		logger.Warn("file name carries no music id", slog.String("file", name))
	}

	return rep, nil
}

// scan groups the files in dir with the given extension by parsed music id
func scan(dir, ext string, parse func(string) (string, bool), unparsed *[]string) (map[string][]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", dir, err)
	}

	byID := make(map[string][]string)
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ext) {
			continue
		}
		id, ok := parse(e.Name())
		if !ok {
			*unparsed = append(*unparsed, filepath.Join(filepath.Base(dir), e.Name()))
			continue
		}
		byID[id] = append(byID[id], e.Name())
	}
	for id := range byID {
		sort.Strings(byID[id])
	}
	return byID, nil
}

func sortedKeys(m map[string][]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// WriteCSV writes rows with a header line
func WriteCSV(w io.Writer, rows []Row) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, r := range rows {
		if err := cw.Write([]string{r.MusicID, r.SongPath, r.HumPath}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteCSVFile writes rows to a temporary file beside path and renames it into
// place, so an interrupted run never leaves a truncated table behind.
func WriteCSVFile(path string, rows []Row) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create metadata file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := WriteCSV(tmp, rows); err != nil {
		tmp.Close()
		return fmt.Errorf("write metadata file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write metadata file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replace metadata file: %w", err)
	}
	return nil
}

// ReadCSV parses a metadata table. Columns are located by header name, so
// extra columns and any column order are accepted.
func ReadCSV(r io.Reader) ([]Row, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, errors.New("metadata is empty")
	}
	if err != nil {
		return nil, fmt.Errorf("read metadata header: %w", err)
	}

	idx := make(map[string]int, len(header))
	for i, name := range header {
		idx[strings.TrimSpace(name)] = i
	}
	cols := make([]int, len(csvHeader))
	for i, name := range csvHeader {
		c, ok := idx[name]
		if !ok {
			return nil, fmt.Errorf("metadata is missing column %q", name)
		}
		cols[i] = c
	}

	var rows []Row
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read metadata: %w", err)
		}
		for _, c := range cols {
			if c >= len(rec) {
				return nil, fmt.Errorf("metadata line %d: expected at least %d fields, got %d", line, c+1, len(rec))
			}
		}
		rows = append(rows, Row{
			MusicID:  rec[cols[0]],
			SongPath: rec[cols[1]],
			HumPath:  rec[cols[2]],
		})
	}
	return rows, nil
}

// ReadCSVFile reads the metadata table at path
func ReadCSVFile(path string) ([]Row, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open metadata file: %w", err)
	}
	defer f.Close()
	return ReadCSV(f)
}

// IDGroup is every row of one music id
type IDGroup struct {
	MusicID string
	Rows    []Row
}

// GroupByID collects rows per music id, in the order ids first appear
func GroupByID(rows []Row) []IDGroup {
	pos := make(map[string]int)
	var groups []IDGroup
	for _, r := range rows {
		i, ok := pos[r.MusicID]
		if !ok {
			i = len(groups)
			pos[r.MusicID] = i
			groups = append(groups, IDGroup{MusicID: r.MusicID})
		}
		groups[i].Rows = append(groups[i].Rows, r)
	}
	return groups
}
