package dataset

import (
	"bytes"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func touch(t *testing.T, root string, rels ...string) {
	t.Helper()
	for _, rel := range rels {
		p := filepath.Join(root, rel)
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte(rel), 0o644); err != nil {
			t.Fatal(err)
		}
	}
}

func TestParseNames(t *testing.T) {
	tests := []struct {
		name   string
		hum    bool
		want   string
		wantOK bool
	}{
		{"0bc7f9ae9b644f29_2_0d7893612d6572a1.mp3", false, "0bc7f9ae9b644f29_2", true},
		{"12_0.mp3", false, "12_0", true},
		{"hum_0bc7f9ae9b644f29_2_1ded76c36df1388a.wav", true, "0bc7f9ae9b644f29_2", true},
		{"hum_7_13_abc.wav", true, "7_13", true},
		{"nounderscore.mp3", false, "", false},
		{"hum_nounderscore.wav", true, "", false},
		{"_5_x.mp3", false, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parse := ParseSongName
			if tt.hum {
				parse = ParseHumName
			}
			got, ok := parse(tt.name)
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("parse(%q) = %q, %v; want %q, %v", tt.name, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestGenerate(t *testing.T) {
	root := t.TempDir()
	touch(t, root,
		"song/1_0_b.mp3",
		"song/1_0_a.mp3",
		"song/2_5_a.mp3",
		"song/3_1_a.mp3",
		"song/readme.txt",
		"song/bad.mp3",
		"hum/hum_1_0_x.wav",
		"hum/hum_1_0_y.wav",
		"hum/hum_2_5_x.wav",
		"hum/hum_9_9_x.wav",
	)

	rep, err := Generate(root, discardLogger())
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	want := []Row{
		{"1_0", "song/1_0_a.mp3", "hum/hum_1_0_x.wav"},
		{"1_0", "song/1_0_a.mp3", "hum/hum_1_0_y.wav"},
		{"1_0", "song/1_0_b.mp3", "hum/hum_1_0_x.wav"},
		{"1_0", "song/1_0_b.mp3", "hum/hum_1_0_y.wav"},
		{"2_5", "song/2_5_a.mp3", "hum/hum_2_5_x.wav"},
	}
	if !reflect.DeepEqual(rep.Rows, want) {
		t.Errorf("Rows =\n%v\nwant\n%v", rep.Rows, want)
	}
	if rep.MusicIDs != 3 || rep.Songs != 4 || rep.Hums != 4 {
		t.Errorf("stats = %d ids, %d songs, %d hums; want 3, 4, 4", rep.MusicIDs, rep.Songs, rep.Hums)
	}
	if !reflect.DeepEqual(rep.SongsWithoutHums, []string{"3_1"}) {
		t.Errorf("SongsWithoutHums = %v", rep.SongsWithoutHums)
	}
	if !reflect.DeepEqual(rep.HumsWithoutSongs, []string{"9_9"}) {
		t.Errorf("HumsWithoutSongs = %v", rep.HumsWithoutSongs)
	}
	if !reflect.DeepEqual(rep.Unparsed, []string{"song/bad.mp3"}) {
		t.Errorf("Unparsed = %v", rep.Unparsed)
	}
}

func TestGenerateMissingDir(t *testing.T) {
	if _, err := Generate(t.TempDir(), discardLogger()); err == nil {
		t.Error("expected an error when song/ is missing")
	}
}

func TestCSVRoundTrip(t *testing.T) {
	rows := []Row{
		{"1_0", "song/1_0_a.mp3", "hum/hum_1_0_x.wav"},
		{"2_5", "song/2_5,odd.mp3", "hum/hum_2_5_x.wav"},
	}

	var buf bytes.Buffer
	if err := WriteCSV(&buf, rows); err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(buf.String(), "music_id,song_path,hum_path\n") {
		t.Errorf("missing header: %q", buf.String())
	}

	got, err := ReadCSV(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got, rows) {
		t.Errorf("ReadCSV = %v, want %v", got, rows)
	}
}

func TestReadCSV(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    []Row
		wantErr bool
	}{
		{
			name:  "reordered columns with extras",
			input: "hum_path,extra,music_id,song_path\nhum/h.wav,1,7_1,song/s.mp3\n",
			want:  []Row{{"7_1", "song/s.mp3", "hum/h.wav"}},
		},
		{
			name:  "header only",
			input: "music_id,song_path,hum_path\n",
		},
		{name: "empty", input: "", wantErr: true},
		{name: "missing column", input: "music_id,song_path\n1_0,song/a.mp3\n", wantErr: true},
		{name: "short row", input: "music_id,song_path,hum_path\n1_0,song/a.mp3\n", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ReadCSV(strings.NewReader(tt.input))
			if (err != nil) != tt.wantErr {
				t.Fatalf("ReadCSV() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ReadCSV() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGroupByID(t *testing.T) {
	rows := []Row{
		{"b", "s1", "h1"},
		{"a", "s2", "h2"},
		{"b", "s3", "h3"},
	}
	groups := GroupByID(rows)
	if len(groups) != 2 || groups[0].MusicID != "b" || groups[1].MusicID != "a" {
		t.Fatalf("groups = %+v, want b then a", groups)
	}
	if len(groups[0].Rows) != 2 || groups[0].Rows[1].SongPath != "s3" {
		t.Errorf("group b rows = %+v", groups[0].Rows)
	}
}

func TestWriteCSVFileReplacesWhole(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, MetaFileName)
	if err := os.WriteFile(path, []byte("stale contents that are longer than the new table\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	rows := []Row{{MusicID: "1_1", SongPath: "song/1_1_a.mp3", HumPath: "hum/hum_1_1_x.mp3"}}
	if err := WriteCSVFile(path, rows); err != nil {
		t.Fatalf("WriteCSVFile() error = %v", err)
	}

	got, err := ReadCSVFile(path)
	if err != nil || !reflect.DeepEqual(got, rows) {
		t.Errorf("ReadCSVFile() = %v, %v; want %v", got, err, rows)
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Errorf("temporary files left behind: %v", entries)
	}
}

func TestWriteCSVFileFailureLeavesNoTemp(t *testing.T) {
	dir := t.TempDir()
	// a non-empty directory at the target makes the final rename fail
	path := filepath.Join(dir, MetaFileName)
	if err := os.MkdirAll(filepath.Join(path, "keep"), 0o755); err != nil {
		t.Fatal(err)
	}

	if err := WriteCSVFile(path, []Row{{MusicID: "1_1", SongPath: "s", HumPath: "h"}}); err == nil {
		t.Fatal("expected an error when the target cannot be replaced")
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 || entries[0].Name() != MetaFileName {
		t.Errorf("directory should hold only the original target, got %v", entries)
	}
}
