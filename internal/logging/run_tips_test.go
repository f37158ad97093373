package logging

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/linuxmatters/humprep/internal/audio"
	"github.com/linuxmatters/humprep/internal/dataset"
	"github.com/linuxmatters/humprep/internal/processor"
)

func TestWrapText(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		maxWidth int
		indent   string
		want     string
	}{
		{"short_text_no_wrap", "Hello world", 20, "  ", "Hello world"},
		{"long_text_wraps", "Try a lower threshold for quiet humming", 24, "  ", "Try a lower threshold\n  for quiet humming"},
		{"single_long_word", "supercalifragilisticexpialidocious", 10, "  ", "supercalifragilisticexpialidocious"},
		{"empty_input", "", 20, "  ", ""},
		{"exact_fit", "exactly twenty chars", 20, "  ", "exactly twenty chars"},
		{"multiple_wraps", "one two three four five six seven eight nine ten", 15, "    ", "one two three\n    four five six\n    seven eight\n    nine ten"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := wrapText(tt.text, tt.maxWidth, tt.indent)
			if got != tt.want {
				t.Errorf("wrapText() = %q, want %q", got, tt.want)
			}
		})
	}
}

func hasRuleID(tips []RunTip, ruleID string) bool {
	for _, tip := range tips {
		if tip.RuleID == ruleID {
			return true
		}
	}
	return false
}

func ruleIDs(tips []RunTip) []string {
	ids := make([]string, len(tips))
	for i, tip := range tips {
		ids[i] = tip.RuleID
	}
	return ids
}

func trainWith(retained int, reasons map[string]int) *processor.TrainSummary {
	dropped := 0
	for _, n := range reasons {
		dropped += n
	}
	return &processor.TrainSummary{PairsRetained: retained, PairsDropped: dropped, DropReasons: reasons}
}

func TestTipHumsTooShort(t *testing.T) {
	tests := []struct {
		name    string
		short   int
		wantTip bool
	}{
		{"none", 0, false},
		{"below share", 9, false},
		{"at share", 10, true},
		{"well above", 40, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := ReportData{Train: trainWith(100-tt.short, map[string]int{"hum too short": tt.short})}
			tip := tipHumsTooShort(data)
			if (tip != nil) != tt.wantTip {
				t.Fatalf("tipHumsTooShort() fired = %v, want %v", tip != nil, tt.wantTip)
			}
			if tip != nil && !strings.Contains(tip.Message, "--threshold-db") {
				t.Errorf("message should point at the threshold flag: %q", tip.Message)
			}
		})
	}
}

func TestTipSongsTooShortIgnoresHums(t *testing.T) {
	data := ReportData{Train: trainWith(50, map[string]int{"hum too short": 50})}
	if tip := tipSongsTooShort(data); tip != nil {
		t.Errorf("hum drops should not fire the song rule: %+v", tip)
	}
}

func TestTipDecodeErrors(t *testing.T) {
	t.Run("train drops", func(t *testing.T) {
		data := ReportData{Train: trainWith(5, map[string]int{"song decode error": 1, "hum decode error": 2})}
		tip := tipDecodeErrors(data)
		if tip == nil || !strings.HasPrefix(tip.Message, "3 clips") {
			t.Errorf("tipDecodeErrors() = %+v, want 3 clips", tip)
		}
	})

	t.Run("test failures", func(t *testing.T) {
		data := ReportData{Test: &processor.TestSummary{Files: 3, Failures: []processor.TaskFailure{
			{Item: "a.wav", Err: &audio.DecodeError{Path: "a.wav", Err: errors.New("bad header")}},
			{Item: "b.wav", Err: &audio.EncodeError{Path: "b.mp3", Err: errors.New("disk full")}},
		}}}
		tip := tipDecodeErrors(data)
		if tip == nil || !strings.HasPrefix(tip.Message, "1 clips") {
			t.Errorf("tipDecodeErrors() = %+v, want 1 clip", tip)
		}
		if enc := tipEncodeErrors(data); enc == nil {
			t.Error("encode failure should fire tipEncodeErrors")
		}
	})

	t.Run("clean run", func(t *testing.T) {
		if tip := tipDecodeErrors(ReportData{Train: trainWith(10, map[string]int{})}); tip != nil {
			t.Errorf("unexpected tip %+v", tip)
		}
	})
}

func TestTipCancelled(t *testing.T) {
	data := ReportData{Train: trainWith(1, map[string]int{"cancelled": 4})}
	tip := tipCancelled(data)
	if tip == nil || tip.Priority != 10 {
		t.Fatalf("tipCancelled() = %+v", tip)
	}
	if !strings.Contains(tip.Message, "4 pairs") {
		t.Errorf("message = %q", tip.Message)
	}
}

func TestTipTestFallbacks(t *testing.T) {
	tests := []struct {
		fallbacks int
		wantTip   bool
	}{
		{0, false},
		{24, false},
		{25, true},
	}
	for _, tt := range tests {
		data := ReportData{Test: &processor.TestSummary{Files: 100, Cleaned: 100, Fallbacks: tt.fallbacks}}
		if got := tipTestFallbacks(data) != nil; got != tt.wantTip {
			t.Errorf("fallbacks=%d fired = %v, want %v", tt.fallbacks, got, tt.wantTip)
		}
	}
}

func TestGenerateRunTips(t *testing.T) {
	t.Run("empty report", func(t *testing.T) {
		if tips := GenerateRunTips(ReportData{}); len(tips) != 0 {
			t.Errorf("expected no tips, got %v", ruleIDs(tips))
		}
	})

	t.Run("sorted by priority", func(t *testing.T) {
		data := ReportData{
			Train: trainWith(50, map[string]int{"hum too short": 40, "cancelled": 1, "song decode error": 1}),
		}
		tips := GenerateRunTips(data)
		got := ruleIDs(tips)
		want := []string{"cancelled", "decode_errors", "hums_too_short"}
		if strings.Join(got, ",") != strings.Join(want, ",") {
			t.Errorf("rule order = %v, want %v", got, want)
		}
	})

	t.Run("unparsed names suppress unmatched ids", func(t *testing.T) {
		data := ReportData{Meta: &dataset.Report{
			Unparsed:         []string{"song/readme.mp3"},
			SongsWithoutHums: []string{"3_4"},
		}}
		tips := GenerateRunTips(data)
		if !hasRuleID(tips, "unparsed_names") {
			t.Error("expected unparsed_names")
		}
		if hasRuleID(tips, "unmatched_ids") {
			t.Error("unmatched_ids should be suppressed by unparsed_names")
		}
	})

	t.Run("unmatched ids alone", func(t *testing.T) {
		tips := GenerateRunTips(ReportData{Train: &processor.TrainSummary{Unmatched: []string{"1_1"}, DropReasons: map[string]int{}}})
		if !hasRuleID(tips, "unmatched_ids") {
			t.Errorf("expected unmatched_ids, got %v", ruleIDs(tips))
		}
	})

	t.Run("capped", func(t *testing.T) {
		data := ReportData{
			Train: trainWith(10, map[string]int{
				"cancelled": 1, "song decode error": 1, "hum encode error": 1,
				"hum too short": 10, "song too short": 10, "hum too long": 3,
			}),
			Meta: &dataset.Report{Unparsed: []string{"x"}},
		}
		tips := GenerateRunTips(data)
		if len(tips) != MaxRunTips {
			t.Errorf("got %d tips, want %d", len(tips), MaxRunTips)
		}
		if tips[0].RuleID != "cancelled" {
			t.Errorf("highest priority tip = %q", tips[0].RuleID)
		}
	})
}

func TestLabelsMatchTipRules(t *testing.T) {
	// Drop labels come from PairDrop.Label; the rules key on their suffixes.
	cancelled := processor.PairDrop{Member: processor.ClipSong, Err: context.Canceled}.Label()
	decode := processor.PairDrop{Member: processor.ClipHum, Err: &audio.DecodeError{Err: errors.New("x")}}.Label()
	short := processor.PairDrop{Member: processor.ClipHum, Reason: processor.ReasonTooShort}.Label()

	data := ReportData{Train: trainWith(0, map[string]int{cancelled: 1, decode: 1, short: 1})}
	for _, id := range []string{"cancelled", "decode_errors", "hums_too_short"} {
		if !hasRuleID(GenerateRunTips(data), id) {
			t.Errorf("label set %v did not fire %s", data.Train.DropReasons, id)
		}
	}
}
