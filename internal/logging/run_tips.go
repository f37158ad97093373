package logging

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/linuxmatters/humprep/internal/audio"
)

// RunTip is a single piece of actionable advice derived from a run's counts.
type RunTip struct {
	Priority int    // Higher = more important (1-10)
	Message  string // Human-readable advice (1-2 sentences)
	RuleID   string // Identifier for testing/logging (e.g., "hums_too_short")
}

// MaxRunTips is the maximum number of tips to return.
const MaxRunTips = 5

// shortShare is the fraction of pairs dropped as too short that earns a tip
const shortShare = 0.1

// fallbackShare is the fraction of test files kept untrimmed that earns a tip
const fallbackShare = 0.25

// GenerateRunTips inspects a run report and returns prioritised suggestions.
func GenerateRunTips(data ReportData) []RunTip {
	var tips []RunTip
	firedRules := make(map[string]bool)

	rules := []func(ReportData) *RunTip{
		tipCancelled,
		tipDecodeErrors,
		tipEncodeErrors,
		tipHumsTooShort,
		tipSongsTooShort,
		tipTooLong,
		tipTestFallbacks,
		tipUnparsedNames,
		tipUnmatchedIDs,
	}

	for _, rule := range rules {
		if tip := rule(data); tip != nil {
			tips = append(tips, *tip)
			firedRules[tip.RuleID] = true
		}
	}

	tips = applyExclusions(tips, firedRules)

	sort.SliceStable(tips, func(i, j int) bool {
		return tips[i].Priority > tips[j].Priority
	})

	if len(tips) > MaxRunTips {
		tips = tips[:MaxRunTips]
	}

	return tips
}

// applyExclusions removes tips that are redundant when a more specific tip
// has already fired. Unparsed file names leave ids without partners, so
// "unmatched_ids" is suppressed when "unparsed_names" fires.
func applyExclusions(tips []RunTip, fired map[string]bool) []RunTip {
	var result []RunTip
	for _, tip := range tips {
		switch tip.RuleID {
		case "unmatched_ids":
			if fired["unparsed_names"] {
				continue
			}
		case "test_fallbacks":
			if fired["decode_errors"] {
				continue
			}
		}
		result = append(result, tip)
	}
	return result
}

// wrapText wraps text at word boundaries to fit within maxWidth columns.
// Continuation lines are prefixed with indent.
func wrapText(text string, maxWidth int, indent string) string {
	words := strings.Fields(text)
	var lines []string
	currentLine := ""

	for _, word := range words {
		if currentLine == "" {
			currentLine = word
		} else if len(currentLine)+1+len(word) <= maxWidth {
			currentLine += " " + word
		} else {
			lines = append(lines, currentLine)
			currentLine = word
		}
	}
	if currentLine != "" {
		lines = append(lines, currentLine)
	}

	return strings.Join(lines, "\n"+indent)
}

// dropCount sums training drop labels ending in suffix
func dropCount(data ReportData, suffix string) int {
	if data.Train == nil {
		return 0
	}
	n := 0
	for label, c := range data.Train.DropReasons {
		if strings.HasSuffix(label, suffix) {
			n += c
		}
	}
	return n
}

func trainPairs(data ReportData) int {
	if data.Train == nil {
		return 0
	}
	return data.Train.PairsRetained + data.Train.PairsDropped
}

// testFailures counts test-set failures whose error matches target's type
func testFailures[T error](data ReportData) int {
	if data.Test == nil {
		return 0
	}
	n := 0
	for _, f := range data.Test.Failures {
		var target T
		if errors.As(f.Err, &target) {
			n++
		}
	}
	return n
}

// tipCancelled fires when the run was interrupted before every pair was attempted.
func tipCancelled(data ReportData) *RunTip {
	n := dropCount(data, "cancelled")
	if n == 0 {
		return nil
	}
	return &RunTip{
		Priority: 10,
		Message:  fmt.Sprintf("The run was interrupted and %d pairs were not attempted. Re-run the same command to finish the dataset.", n),
		RuleID:   "cancelled",
	}
}

// tipDecodeErrors fires when any clip could not be read.
func tipDecodeErrors(data ReportData) *RunTip {
	n := dropCount(data, "decode error") + testFailures[*audio.DecodeError](data)
	if n == 0 {
		return nil
	}
	return &RunTip{
		Priority: 9,
		Message:  fmt.Sprintf("%d clips could not be decoded. Check that ffmpeg is on PATH (or set --ffmpeg) and that the files are not truncated.", n),
		RuleID:   "decode_errors",
	}
}

// tipEncodeErrors fires when outputs could not be written.
func tipEncodeErrors(data ReportData) *RunTip {
	n := dropCount(data, "encode error") + testFailures[*audio.EncodeError](data)
	if n == 0 {
		return nil
	}
	return &RunTip{
		Priority: 8,
		Message:  fmt.Sprintf("%d clips could not be encoded. Check free disk space and that your ffmpeg build includes libmp3lame, or use --format wav.", n),
		RuleID:   "encode_errors",
	}
}

// tipHumsTooShort fires when trimming leaves many hums under the minimum length.
func tipHumsTooShort(data ReportData) *RunTip {
	n := dropCount(data, "hum too short")
	total := trainPairs(data)
	if total == 0 || float64(n)/float64(total) < shortShare {
		return nil
	}
	return &RunTip{
		Priority: 7,
		Message:  fmt.Sprintf("%s of pairs were dropped because the hum was too short after trimming. Quiet humming may be treated as silence; try a lower --threshold-db.", formatPercent(n, total)),
		RuleID:   "hums_too_short",
	}
}

// tipSongsTooShort fires when trimming leaves many songs under the minimum length.
func tipSongsTooShort(data ReportData) *RunTip {
	n := dropCount(data, "song too short")
	total := trainPairs(data)
	if total == 0 || float64(n)/float64(total) < shortShare {
		return nil
	}
	return &RunTip{
		Priority: 6,
		Message:  fmt.Sprintf("%s of pairs were dropped because the song was too short after trimming. Check the song recordings or lower --threshold-db.", formatPercent(n, total)),
		RuleID:   "songs_too_short",
	}
}

// tipTooLong fires when an upper duration bound dropped pairs.
func tipTooLong(data ReportData) *RunTip {
	n := dropCount(data, "hum too long")
	if n == 0 {
		return nil
	}
	return &RunTip{
		Priority: 5,
		Message:  fmt.Sprintf("%d pairs exceeded the maximum hum duration. Raise --max-hum-duration or set it to 0 to disable the limit.", n),
		RuleID:   "too_long",
	}
}

// tipTestFallbacks fires when many test clips failed validation and were kept untrimmed.
func tipTestFallbacks(data ReportData) *RunTip {
	if data.Test == nil || data.Test.Files == 0 {
		return nil
	}
	if float64(data.Test.Fallbacks)/float64(data.Test.Files) < fallbackShare {
		return nil
	}
	return &RunTip{
		Priority: 4,
		Message:  fmt.Sprintf("%s of test clips were kept untrimmed because trimming left too little audio. Compare --threshold-db with the level of the test recordings.", formatPercent(data.Test.Fallbacks, data.Test.Files)),
		RuleID:   "test_fallbacks",
	}
}

// tipUnparsedNames fires when file names did not carry a music id.
func tipUnparsedNames(data ReportData) *RunTip {
	if data.Meta == nil || len(data.Meta.Unparsed) == 0 {
		return nil
	}
	return &RunTip{
		Priority: 3,
		Message:  fmt.Sprintf("%d files were ignored because their names do not carry a music id. Songs should be named {group}_{fragment}_{uid}.mp3 and hums hum_{group}_{fragment}_{uid}.wav.", len(data.Meta.Unparsed)),
		RuleID:   "unparsed_names",
	}
}

// tipUnmatchedIDs fires when music ids had songs or hums but no partner.
func tipUnmatchedIDs(data ReportData) *RunTip {
	n := 0
	if data.Meta != nil {
		n += len(data.Meta.SongsWithoutHums) + len(data.Meta.HumsWithoutSongs)
	}
	if data.Train != nil {
		n += len(data.Train.Unmatched)
	}
	if n == 0 {
		return nil
	}
	return &RunTip{
		Priority: 2,
		Message:  fmt.Sprintf("%d music ids have no song/hum pair and were skipped. Regenerate train_meta.csv with \"humprep meta\" after adding files.", n),
		RuleID:   "unmatched_ids",
	}
}
