package cli

import (
	"bytes"
	"strings"
	"testing"

	"github.com/alecthomas/kong"
)

type helpTestCLI struct {
	Verbose bool `help:"Log per-item detail"`

	Clean struct {
		Workers int `short:"j" default:"4" help:"Parallel workers"`

		Train struct {
			Root string `arg:"" optional:"" help:"Raw dataset root"`
		} `cmd:"" help:"Clean the training set"`
	} `cmd:"" help:"Trim and re-encode clips"`
}

func renderHelp(t *testing.T, args ...string) string {
	t.Helper()
	var buf bytes.Buffer
	var cli helpTestCLI
	parser, err := kong.New(&cli,
		kong.Name("humprep"),
		kong.Writers(&buf, &buf),
		kong.Exit(func(int) {}),
		kong.Help(StyledHelpPrinter(kong.HelpOptions{})),
	)
	if err != nil {
		t.Fatal(err)
	}
	// Parse may fail once help has printed; only the output matters here
	_, _ = parser.Parse(append(args, "--help"))
	return buf.String()
}

func TestStyledHelpRoot(t *testing.T) {
	out := renderHelp(t)
	for _, want := range []string{"Humprep", appDescription, "Usage:", "humprep <command> [flags]", "Commands:", "clean", "--verbose"} {
		if !strings.Contains(out, want) {
			t.Errorf("root help missing %q:\n%s", want, out)
		}
	}
}

func TestStyledHelpSubcommand(t *testing.T) {
	out := renderHelp(t, "clean", "train")
	for _, want := range []string{"Clean the training set", "humprep clean train [flags]", "Arguments:", "Raw dataset root", "-j, --workers", "(default: 4)", "--verbose"} {
		if !strings.Contains(out, want) {
			t.Errorf("subcommand help missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "Commands:") {
		t.Errorf("leaf command should not list subcommands:\n%s", out)
	}
}

func TestFlagEntriesSkipsHidden(t *testing.T) {
	flags := []*kong.Flag{
		{Value: &kong.Value{Name: "help"}},
		{Value: &kong.Value{Name: "secret"}, Hidden: true},
		{Value: &kong.Value{Name: "report", Help: "Write a run report"}},
	}
	entries := flagEntries(flags)
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2: %+v", len(entries), entries)
	}
	if entries[0].name != "-h, --help" || entries[1].name != "--report" {
		t.Errorf("entries = %+v", entries)
	}
}
