package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/linuxmatters/humprep/internal/cli"
)

var (
	version = "0.1.0"
)

// versionFlag prints the styled version banner and exits before command validation
type versionFlag bool

func (v versionFlag) BeforeReset(app *kong.Kong, vars kong.Vars) error {
	cli.PrintVersion(vars["version"])
	app.Exit(0)
	return nil
}

// CLI defines the command-line interface
type CLI struct {
	Version versionFlag `short:"v" help:"Show version information"`
	Config  string      `short:"c" type:"path" help:"Path to YAML config file (optional)"`
	FFmpeg  string      `name:"ffmpeg" placeholder:"PATH" help:"ffmpeg binary to run (overrides config)"`
	Report  string      `type:"path" help:"Write a run report to this file"`
	LogFile string      `type:"path" help:"Write logs to this file instead of stderr"`
	NoTUI   bool        `name:"no-tui" help:"Log progress instead of showing the interactive view"`
	Verbose bool        `help:"Log per-item detail"`

	Meta  MetaCmd  `cmd:"" help:"Generate train_meta.csv from song/ and hum/"`
	Clean CleanCmd `cmd:"" help:"Trim, normalise and re-encode the training set or a test set"`
	Split SplitCmd `cmd:"" help:"Move a seeded sample of music ids from train/ to val/"`
}

func main() {
	cliArgs := &CLI{}
	ctx := kong.Parse(cliArgs,
		kong.Name("humprep"),
		kong.Description("Query-by-humming dataset cleaner"),
		kong.UsageOnError(),
		kong.Vars{
			"version": version,
		},
		kong.Help(cli.StyledHelpPrinter(kong.HelpOptions{Compact: true})),
	)

	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tui := strings.HasPrefix(ctx.Command(), "clean")
	app, err := newApp(cliArgs, ctx.Command(), tui)
	if err != nil {
		cli.PrintError(err.Error())
		os.Exit(1)
	}

	ctx.BindTo(runCtx, (*context.Context)(nil))
	err = ctx.Run(app, &cliArgs.Clean)
	app.Close()
	if err != nil {
		cli.PrintError(fmt.Sprint(err))
		os.Exit(1)
	}
}
