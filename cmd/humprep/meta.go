package main

import (
	"errors"
	"log/slog"
	"path/filepath"

	"github.com/linuxmatters/humprep/internal/cli"
	"github.com/linuxmatters/humprep/internal/dataset"
	"github.com/linuxmatters/humprep/internal/logging"
)

// MetaCmd scans a raw dataset and writes its song/hum pairing table
type MetaCmd struct {
	Root string `arg:"" optional:"" type:"path" help:"Raw dataset root holding song/ and hum/ (default: path.raw_path)"`
	Out  string `short:"o" type:"path" help:"CSV to write (default: <root>/train_meta.csv)"`
}

func (c *MetaCmd) Run(app *App) error {
	root := pick(c.Root, app.Config.Path.RawPath)
	if root == "" {
		return errors.New("no dataset root given and path.raw_path is not set")
	}

	rep, err := dataset.Generate(root, app.Logger)
	if err != nil {
		return err
	}

	out := pick(c.Out, filepath.Join(root, dataset.MetaFileName))
	if err := dataset.WriteCSVFile(out, rep.Rows); err != nil {
		return err
	}
	app.Logger.Info("metadata written", slog.String("path", out), slog.Int("rows", len(rep.Rows)))
	cli.PrintKeyValue(app.Out, "Written", out)

	return app.finish(logging.ReportData{DataRoot: root, Meta: &rep})
}

// pick returns the first non-empty value
func pick(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
