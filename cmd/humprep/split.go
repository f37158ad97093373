package main

import (
	"errors"

	"github.com/linuxmatters/humprep/internal/dataset"
	"github.com/linuxmatters/humprep/internal/logging"
)

// SplitCmd moves a seeded sample of music ids from train/ into val/
type SplitCmd struct {
	Root    string  `arg:"" optional:"" type:"path" help:"Cleaned dataset root holding train_meta.csv and train/ (default: path.preprocessed_path)"`
	ValSize *int    `name:"val-size" help:"Music ids to move into val/ (default 181)"`
	Seed    *int64  `help:"Sampling seed (default 1234)"`
	Ext     *string `help:"Extension of the cleaned files (default mp3)"`
}

func (c *SplitCmd) Run(app *App) error {
	p := app.Config.Preprocessing
	if c.ValSize != nil {
		p.ValSize = *c.ValSize
	}
	if c.Seed != nil {
		p.Seed = *c.Seed
	}
	if c.Ext != nil {
		p.Ext = *c.Ext
	}

	root := pick(c.Root, app.Config.Path.PreprocessedPath)
	if root == "" {
		return errors.New("no dataset root given and path.preprocessed_path is not set")
	}

	res, err := dataset.Split(dataset.SplitOptions{
		Root:    root,
		ValSize: p.ValSize,
		Seed:    p.Seed,
		Ext:     p.Ext,
		Logger:  app.Logger,
	})
	if err != nil {
		return err
	}

	return app.finish(logging.ReportData{OutRoot: root, Split: &res})
}
