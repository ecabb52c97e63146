package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/CodeDeck/codedeck_backend/catalog"
	"github.com/CodeDeck/codedeck_backend/log"
	"github.com/CodeDeck/codedeck_backend/setup"
	"github.com/joho/godotenv"
	"github.com/urfave/cli/v3"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Logger.WithError(err).Warn("Could not read .env file")
	}

	cmd := &cli.Command{
		Name:  "codedeck",
		Usage: "coding problem backend judging submissions through Judge0",
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "serve the HTTP API",
				Flags:  setup.Flags(),
				Action: serve,
			},
			{
				Name:  "check",
				Usage: "load the problem file and report what would be served",
				Flags: append(setup.Flags(), &cli.BoolFlag{
					Name:  "strict",
					Usage: "fail when any record is skipped or duplicated",
				}),
				Action: check,
			},
		},
		DefaultCommand: "serve",
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Logger.WithError(err).Fatal("codedeck exited")
	}
}

func serve(_ context.Context, cmd *cli.Command) error {
	cfg, err := setup.Load(cmd)
	if err != nil {
		return err
	}
	log.Init(cfg.Log.Level, cfg.Log.Pretty)

	app, err := setup.SetupApp(cfg)
	if err != nil {
		return err
	}
	defer app.Close()

	return app.Run()
}

func check(_ context.Context, cmd *cli.Command) error {
	cfg, err := setup.Load(cmd)
	if err != nil {
		return err
	}
	log.Init(cfg.Log.Level, cfg.Log.Pretty)

	c := catalog.New()
	stats, err := c.LoadFile(cfg.ProblemsFile)
	if err != nil {
		return err
	}

	var public, hidden, empty int
	for _, summary := range c.List(0, c.Len()) {
		p, _ := c.Get(summary.ID)
		public += len(p.PublicCases)
		hidden += len(p.HiddenCases)
		if len(p.PublicCases)+len(p.HiddenCases) == 0 {
			empty++
		}
	}

	fmt.Printf("%s\n", cfg.ProblemsFile)
	fmt.Printf("  problems:          %d\n", stats.Loaded)
	fmt.Printf("  skipped lines:     %d\n", stats.Skipped)
	fmt.Printf("  duplicate ids:     %d\n", stats.Duplicates)
	fmt.Printf("  public cases:      %d\n", public)
	fmt.Printf("  hidden cases:      %d\n", hidden)
	fmt.Printf("  without any cases: %d\n", empty)

	if cmd.Bool("strict") && (stats.Skipped > 0 || stats.Duplicates > 0) {
		return fmt.Errorf("%d skipped and %d duplicate records", stats.Skipped, stats.Duplicates)
	}
	return nil
}
