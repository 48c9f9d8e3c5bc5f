package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/urfave/cli/v2"

	"github.com/dupehound/dupehound/internal/index"
	"github.com/dupehound/dupehound/internal/tokenize"
)

func indexCmd() *cli.Command {
	return &cli.Command{
		Name:  "index",
		Usage: "Inspect or reset the persistent duplicate index",
		Subcommands: []*cli.Command{
			{
				Name:   "stats",
				Usage:  "Show indexed file and block counts",
				Action: runIndexStatsCmd,
			},
			{
				Name:   "clear",
				Usage:  "Delete the index (next run re-hashes everything)",
				Action: runIndexClearCmd,
			},
		},
	}
}

func runIndexStatsCmd(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	if _, err := os.Stat(cfg.Index.Path); err != nil {
		color.Yellow("No index at %s", cfg.Index.Path)
		return nil
	}

	fp := index.Fingerprint(cfg.Duplicate.MinLines, tokenize.Version)
	store, err := index.Open(cfg.Index.Path, fp)
	if err != nil {
		return err
	}
	defer store.Close()

	stats, err := store.Stats()
	if err != nil {
		return err
	}
	fmt.Printf("Index: %s\nFiles: %d\nBlocks: %d\n", cfg.Index.Path, stats.Files, stats.Blocks)
	return nil
}

func runIndexClearCmd(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	if err := os.Remove(cfg.Index.Path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			color.Yellow("No index at %s", cfg.Index.Path)
			return nil
		}
		return err
	}
	color.Green("Removed %s", cfg.Index.Path)
	return nil
}
