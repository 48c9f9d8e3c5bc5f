package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/urfave/cli/v2"

	"github.com/dupehound/dupehound/internal/engine"
	"github.com/dupehound/dupehound/internal/output"
	"github.com/dupehound/dupehound/internal/progress"
	"github.com/dupehound/dupehound/internal/rule"
	"github.com/dupehound/dupehound/internal/scanner"
	"github.com/dupehound/dupehound/internal/violation"
)

func checkCmd() *cli.Command {
	return &cli.Command{
		Name:      "check",
		Aliases:   []string{"lint"},
		Usage:     "Detect duplicated code across the project",
		ArgsUsage: "[path...]",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "min-lines",
				Usage: "Minimum duplicate length in normalized lines",
			},
			&cli.IntFlag{
				Name:  "min-occurrences",
				Usage: "Occurrence count required to report a block",
			},
			&cli.BoolFlag{
				Name:  "no-index",
				Usage: "Skip the persistent index (full re-hash, nothing cached)",
			},
		},
		Action: runCheckCmd,
	}
}

// checkReport is the JSON shape of a full run.
type checkReport struct {
	Findings []violation.Finding `json:"findings"`
	Notices  []engine.Notice     `json:"notices,omitempty"`
	Errors   []rule.FileError    `json:"errors,omitempty"`
	Files    int                 `json:"files"`
}

func runCheckCmd(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if c.IsSet("min-lines") {
		cfg.Duplicate.MinLines = c.Int("min-lines")
	}
	if c.IsSet("min-occurrences") {
		cfg.Duplicate.MinOccurrences = c.Int("min-occurrences")
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	var files []string
	scan := scanner.New(cfg)
	for _, path := range getPaths(c) {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return fmt.Errorf("invalid path %s: %w", path, err)
		}
		found, err := scan.ScanPaths([]string{absPath})
		if err != nil {
			return fmt.Errorf("scan %s: %w", path, err)
		}
		files = append(files, found...)
	}

	if len(files) == 0 {
		color.Yellow("No source files found")
		return nil
	}

	files, skipped := scanner.FilterBySize(files, cfg.Duplicate.MaxFileSize)
	if skipped > 0 && c.Bool("verbose") {
		color.Yellow("Skipped %d oversized files", skipped)
	}

	eng, err := engine.New(engine.Config{
		WindowLines:    cfg.Duplicate.MinLines,
		MinOccurrences: cfg.Duplicate.MinOccurrences,
		Filters:        cfg.Duplicate.Filters,
		IndexPath:      cfg.Index.Path,
		InMemory:       c.Bool("no-index") || !cfg.Index.Enabled,
	})
	if err != nil {
		return err
	}
	defer eng.Close()

	tracker := progress.NewTracker("Checking for duplicates...", len(files))
	runner := rule.NewRunner([]rule.Rule{eng}, rule.WithProgress(tracker.Tick))
	result, err := runner.Run(files)
	if err != nil {
		tracker.FinishError(err)
		return err
	}
	tracker.FinishSuccess()

	formatter, err := output.NewFormatter(
		output.ParseFormat(c.String("format")),
		c.String("output"),
		!c.Bool("no-color"),
	)
	if err != nil {
		return err
	}
	defer formatter.Close()

	report := &checkReport{
		Findings: result.Findings,
		Notices:  eng.Notices(),
		Errors:   result.Errors,
		Files:    result.Files,
	}

	if formatter.Format() == output.FormatJSON {
		if err := formatter.Output(report); err != nil {
			return err
		}
		if len(result.Findings) > 0 {
			return cli.Exit("", 1)
		}
		return nil
	}

	for _, n := range report.Notices {
		formatter.Warning("%s: %s", n.File, n.Message)
	}
	for _, fe := range report.Errors {
		formatter.Warning("%s", fe.Error())
	}

	if len(result.Findings) == 0 {
		formatter.Success("No duplicates found in %d files", result.Files)
		return nil
	}

	var rows [][]string
	for _, f := range result.Findings {
		refs := make([]string, len(f.CrossRefs))
		for i, ref := range f.CrossRefs {
			refs[i] = ref.String()
		}
		rows = append(rows, []string{
			fmt.Sprintf("%s:%d-%d", f.File, f.Line, f.EndLine),
			fmt.Sprintf("%d", f.EndLine-f.Line+1),
			joinOrEllipsize(refs, 3),
		})
	}

	table := output.NewTable(
		"Duplicated Blocks",
		[]string{"Location", "Lines", "Also Appears At"},
		rows,
		[]string{
			fmt.Sprintf("Findings: %d", len(result.Findings)),
			fmt.Sprintf("Files: %d", result.Files),
			"",
		},
		report,
	)
	if err := formatter.Output(table); err != nil {
		return err
	}

	return errFindings(len(result.Findings))
}

// joinOrEllipsize joins up to limit entries, noting how many were omitted.
func joinOrEllipsize(parts []string, limit int) string {
	if len(parts) <= limit {
		return strings.Join(parts, ", ")
	}
	return fmt.Sprintf("%s (+%d more)", strings.Join(parts[:limit], ", "), len(parts)-limit)
}
