package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/urfave/cli/v2"

	"github.com/dupehound/dupehound/internal/config"
)

var (
	version = "dev"
	commit  = "none"    //nolint:unused // set via ldflags at build time
	date    = "unknown" //nolint:unused // set via ldflags at build time
)

// getPaths returns paths from positional args, defaulting to ["."]
func getPaths(c *cli.Context) []string {
	if c.Args().Len() > 0 {
		return c.Args().Slice()
	}
	return []string{"."}
}

// loadConfig resolves configuration from --config or standard locations.
func loadConfig(c *cli.Context) (*config.Config, error) {
	if path := c.String("config"); path != "" {
		return config.Load(path)
	}
	return config.LoadOrDefault(), nil
}

func main() {
	app := &cli.App{
		Name:    "dupehound",
		Usage:   "Cross-file duplicate code linter",
		Version: version,
		Description: `Dupehound finds duplicated code fragments across a whole project and
reports every occurrence with cross-references to the others. A persistent
index keyed on file modification times keeps repeat runs incremental.

Supports: Go, Rust, Python, TypeScript, JavaScript, Java, C, C++, Kotlin, Ruby, shell`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to config file (TOML, YAML, or JSON)",
				EnvVars: []string{"DUPEHOUND_CONFIG"},
			},
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Value:   "text",
				Usage:   "Output format: text, json, markdown",
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Write output to file",
			},
			&cli.BoolFlag{
				Name:  "no-color",
				Usage: "Disable colored output",
			},
			&cli.BoolFlag{
				Name:  "verbose",
				Usage: "Enable verbose output",
			},
		},
		Commands: []*cli.Command{
			checkCmd(),
			indexCmd(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		if msg := err.Error(); msg != "" {
			color.Red("Error: %v", err)
		}
		os.Exit(exitCode(err))
	}
}

func exitCode(err error) int {
	if coder, ok := err.(cli.ExitCoder); ok {
		return coder.ExitCode()
	}
	return 1
}

// errFindings signals findings were reported; the message is already printed.
func errFindings(count int) error {
	return cli.Exit(fmt.Sprintf("%d problems found", count), 1)
}
