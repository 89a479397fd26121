// Package cmd implements the unstream command line.
package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v3"
)

// Execute runs the unstream CLI with the given version string.
func Execute(version string) {
	app := newApp(version, os.Stdin, os.Stdout, os.Stderr)
	if err := app.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newApp(version string, stdin io.Reader, stdout, stderr io.Writer) *cli.Command {
	env := &env{stdin: stdin, stdout: stdout, stderr: stderr}
	return &cli.Command{
		Name:                   "unstream",
		Usage:                  "Rewrite Java stream pipelines into plain loops",
		Version:                version,
		UseShortOptionHandling: true,
		Reader:                 stdin,
		Writer:                 stdout,
		ErrWriter:              stderr,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "Log level (debug, info, warn, error); overrides unstream.toml",
			},
			&cli.BoolFlag{
				Name:    "no-color",
				Aliases: []string{"C"},
				Usage:   "Disable ANSI color in log output",
			},
			&cli.StringFlag{
				Name:  "config",
				Usage: "Use this configuration file instead of searching for unstream.toml",
			},
		},
		Commands: []*cli.Command{
			{
				Name:      "lower",
				Usage:     "Lower the stream pipelines of Java files",
				ArgsUsage: "[file.java | directory]... (stdin when none)",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:    "write",
						Aliases: []string{"w"},
						Usage:   "Write results back to the source files",
					},
					&cli.BoolFlag{
						Name:    "list",
						Aliases: []string{"l"},
						Usage:   "List files whose pipelines would be lowered",
					},
					&cli.IntFlag{
						Name:    "jobs",
						Aliases: []string{"j"},
						Usage:   "Files processed in parallel",
						Value:   1,
					},
					&cli.StringFlag{
						Name:  "indent",
						Usage: "Indentation: a number of spaces or \"tab\"",
					},
					&cli.BoolFlag{
						Name:  "use-var",
						Usage: "Declare variables of unknown type with var",
					},
					&cli.StringFlag{
						Name:  "label",
						Usage: "Base name of generated loop labels",
					},
				},
				Action: env.lowerAction,
			},
			{
				Name:      "explain",
				Usage:     "Show the pipelines of Java files and how they are recognized",
				ArgsUsage: "[file.java | directory]... (stdin when none)",
				Action:    env.explainAction,
			},
			{
				Name:   "ops",
				Usage:  "List the supported stream operations",
				Action: env.opsAction,
			},
		},
	}
}

// env carries the streams of one CLI invocation.
type env struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
}
