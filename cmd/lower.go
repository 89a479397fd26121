package cmd

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"

	"github.com/rubiojr/unstream/compiler"
	"github.com/rubiojr/unstream/config"
	"github.com/rubiojr/unstream/pipeline"
)

const stdinName = "<stdin>"

func (e *env) lowerAction(ctx context.Context, cmd *cli.Command) error {
	log, err := e.logger(cmd)
	if err != nil {
		return err
	}
	files, err := javaFiles(cmd.Args().Slice())
	if err != nil {
		return err
	}
	if len(files) == 0 {
		if cmd.Bool("write") {
			return fmt.Errorf("cannot use -w with standard input")
		}
		src, err := io.ReadAll(e.stdin)
		if err != nil {
			return fmt.Errorf("reading standard input: %w", err)
		}
		c, err := e.compiler(cmd, ".", log)
		if err != nil {
			return err
		}
		res, err := c.CompileSource(stdinName, string(src))
		if err != nil {
			return err
		}
		if cmd.Bool("list") {
			if res.Changed() {
				fmt.Fprintln(e.stdout, stdinName)
			}
			return nil
		}
		if _, err := io.WriteString(e.stdout, res.Text); err != nil {
			return fmt.Errorf("writing output: %w", err)
		}
		return nil
	}

	jobs := int(cmd.Int("jobs"))
	if jobs < 1 {
		jobs = 1
	}
	results := make([]*compiler.Result, len(files))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(jobs)
	for i, path := range files {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			c, err := e.compiler(cmd, filepath.Dir(path), log)
			if err != nil {
				return err
			}
			res, err := c.CompileFile(path)
			if err != nil {
				return err
			}
			results[i] = res
			if cmd.Bool("write") && res.Changed() {
				return writeFile(path, res.Text)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	lowered, skipped := 0, 0
	for i, res := range results {
		lowered += len(res.Replacements)
		skipped += len(res.Skipped)
		switch {
		case cmd.Bool("list"):
			if res.Changed() {
				fmt.Fprintln(e.stdout, files[i])
			}
		case !cmd.Bool("write"):
			if len(files) > 1 {
				fmt.Fprintf(e.stdout, "// %s\n", files[i])
			}
			if _, err := io.WriteString(e.stdout, res.Text); err != nil {
				return fmt.Errorf("writing output: %w", err)
			}
		}
	}
	log.Info().Int("files", len(files)).Int("lowered", lowered).Int("skipped", skipped).Msg("done")
	return nil
}

func (e *env) explainAction(ctx context.Context, cmd *cli.Command) error {
	log, err := e.logger(cmd)
	if err != nil {
		return err
	}
	files, err := javaFiles(cmd.Args().Slice())
	if err != nil {
		return err
	}
	explain := func(name, dir, src string) error {
		c, err := e.compiler(cmd, dir, log)
		if err != nil {
			return err
		}
		xs, err := c.Explain(name, src)
		if err != nil {
			return err
		}
		for _, x := range xs {
			fmt.Fprintf(e.stdout, "%s:%d: %s\n", name, x.Line, x.Pipeline)
			if x.Err != nil {
				fmt.Fprintf(e.stdout, "    not lowered (%s): %v\n", pipeline.CodeOf(x.Err), x.Err)
				continue
			}
			fmt.Fprintf(e.stdout, "    %s\n", x.Model)
		}
		return nil
	}
	if len(files) == 0 {
		src, err := io.ReadAll(e.stdin)
		if err != nil {
			return fmt.Errorf("reading standard input: %w", err)
		}
		return explain(stdinName, ".", string(src))
	}
	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return err
		}
		src, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading %s: %w", path, err)
		}
		if err := explain(path, filepath.Dir(path), string(src)); err != nil {
			return err
		}
	}
	return nil
}

// logger builds the console logger of one invocation. The level comes from
// --log-level, else from the configuration of the working directory.
func (e *env) logger(cmd *cli.Command) (zerolog.Logger, error) {
	level := cmd.String("log-level")
	if level == "" {
		cfg, err := e.config(cmd, ".")
		if err != nil {
			return zerolog.Nop(), err
		}
		level = cfg.Log.Level
	}
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil {
		return zerolog.Nop(), fmt.Errorf("log level %q: %w", level, err)
	}
	return newLogger(e.stderr, lvl, colorDisabled(e.stderr, cmd.Bool("no-color"))), nil
}

func (e *env) config(cmd *cli.Command, dir string) (*config.Config, error) {
	if path := cmd.String("config"); path != "" {
		return config.Load(path)
	}
	return config.FindAndLoad(dir)
}

// compiler returns a compiler configured for the files of dir, with
// command line flags taking precedence over unstream.toml.
func (e *env) compiler(cmd *cli.Command, dir string, log zerolog.Logger) (*compiler.Compiler, error) {
	cfg, err := e.config(cmd, dir)
	if err != nil {
		return nil, err
	}
	if cmd.IsSet("indent") {
		cfg.Output.Indent = config.Indent(cmd.String("indent"))
	}
	if cmd.IsSet("use-var") {
		cfg.Output.UseVar = cmd.Bool("use-var")
	}
	if cmd.IsSet("label") {
		cfg.Names.Label = cmd.String("label")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return compiler.New(log, cfg.Compiler()), nil
}

// javaFiles expands directories among args into the .java files below
// them. Hidden directories are not entered.
func javaFiles(args []string) ([]string, error) {
	var files []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, fmt.Errorf("cannot access %s: %w", arg, err)
		}
		if !info.IsDir() {
			files = append(files, arg)
			continue
		}
		err = filepath.WalkDir(arg, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				if path != arg && strings.HasPrefix(d.Name(), ".") {
					return filepath.SkipDir
				}
				return nil
			}
			if strings.HasSuffix(d.Name(), ".java") {
				files = append(files, path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("reading directory %s: %w", arg, err)
		}
	}
	return files, nil
}

// writeFile replaces the contents of path, keeping its permissions.
func writeFile(path, text string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, []byte(text), info.Mode().Perm()); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}
