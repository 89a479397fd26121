// Package config handles unstream.toml project configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/rs/zerolog"

	"github.com/rubiojr/unstream/compiler"
)

// FileName is the name of the configuration file.
const FileName = "unstream.toml"

// DefaultJavaRelease is assumed when the configuration names none.
const DefaultJavaRelease = 17

// varRelease is the first release that accepts var declarations.
const varRelease = 10

// Config represents an unstream.toml file.
type Config struct {
	Output Output `toml:"output"`
	Names  Names  `toml:"names"`
	Log    Log    `toml:"log"`

	// Path is the file the configuration was read from, empty for defaults.
	Path string `toml:"-"`
}

// Output configures the generated code.
type Output struct {
	Indent      Indent `toml:"indent"`
	JavaRelease int    `toml:"java_release"`
	UseVar      bool   `toml:"use_var"`
}

// Indent is one indentation level, written in the file as a number of
// spaces, as "tab" or as the literal text.
type Indent string

// UnmarshalTOML accepts both integers and strings.
func (i *Indent) UnmarshalTOML(v any) error {
	switch x := v.(type) {
	case int64:
		*i = Indent(fmt.Sprint(x))
	case string:
		*i = Indent(x)
	default:
		return fmt.Errorf("indent must be a number or a string, not %T", v)
	}
	return nil
}

// Names configures generated identifiers.
type Names struct {
	Label string `toml:"label"`
}

// Log configures the CLI logger.
type Log struct {
	Level string `toml:"level"`
}

// Default returns the configuration used when no file is found.
func Default() *Config {
	return &Config{
		Output: Output{Indent: "4", JavaRelease: DefaultJavaRelease},
		Names:  Names{Label: "OUTER"},
		Log:    Log{Level: "info"},
	}
}

// Load parses an unstream.toml file. Keys missing from the file keep
// their defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}
	c := Default()
	md, err := toml.Decode(string(data), c)
	if err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("%s: unknown key %s", path, undecoded[0])
	}
	c.Path = path
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

// FindAndLoad walks up from startDir to find an unstream.toml file and
// loads it. Without one the defaults are returned.
func FindAndLoad(startDir string) (*Config, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}
	for {
		path := filepath.Join(dir, FileName)
		if _, err := os.Stat(path); err == nil {
			return Load(path)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return Default(), nil
		}
		dir = parent
	}
}

// Validate checks the values that cannot be checked by decoding alone.
func (c *Config) Validate() error {
	if _, err := ParseIndent(string(c.Output.Indent)); err != nil {
		return err
	}
	if c.Output.JavaRelease < 8 {
		return fmt.Errorf("java_release %d is not supported, the minimum is 8", c.Output.JavaRelease)
	}
	if c.Names.Label == "" || !isIdent(c.Names.Label) {
		return fmt.Errorf("label %q is not a Java identifier", c.Names.Label)
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	return nil
}

// Level returns the configured log level.
func (c *Config) Level() (zerolog.Level, error) {
	lvl, err := zerolog.ParseLevel(strings.ToLower(c.Log.Level))
	if err != nil {
		return zerolog.NoLevel, fmt.Errorf("log level %q: %w", c.Log.Level, err)
	}
	return lvl, nil
}

// Compiler returns the compiler options the configuration selects. var
// is only used when the target release accepts it.
func (c *Config) Compiler() compiler.Options {
	indent, _ := ParseIndent(string(c.Output.Indent))
	return compiler.Options{
		Indent: indent,
		UseVar: c.Output.UseVar && c.Output.JavaRelease >= varRelease,
		Label:  c.Names.Label,
	}
}

// ParseIndent turns an indent setting into the text of one level.
func ParseIndent(s string) (string, error) {
	switch s {
	case "", "4":
		return "    ", nil
	case "tab", "\t":
		return "\t", nil
	}
	if strings.Trim(s, " ") == "" {
		return s, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return "", fmt.Errorf("indent %q is neither a number, spaces nor \"tab\"", s)
	}
	if n < 1 || n > 8 {
		return "", fmt.Errorf("indent %d is out of range 1-8", n)
	}
	return strings.Repeat(" ", n), nil
}

func isIdent(s string) bool {
	for i, r := range s {
		switch {
		case r == '_' || r == '$' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z'):
		case i > 0 && r >= '0' && r <= '9':
		default:
			return false
		}
	}
	return s != ""
}
