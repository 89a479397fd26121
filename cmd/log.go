package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/term"
)

var levelTags = map[string][2]string{
	"DEBUG": {"[DBG]", "\033[36m[DBG]\033[0m"},
	"INFO":  {"[INF]", "\033[32m[INF]\033[0m"},
	"WARN":  {"[WRN]", "\033[33m[WRN]\033[0m"},
	"ERROR": {"[ERR]", "\033[31m[ERR]\033[0m"},
	"FATAL": {"[FTL]", "\033[35m[FTL]\033[0m"},
}

// newLogger returns a console logger writing to w. Files lowered in
// parallel log concurrently, so writes are serialized.
func newLogger(w io.Writer, level zerolog.Level, noColor bool) zerolog.Logger {
	return zerolog.New(zerolog.ConsoleWriter{
		Out:        zerolog.SyncWriter(w),
		NoColor:    noColor,
		PartsOrder: []string{zerolog.LevelFieldName, zerolog.MessageFieldName},
		FormatLevel: func(i any) string {
			lvl := strings.ToUpper(fmt.Sprintf("%s", i))
			tag, ok := levelTags[lvl]
			if !ok {
				return fmt.Sprintf("[%s]", lvl)
			}
			if noColor {
				return tag[0]
			}
			return tag[1]
		},
	}).Level(level)
}

// colorDisabled reports whether log output to w should be plain text.
func colorDisabled(w io.Writer, flag bool) bool {
	if flag || os.Getenv("NO_COLOR") != "" {
		return true
	}
	f, ok := w.(*os.File)
	return !ok || !term.IsTerminal(int(f.Fd()))
}
