// Package logging builds the zerolog logger shared by the store, the IPC
// service and the CLI.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

const filePermission = 0o664

// Output formats.
const (
	FormatConsole = "console"
	FormatJSON    = "json"
)

// Options selects level, format and destination. With File set, records
// are appended to that file instead of Writer.
type Options struct {
	Level  string
	Format string
	File   string
	Writer io.Writer
}

// Log is a built logger together with the file it writes to, if any.
type Log struct {
	Logger zerolog.Logger
	file   *os.File
}

// New builds a logger from opts. Writer defaults to stderr, Level to info
// and Format to console.
func New(opts Options) (*Log, error) {
	level := zerolog.InfoLevel
	if opts.Level != "" {
		var err error
		level, err = zerolog.ParseLevel(strings.ToLower(opts.Level))
		if err != nil {
			return nil, fmt.Errorf("log level %q: %w", opts.Level, err)
		}
	}

	log := &Log{}
	w := opts.Writer
	if w == nil {
		w = os.Stderr
	}
	if opts.File != "" {
		f, err := os.OpenFile(opts.File, os.O_APPEND|os.O_CREATE|os.O_WRONLY, filePermission)
		if err != nil {
			return nil, fmt.Errorf("opening log file: %w", err)
		}
		log.file = f
		w = zerolog.SyncWriter(f)
	}

	switch opts.Format {
	case "", FormatConsole:
		if opts.File == "" {
			w = zerolog.ConsoleWriter{Out: w, TimeFormat: "15:04:05"}
		}
	case FormatJSON:
	default:
		log.Close()
		return nil, fmt.Errorf("log format %q: want %s or %s", opts.Format, FormatConsole, FormatJSON)
	}

	log.Logger = zerolog.New(w).Level(level).With().Timestamp().Logger()
	return log, nil
}

// Close closes the log file, if one was opened.
func (l *Log) Close() error {
	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}
