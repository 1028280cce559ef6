package dlog

import (
	"io"
	"strings"

	"github.com/rs/zerolog"

	"github.com/nersc/instbench/errors"
)

const (
	FormatJSON    = "json"
	FormatConsole = "console"
)

type LoggerParams struct {
	// zerolog level name: trace, debug, info, warn, error.  Empty means
	// info.
	Level string

	// FormatJSON (default) or FormatConsole.
	Format string

	// Defaults to Stderr().
	Output io.Writer
}

func NewLogger(params LoggerParams) (zerolog.Logger, error) {
	out := params.Output
	if out == nil {
		out = Stderr()
	}

	level := zerolog.InfoLevel
	if params.Level != "" {
		var err error
		level, err = zerolog.ParseLevel(strings.ToLower(params.Level))
		if err != nil {
			return zerolog.Nop(), errors.Wrapf(err, "invalid log level %q", params.Level)
		}
	}

	switch params.Format {
	case "", FormatJSON:
	case FormatConsole:
		out = zerolog.ConsoleWriter{Out: out, NoColor: true}
	default:
		return zerolog.Nop(), errors.Newf("invalid log format %q", params.Format)
	}

	return zerolog.New(out).Level(level).With().Timestamp().Logger(), nil
}
