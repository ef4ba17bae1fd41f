package logger

import (
	"io"
	"os"

	"github.com/rs/zerolog"
	zerologadapter "logur.dev/adapter/zerolog"
)

type (
	// Logger defines the interface for a logger.
	Logger interface {
		Trace(msg string, fields ...map[string]interface{})
		Debug(msg string, fields ...map[string]interface{})
		Info(msg string, fields ...map[string]interface{})
		Warn(msg string, fields ...map[string]interface{})
		Error(msg string, fields ...map[string]interface{})
	}

	Options struct {
		// Pretty switches to the human readable console writer.
		Pretty bool
		// Writer defaults to os.Stderr.
		Writer io.Writer
		// Level is a zerolog level name such as "info". Empty logs everything,
		// an unknown name falls back to info.
		Level string
	}
)

func New(opts *Options) Logger {
	if opts == nil {
		opts = &Options{}
	}

	out := opts.Writer
	if out == nil {
		out = os.Stderr
	}

	var writer io.Writer = out
	if opts.Pretty {
		writer = zerolog.ConsoleWriter{Out: out}
	}

	log := zerolog.New(writer).With().Timestamp().Logger()
	if opts.Level != "" {
		level, err := zerolog.ParseLevel(opts.Level)
		if err != nil {
			level = zerolog.InfoLevel
		}
		log = log.Level(level)
	}

	return zerologadapter.New(log)
}

func NoOp() Logger {
	return zerologadapter.New(zerolog.Nop())
}
