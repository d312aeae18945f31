// Package logx configures the global zerolog logger.
package logx

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Config describes where and how log lines are written
type Config struct {
	Level          string // debug|info|warn|error
	Format         string // json|console
	FilePath       string // "" = no log file
	FileMaxSizeMB  int
	FileMaxBackups int
	FileMaxAgeDays int
	FileCompress   bool
}

// Setup builds a logger from c, installs it as the global zerolog logger and
// returns it.
func Setup(c Config) zerolog.Logger {
	return setup(c, os.Stderr)
}

func setup(c Config, out io.Writer) zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339
	lvl, err := zerolog.ParseLevel(c.Level)
	if err != nil || c.Level == "" {
		lvl = zerolog.InfoLevel
	}

	var writers []io.Writer
	if c.Format == "console" {
		writers = append(writers, zerolog.ConsoleWriter{Out: out, TimeFormat: time.Kitchen})
	} else {
		writers = append(writers, out)
	}
	if c.FilePath != "" {
		writers = append(writers, &lumberjack.Logger{
			Filename:   c.FilePath,
			MaxSize:    c.FileMaxSizeMB,
			MaxBackups: c.FileMaxBackups,
			MaxAge:     c.FileMaxAgeDays,
			Compress:   c.FileCompress,
		})
	}

	logger := zerolog.New(io.MultiWriter(writers...)).Level(lvl).With().
		Timestamp().
		Str("svc", "mp3vid").
		Logger()

	log.Logger = logger
	return logger
}
