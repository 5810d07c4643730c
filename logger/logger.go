// Package logger builds the zerolog.Logger a Kernel attaches to itself and
// threads through stage/unit/action execution.
package logger

import (
	"os"

	"github.com/rs/zerolog"

	"github.com/alfreddata/pipelinekernel/config"
)

// New returns a console-writer zerolog.Logger configured from cfg: debug
// level in development, cfg.LogLevel otherwise, timestamped.
func New(cfg *config.Config) zerolog.Logger {
	out := zerolog.ConsoleWriter{Out: os.Stderr}
	lvl, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	if cfg.IsDevelopment() && lvl > zerolog.DebugLevel {
		lvl = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(lvl)
	return zerolog.New(out).With().Timestamp().Logger()
}
