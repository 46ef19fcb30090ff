// Package logging configures the process-wide zerolog logger, following
// httprunner-video-downloader's internal/config.Manager wiring: a console
// writer to stderr, level driven by LOG_LEVEL/-v, never logging cookie
// values (only name/domain/file, per spec §9's shared-resource discipline).
package logging

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Init sets the global zerolog level and output writer. verbose forces
// debug regardless of level.
func Init(level string, verbose bool) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	parsed, err := zerolog.ParseLevel(level)
	if err != nil {
		parsed = zerolog.InfoLevel
	}
	if verbose {
		parsed = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(parsed)

	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}).
		With().
		Timestamp().
		Logger()
}
