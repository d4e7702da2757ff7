package config

import (
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// SetupLogger installs the global logger: console output on stderr and, when
// logFile is set, JSON lines appended to that file. The returned function
// closes the file.
func SetupLogger(level, logFile string) func() error {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)

	if logFile == "" {
		log.Logger = SetupLoggerWithWriters(os.Stderr, nil)
		return func() error { return nil }
	}

	file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		log.Logger = SetupLoggerWithWriters(os.Stderr, nil)
		log.Error().Err(err).Str("file", logFile).Msg("Failed to open log file, using stderr only")
		return func() error { return nil }
	}

	log.Logger = SetupLoggerWithWriters(os.Stderr, file)
	return file.Close
}

// SetupLoggerWithWriters builds a logger writing console text to console and
// JSON to file. A nil file disables the JSON output.
func SetupLoggerWithWriters(console, file io.Writer) zerolog.Logger {
	cw := zerolog.ConsoleWriter{Out: console, NoColor: console != os.Stderr}
	if file == nil {
		return zerolog.New(cw).With().Timestamp().Logger()
	}
	return zerolog.New(zerolog.MultiLevelWriter(cw, file)).With().Timestamp().Logger()
}
