// Package logging wraps zerolog behind short printf-style helpers used
// throughout the program.
package logging

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/primoscope/CoomerDL-sub000/internal/domain/consts"
)

var (
	mu  sync.RWMutex
	log = newConsoleLogger(os.Stderr, zerolog.InfoLevel)
)

func newConsoleLogger(out io.Writer, lvl zerolog.Level) zerolog.Logger {
	cw := zerolog.ConsoleWriter{Out: out, TimeFormat: time.TimeOnly}
	return zerolog.New(cw).Level(lvl).With().Timestamp().Logger()
}

// Setup configures the global logger. Debug levels 0, 1, and 2+ map to info,
// debug, and trace verbosity. A non-empty logFilePath additionally appends
// JSON lines to that file.
func Setup(debugLevel int, logFilePath string) error {
	lvl := zerolog.InfoLevel
	switch {
	case debugLevel == 1:
		lvl = zerolog.DebugLevel
	case debugLevel >= 2:
		lvl = zerolog.TraceLevel
	}

	cw := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly}
	var w io.Writer = cw

	if logFilePath != "" {
		f, err := os.OpenFile(logFilePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, consts.PermsLogFile)
		if err != nil {
			return fmt.Errorf("failed to open log file %q: %w", logFilePath, err)
		}
		w = zerolog.MultiLevelWriter(cw, f)
	}

	zerolog.CallerSkipFrameCount = 3

	mu.Lock()
	log = zerolog.New(w).Level(lvl).With().Timestamp().Logger()
	mu.Unlock()
	return nil
}

func logger() *zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	l := log
	return &l
}

// I logs at info level.
func I(format string, args ...any) {
	logger().Info().Msgf(format, args...)
}

// S logs a success at info level.
func S(format string, args ...any) {
	logger().Info().Str("status", "success").Msgf(format, args...)
}

// D logs at debug level with caller location.
func D(format string, args ...any) {
	logger().Debug().Caller().Msgf(format, args...)
}

// W logs at warn level.
func W(format string, args ...any) {
	logger().Warn().Msgf(format, args...)
}

// E logs at error level with caller location.
func E(format string, args ...any) {
	logger().Error().Caller().Msgf(format, args...)
}

// P prints a plain line to stdout, bypassing level filtering.
func P(format string, args ...any) {
	fmt.Printf(format+"\n", args...)
}
