// Package log is the process wide structured logger, a thin wrapper around a
// global zerolog logger.
package log

import (
	"cmp"
	"fmt"
	"io"
	"os"
	"path"
	"runtime/debug"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

const (
	LogLevelDebug = "debug"
	LogLevelInfo  = "info"
	LogLevelWarn  = "warn"
	LogLevelError = "error"

	RFC3339Milli = "2006-01-02T15:04:05.000Z07:00"
)

var levels = map[string]zerolog.Level{
	LogLevelDebug: zerolog.DebugLevel,
	LogLevelInfo:  zerolog.InfoLevel,
	LogLevelWarn:  zerolog.WarnLevel,
	LogLevelError: zerolog.ErrorLevel,
}

var (
	log   zerolog.Logger
	logMu sync.RWMutex
)

func init() {
	// $LOG_LEVEL applies to tests too, where nobody calls Init.
	Init(cmp.Or(os.Getenv("LOG_LEVEL"), LogLevelError), "stderr", nil)
}

// Logger provides access to the global logger.
func Logger() *zerolog.Logger {
	logMu.RLock()
	logger := log
	logMu.RUnlock()
	return &logger
}

func setLogger(logger zerolog.Logger) {
	logMu.Lock()
	log = logger
	logMu.Unlock()
}

// warnLevelWriter only forwards warnings and errors.
type warnLevelWriter struct {
	io.Writer
}

func (w *warnLevelWriter) WriteLevel(level zerolog.Level, p []byte) (int, error) {
	if level < zerolog.WarnLevel {
		return len(p), nil
	}
	return w.Writer.Write(p)
}

func openOutput(output string) (io.Writer, bool) {
	switch output {
	case "stdout":
		return os.Stdout, false
	case "stderr":
		return os.Stderr, false
	}
	f, err := os.OpenFile(output, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		panic(fmt.Sprintf("cannot create log output: %v", err))
	}
	return f, strings.HasSuffix(output, ".json")
}

// Init replaces the global logger. Output is stdout, stderr or a file path;
// files ending in .json receive raw JSON lines while the console keeps the
// human readable format on stdout. If errorOutput is not nil, warnings and
// errors are also written there.
func Init(level, output string, errorOutput io.Writer) {
	lvl, ok := levels[level]
	if !ok {
		panic(fmt.Sprintf("invalid log level: %q", level))
	}
	out, isJSON := openOutput(output)
	writers := []io.Writer{}
	if isJSON {
		writers = append(writers, out)
		out = os.Stdout
	}
	writers = append(writers, zerolog.ConsoleWriter{Out: out, TimeFormat: RFC3339Milli})
	if errorOutput != nil {
		writers = append(writers, &warnLevelWriter{zerolog.ConsoleWriter{
			Out:        errorOutput,
			TimeFormat: RFC3339Milli,
			NoColor:    true,
		}})
	}
	var w io.Writer = writers[0]
	if len(writers) > 1 {
		w = zerolog.MultiLevelWriter(writers...)
	}

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnixMs
	// Skip the frames of this package so callers are reported.
	zerolog.CallerSkipFrameCount = 3
	zerolog.CallerMarshalFunc = func(_ uintptr, file string, line int) string {
		return fmt.Sprintf("%s/%s:%d", path.Base(path.Dir(file)), path.Base(file), line)
	}
	logger := zerolog.New(w).With().Timestamp().Caller().Logger().Level(lvl)
	setLogger(logger)
	logger.Debug().Msgf("logger initialized at level %s with output %s", level, output)
}

// Level returns the current log level.
func Level() string {
	current := Logger().GetLevel()
	for name, lvl := range levels {
		if lvl == current {
			return name
		}
	}
	return current.String()
}

// Debugf sends a formatted debug level log message.
func Debugf(template string, args ...any) {
	Logger().Debug().Msgf(template, args...)
}

// Infof sends a formatted info level log message.
func Infof(template string, args ...any) {
	Logger().Info().Msgf(template, args...)
}

// Warnf sends a formatted warn level log message.
func Warnf(template string, args ...any) {
	Logger().Warn().Msgf(template, args...)
}

// Fatalf logs the message with a stack trace and exits.
func Fatalf(template string, args ...any) {
	Logger().Fatal().Msgf(template+"\n"+string(debug.Stack()), args...)
}

// Debugw sends a debug level log message with key-value pairs.
func Debugw(msg string, keyvalues ...any) {
	Logger().Debug().Fields(keyvalues).Msg(msg)
}

// Infow sends an info level log message with key-value pairs.
func Infow(msg string, keyvalues ...any) {
	Logger().Info().Fields(keyvalues).Msg(msg)
}

// Warnw sends a warning level log message with key-value pairs.
func Warnw(msg string, keyvalues ...any) {
	Logger().Warn().Fields(keyvalues).Msg(msg)
}

// Errorw sends an error level log message with the error attached.
func Errorw(err error, msg string) {
	Logger().Error().Err(err).Msg(msg)
}
