package mappersmith

import (
	"os"

	"github.com/rs/zerolog"
)

// zerologLogger adapts a zerolog.Logger to the Logger interface.
type zerologLogger struct {
	logger zerolog.Logger
}

// NewZerologLogger wraps an existing zerolog.Logger.
func NewZerologLogger(logger zerolog.Logger) Logger {
	return &zerologLogger{logger: logger}
}

// NewSimpleLogger returns a human-readable console logger on stderr at
// debug level.
func NewSimpleLogger() Logger {
	writer := zerolog.ConsoleWriter{Out: os.Stderr}
	logger := zerolog.New(writer).Level(zerolog.DebugLevel).With().Timestamp().Logger()
	return &zerologLogger{logger: logger}
}

func (l *zerologLogger) Debug(msg string, kv ...any) {
	l.logger.Debug().Fields(kvFields(kv)).Msg(msg)
}

func (l *zerologLogger) Info(msg string, kv ...any) {
	l.logger.Info().Fields(kvFields(kv)).Msg(msg)
}

func (l *zerologLogger) Warn(msg string, kv ...any) {
	l.logger.Warn().Fields(kvFields(kv)).Msg(msg)
}

func (l *zerologLogger) Error(msg string, kv ...any) {
	l.logger.Error().Fields(kvFields(kv)).Msg(msg)
}

// kvFields turns alternating key/value pairs into a field map. A trailing
// key without a value is dropped; non-string keys are skipped.
func kvFields(kv []any) map[string]any {
	if len(kv) == 0 {
		return nil
	}
	fields := make(map[string]any, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			continue
		}
		fields[key] = kv[i+1]
	}
	return fields
}
