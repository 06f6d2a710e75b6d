package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger is the structured logger used across the service.
// Fields are alternating key/value pairs; a single map is also accepted.
type Logger interface {
	Info(msg string, fields ...interface{})
	Warn(msg string, fields ...interface{})
	Error(msg string, fields ...interface{})
	Debug(msg string, fields ...interface{})
	With(fields ...interface{}) Logger
}

type loggerImpl struct {
	zl zerolog.Logger
}

type Config struct {
	Level      zerolog.Level
	Console    bool
	FilePath   string // empty disables file output
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

func DefaultConfig() Config {
	return Config{
		Level:      zerolog.InfoLevel,
		Console:    true,
		MaxSizeMB:  10,
		MaxBackups: 5,
		MaxAgeDays: 30,
		Compress:   true,
	}
}

// New builds a logger writing to the console and, if configured, a rotating file.
func New(cfg Config) Logger {
	var writers []io.Writer
	if cfg.Console {
		writers = append(writers, ConsoleWriter())
	}
	if cfg.FilePath != "" {
		writers = append(writers, &lumberjack.Logger{
			Filename:   cfg.FilePath,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			Compress:   cfg.Compress,
		})
	}
	if len(writers) == 0 {
		return Nop()
	}
	return NewWithWriter(io.MultiWriter(writers...), cfg.Level)
}

func NewWithWriter(w io.Writer, level zerolog.Level) Logger {
	zl := zerolog.New(w).With().Timestamp().Logger().Level(level)
	return &loggerImpl{zl: zl}
}

// Nop discards everything.
func Nop() Logger {
	return &loggerImpl{zl: zerolog.Nop()}
}

func ConsoleWriter() io.Writer {
	return zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
}

// ParseLevel maps a level name to zerolog; unknown names fall back to info.
func ParseLevel(s string) zerolog.Level {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(s)))
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return lvl
}

func (l *loggerImpl) Info(msg string, fields ...interface{}) {
	logWithFields(l.zl.Info(), msg, fields...)
}

func (l *loggerImpl) Warn(msg string, fields ...interface{}) {
	logWithFields(l.zl.Warn(), msg, fields...)
}

func (l *loggerImpl) Error(msg string, fields ...interface{}) {
	logWithFields(l.zl.Error(), msg, fields...)
}

func (l *loggerImpl) Debug(msg string, fields ...interface{}) {
	logWithFields(l.zl.Debug(), msg, fields...)
}

// With returns a child logger carrying the given fields on every event.
func (l *loggerImpl) With(fields ...interface{}) Logger {
	ctx := l.zl.With()
	for i := 0; i+1 < len(fields); i += 2 {
		key, ok := fields[i].(string)
		if !ok {
			continue
		}
		ctx = ctx.Interface(key, fields[i+1])
	}
	return &loggerImpl{zl: ctx.Logger()}
}

func logWithFields(event *zerolog.Event, msg string, fields ...interface{}) {
	if event == nil {
		return
	}
	if len(fields) == 1 {
		if m, ok := fields[0].(map[string]interface{}); ok {
			event.Fields(m).Msg(msg)
			return
		}
	}
	if len(fields)%2 == 0 {
		for i := 0; i < len(fields); i += 2 {
			key, ok := fields[i].(string)
			if !ok {
				continue
			}
			if key == "error" {
				if err, ok := fields[i+1].(error); ok && err != nil {
					event = event.Err(err)
					continue
				}
			}
			event = event.Interface(key, fields[i+1])
		}
	}
	event.Msg(msg)
}
