package logger

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

type Logger interface {
	Logf(format string, v ...interface{})
}

type Options struct {
	Level      string // "debug", "info", "warn", "error"
	Format     string // "console" or "json"
	OutputFile string // optional rotated log file
}

// New creates a zap.Logger writing to stderr and, when OutputFile is
// set, to a rotated JSON file. Stdout is left to command output.
func New(opts Options) (*zap.Logger, error) {
	lvl := zapcore.InfoLevel
	if opts.Level != "" {
		if err := lvl.UnmarshalText([]byte(opts.Level)); err != nil {
			return nil, fmt.Errorf("invalid log level: %w", err)
		}
	}

	var enc zapcore.Encoder
	if opts.Format == "json" {
		enc = zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
	} else {
		cfg := zap.NewDevelopmentEncoderConfig()
		cfg.EncodeLevel = zapcore.CapitalLevelEncoder
		enc = zapcore.NewConsoleEncoder(cfg)
	}

	cores := []zapcore.Core{
		zapcore.NewCore(enc, zapcore.Lock(os.Stderr), lvl),
	}

	if opts.OutputFile != "" {
		dir := filepath.Dir(opts.OutputFile)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}

		fileWriter := zapcore.AddSync(&lumberjack.Logger{
			Filename:   opts.OutputFile,
			MaxSize:    10, // MB
			MaxBackups: 5,
			MaxAge:     7, // days
			Compress:   true,
		})
		cores = append(cores, zapcore.NewCore(
			zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
			fileWriter,
			lvl,
		))
	}

	return zap.New(
		zapcore.NewTee(cores...),
		zap.AddCaller(),
		zap.AddStacktrace(zapcore.ErrorLevel),
	), nil
}

type sugared struct {
	s *zap.SugaredLogger
}

// Sugar adapts l to Logger; messages are logged at info level.
func Sugar(l *zap.Logger) Logger {
	return &sugared{s: l.WithOptions(zap.AddCallerSkip(1)).Sugar()}
}

func (l *sugared) Logf(format string, v ...interface{}) {
	l.s.Infof(format, v...)
}

func (l *sugared) Warnf(format string, v ...interface{}) {
	l.s.Warnf(format, v...)
}

// Warner is implemented by loggers that keep failures apart from
// progress messages.
type Warner interface {
	Warnf(format string, v ...interface{})
}

// Warnf logs at warn level when l is a Warner and through Logf
// otherwise. A nil l is ignored.
func Warnf(l Logger, format string, v ...interface{}) {
	if l == nil {
		return
	}
	if w, ok := l.(Warner); ok {
		w.Warnf(format, v...)
		return
	}
	l.Logf(format, v...)
}

type nop struct{}

func (nop) Logf(string, ...interface{}) {}

var Nop Logger = nop{}
