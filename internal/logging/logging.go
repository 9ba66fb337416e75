// Package logging builds the process logger: a console sink and a daily log file.
package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Options selects the level, the encoder and the sinks.
type Options struct {
	Level   string
	Console bool
	JSON    bool
	Dir     string // log file directory; empty disables the file sink
	Name    string // log file prefix
	Now     func() time.Time
}

// ParseLevel maps a level name to a zap level. Unknown names give info.
func ParseLevel(level string) zapcore.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// FilePath returns {dir}/{name}_{YYYYMMDD}.log for day t.
func FilePath(dir, name string, t time.Time) string {
	if name == "" {
		name = "procesador"
	}
	return filepath.Join(dir, fmt.Sprintf("%s_%s.log", name, t.Format("20060102")))
}

// EncoderConfig is shared by every sink: ISO8601 time, level, logger name, message.
func EncoderConfig() zapcore.EncoderConfig {
	cfg := zap.NewProductionEncoderConfig()
	cfg.TimeKey = "time"
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.EncodeLevel = zapcore.CapitalLevelEncoder
	cfg.EncodeDuration = zapcore.StringDurationEncoder
	return cfg
}

// New builds an independent logger for opts. The returned function flushes
// and closes the log file; call it once when done.
func New(opts Options) (*zap.Logger, func() error, error) {
	level := ParseLevel(opts.Level)
	var encoder zapcore.Encoder
	if opts.JSON {
		encoder = zapcore.NewJSONEncoder(EncoderConfig())
	} else {
		encoder = zapcore.NewConsoleEncoder(EncoderConfig())
	}

	var cores []zapcore.Core
	if opts.Console {
		cores = append(cores, zapcore.NewCore(encoder.Clone(), zapcore.Lock(os.Stdout), level))
	}

	var file *os.File
	if opts.Dir != "" {
		now := time.Now
		if opts.Now != nil {
			now = opts.Now
		}
		if err := os.MkdirAll(opts.Dir, 0755); err != nil {
			return nil, nil, fmt.Errorf("create log directory: %w", err)
		}
		path := FilePath(opts.Dir, opts.Name, now())
		f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file %s: %w", path, err)
		}
		file = f
		cores = append(cores, zapcore.NewCore(encoder.Clone(), zapcore.AddSync(f), level))
	}

	if len(cores) == 0 {
		return zap.NewNop(), func() error { return nil }, nil
	}

	logger := zap.New(zapcore.NewTee(cores...))
	closeFn := func() error {
		_ = logger.Sync()
		if file != nil {
			return file.Close()
		}
		return nil
	}
	return logger, closeFn, nil
}
