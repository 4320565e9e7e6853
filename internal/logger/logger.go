// Package logger builds the application's zap logger.  Output always goes to
// stdout; when a file name is configured the same entries are also written to
// a lumberjack-rotated file.
package logger

import (
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/emprestaae/empresta-api/internal/config"
)

// New returns a logger configured from cfg and a cleanup func that flushes
// buffered entries.
func New(cfg config.LogConfig) (*zap.Logger, func()) {
	var lvl zapcore.Level
	if err := lvl.Set(cfg.Level); err != nil {
		lvl = zapcore.InfoLevel
	}

	enc := encoder(cfg.JSON)
	cores := []zapcore.Core{zapcore.NewCore(enc, zapcore.AddSync(os.Stdout), lvl)}
	if cfg.File != "" {
		w := RotatingWriter(cfg.File, cfg.MaxSizeMB, cfg.MaxBackups, cfg.MaxAgeDays)
		cores = append(cores, zapcore.NewCore(enc, zapcore.AddSync(w), lvl))
	}

	opts := []zap.Option{zap.AddCaller()}
	if !cfg.JSON {
		opts = append(opts, zap.Development())
	}
	l := zap.New(zapcore.NewTee(cores...), opts...)
	return l, func() { _ = l.Sync() }
}

// RotatingWriter returns a size-rotated file writer.
func RotatingWriter(filename string, maxSizeMB, maxBackups, maxAgeDays int) io.Writer {
	return &lumberjack.Logger{
		Filename:   filename,
		MaxSize:    max(1, maxSizeMB),
		MaxBackups: max(0, maxBackups),
		MaxAge:     max(0, maxAgeDays),
		Compress:   true,
	}
}

func encoder(json bool) zapcore.Encoder {
	if json {
		cfg := zap.NewProductionEncoderConfig()
		cfg.EncodeTime = zapcore.ISO8601TimeEncoder
		cfg.TimeKey = "ts"
		cfg.EncodeCaller = zapcore.ShortCallerEncoder
		return zapcore.NewJSONEncoder(cfg)
	}
	cfg := zap.NewDevelopmentEncoderConfig()
	cfg.EncodeTime = zapcore.TimeEncoderOfLayout("2006-01-02 15:04:05.000")
	cfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
	cfg.EncodeCaller = zapcore.ShortCallerEncoder
	return zapcore.NewConsoleEncoder(cfg)
}
