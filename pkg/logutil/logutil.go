// Copyright 2021 - 2023 Matrix Origin
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package logutil owns the process wide zap logger.  Library code
// logs through the package level helpers in api.go, services that
// want file output or a different level call SetupLogger once at
// startup.
package logutil

import (
	"sync/atomic"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// LogConfig is what a service passes to SetupLogger.
type LogConfig struct {
	// Level is one of debug, info, warn, error, panic, fatal.
	Level string `toml:"level"`
	// Format is console or json.
	Format string `toml:"format"`
	// Filename enables rotated file output when non empty.
	Filename string `toml:"filename"`
	// MaxSize is the size in MB before the file is rotated.
	MaxSize int `toml:"max-size"`
	// MaxDays is how long rotated files are kept.
	MaxDays int `toml:"max-days"`
	// MaxBackups caps the number of rotated files.
	MaxBackups int `toml:"max-backups"`
}

var _globalLogger atomic.Pointer[zap.Logger]
var _skip1Logger atomic.Pointer[zap.Logger]

func init() {
	setGlobalLogger(newConsoleLogger(zapcore.InfoLevel))
}

func setGlobalLogger(logger *zap.Logger) {
	_globalLogger.Store(logger)
	_skip1Logger.Store(logger.WithOptions(zap.AddCallerSkip(1)))
	zap.ReplaceGlobals(logger)
}

// GetGlobalLogger returns the logger for callers that attach their
// own fields or options.
func GetGlobalLogger() *zap.Logger {
	return _globalLogger.Load()
}

func getSkip1Logger() *zap.Logger {
	return _skip1Logger.Load()
}

// Adjust returns logger if non nil, otherwise the global logger
// with options applied.
func Adjust(logger *zap.Logger, options ...zap.Option) *zap.Logger {
	if logger != nil {
		return logger
	}
	return GetGlobalLogger().WithOptions(options...)
}

// SetupLogger replaces the global logger per cfg.  It is meant to
// be called once, before any other goroutine logs.
func SetupLogger(cfg *LogConfig) {
	level := zapcore.InfoLevel
	if cfg.Level != "" {
		if err := level.Set(cfg.Level); err != nil {
			Warnf("unknown log level %q, using info", cfg.Level)
			level = zapcore.InfoLevel
		}
	}

	if cfg.Filename == "" {
		setGlobalLogger(newConsoleLogger(level))
		return
	}

	sink := zapcore.AddSync(&lumberjack.Logger{
		Filename:   cfg.Filename,
		MaxSize:    cfg.MaxSize,
		MaxAge:     cfg.MaxDays,
		MaxBackups: cfg.MaxBackups,
	})
	var enc zapcore.Encoder
	if cfg.Format == "json" {
		enc = zapcore.NewJSONEncoder(encoderConfig())
	} else {
		enc = zapcore.NewConsoleEncoder(encoderConfig())
	}
	core := zapcore.NewCore(enc, sink, level)
	setGlobalLogger(zap.New(core, zap.AddCaller(), zap.AddStacktrace(zapcore.PanicLevel)))
}

func newConsoleLogger(level zapcore.Level) *zap.Logger {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(level)
	cfg.Encoding = "console"
	cfg.EncoderConfig = encoderConfig()
	logger, err := cfg.Build(zap.AddStacktrace(zapcore.PanicLevel))
	if err != nil {
		panic(err)
	}
	return logger
}

func encoderConfig() zapcore.EncoderConfig {
	cfg := zap.NewProductionEncoderConfig()
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.EncodeLevel = zapcore.CapitalLevelEncoder
	cfg.EncodeDuration = zapcore.StringDurationEncoder
	return cfg
}
