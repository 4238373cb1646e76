// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package logger builds the diagnostic logger used across saul.
//
// Diagnostics go to stderr so they never mix with the SVG path printed on
// stdout in piped mode. User-facing status text is not logged here.
package logger

import (
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New returns a console logger writing to stderr. Only warnings and errors
// are shown unless debug is set.
func New(debug bool) *zap.Logger {
	return NewWithWriter(os.Stderr, debug)
}

// NewWithWriter is New with an explicit destination.
func NewWithWriter(w io.Writer, debug bool) *zap.Logger {
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "time"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder

	level := zap.WarnLevel
	if debug {
		level = zap.DebugLevel
	}

	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encoderConfig),
		zapcore.AddSync(w),
		level,
	)

	opts := []zap.Option{}
	if debug {
		opts = append(opts, zap.AddCaller())
	}
	return zap.New(core, opts...)
}
