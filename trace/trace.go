/*
 * Jacobin VM - A Java virtual machine
 * Copyright (c) 2021-5 by the Jacobin authors. All rights reserved.
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

// Package trace is the VM-wide logging facade. The call surface
// (Trace, Warning, Error, Severe) matches jacobin's historical
// trace/log packages; the backing implementation is zerolog so that
// output is structured (level, timestamp) rather than raw
// Fprintf lines.
package trace

import (
	"io"
	"os"
	"sync"

	"github.com/rs/zerolog"
)

var (
	once   sync.Once
	logger zerolog.Logger
)

func initLogger() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, NoColor: true}).
		With().Timestamp().Logger()
}

func get() zerolog.Logger {
	once.Do(initLogger)
	return logger
}

// SetOutput redirects trace output, e.g. to a test buffer.
func SetOutput(w io.Writer) {
	once.Do(initLogger)
	logger = zerolog.New(zerolog.ConsoleWriter{Out: w, NoColor: true}).
		With().Timestamp().Logger()
}

// SetLevel adjusts the minimum emitted level. Level names follow
// zerolog's: "trace", "debug", "info", "warn", "error".
func SetLevel(level string) {
	get()
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
}

// Trace logs a fine-grained diagnostic message (classloading,
// instruction dispatch tracing, etc.)
func Trace(msg string) {
	get().Debug().Msg(msg)
}

// Info logs a normal informational message.
func Info(msg string) {
	get().Info().Msg(msg)
}

// Warning logs a recoverable anomaly.
func Warning(msg string) {
	get().Warn().Msg(msg)
}

// Error logs a failure that aborts the current operation (verify
// failure, class-format error, uncaught exception).
func Error(msg string) {
	get().Error().Msg(msg)
}

// Severe logs a failure the VM cannot continue past.
func Severe(msg string) {
	get().Error().Str("severity", "SEVERE").Msg(msg)
}
