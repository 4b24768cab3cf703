// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package config

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/autobrr/cleanarr/internal/domain"
)

// SetupLogging configures the global zerolog logger from the general config
// block. Console output always goes to stderr; when logPath is set a rotating
// file writer is added alongside it.
func SetupLogging(general domain.General) error {
	setLogLevel(general.LogLevel)

	writer := baseLogWriter()

	if general.LogPath != "" {
		dir := filepath.Dir(general.LogPath)
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return errors.Wrapf(err, "could not create log directory %s", dir)
		}

		maxSize := general.LogMaxSize
		if maxSize <= 0 {
			maxSize = 50
		}
		maxBackups := general.LogMaxBackups
		if maxBackups < 0 {
			maxBackups = 0
		}

		rotator := &lumberjack.Logger{
			Filename:   general.LogPath,
			MaxSize:    maxSize,
			MaxBackups: maxBackups,
		}
		writer = io.MultiWriter(writer, rotator)
	}

	log.Logger = zerolog.New(writer).With().Timestamp().Logger()
	return nil
}

func baseLogWriter() io.Writer {
	return zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.RFC3339,
	}
}

func setLogLevel(level string) {
	switch strings.ToLower(level) {
	case "trace":
		zerolog.SetGlobalLevel(zerolog.TraceLevel)
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info", "":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
		log.Warn().Str("level", level).Msg("Unknown log level, using info")
	}
}
