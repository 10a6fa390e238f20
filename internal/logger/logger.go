/*
 * Copyright (C) 2025 Nethesis S.r.l.
 * http://www.nethesis.it - info@nethesis.it
 *
 * SPDX-License-Identifier: AGPL-3.0-or-later
 */

// Package logger builds the process-wide zerolog logger: level,
// format, and destination come from Config; secrets embedded in log
// messages (the cosmos key, mongo credentials baked into a URI) are
// redacted before they ever reach an output writer.
package logger

import (
	"io"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var sensitivePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)"(password|pwd|secret|token|key|auth|bearer|authorization)":\s*"(\\.|[^"\\])*"`),
	regexp.MustCompile(`(?i)(password|pwd|secret|token|key|auth|bearer|authorization)[:=]\s*\S+`),
	regexp.MustCompile(`(?i)bearer\s+[a-zA-Z0-9+/=_-]{20,}`),
	// mongodb:// and https:// URLs carrying embedded credentials (user:pass@host).
	regexp.MustCompile(`(mongodb(\+srv)?|https?)://[^:/\s]+:[^@/\s]+@`),
}

// Level, Format, and Output mirror the dimensions the ambient stack's
// structured logger is configured along.
type Level string

const (
	TraceLevel Level = "trace"
	DebugLevel Level = "debug"
	InfoLevel  Level = "info"
	WarnLevel  Level = "warn"
	ErrorLevel Level = "error"
)

type Format string

const (
	JSONFormat    Format = "json"
	ConsoleFormat Format = "console"
)

type Output string

const (
	StdoutOutput Output = "stdout"
	StderrOutput Output = "stderr"
	FileOutput   Output = "file"
)

// Config holds the logger configuration read from §6's `logging` block
// plus process environment.
type Config struct {
	Level    Level
	Format   Format
	Output   Output
	FilePath string
	AppName  string
}

// DefaultConfig returns sensible defaults: info level, JSON to stdout.
func DefaultConfig() Config {
	return Config{
		Level:   InfoLevel,
		Format:  JSONFormat,
		Output:  StdoutOutput,
		AppName: "store-verify",
	}
}

// Init builds and installs the process-wide logger, returning it for
// callers that prefer explicit passing over the global.
func Init(cfg Config) (zerolog.Logger, error) {
	switch cfg.Level {
	case TraceLevel:
		zerolog.SetGlobalLevel(zerolog.TraceLevel)
	case DebugLevel:
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case WarnLevel:
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case ErrorLevel:
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
	zerolog.TimeFieldFormat = time.RFC3339

	var output io.Writer
	switch cfg.Output {
	case StderrOutput:
		output = os.Stderr
	case FileOutput:
		if cfg.FilePath == "" {
			output = os.Stderr
		} else {
			f, err := os.OpenFile(cfg.FilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
			if err != nil {
				return zerolog.Logger{}, err
			}
			output = f
		}
	default:
		output = os.Stdout
	}

	if cfg.Format == ConsoleFormat && cfg.Output != FileOutput {
		output = zerolog.ConsoleWriter{Out: output, TimeFormat: time.RFC3339}
	}

	l := zerolog.New(output).Level(zerolog.GlobalLevel()).With().
		Timestamp().
		Str("service", cfg.AppName).
		Logger()

	log.Logger = l
	return l, nil
}

// InitFromEnv reads LOG_LEVEL/LOG_FORMAT/LOG_OUTPUT/LOG_FILE_PATH on
// top of DefaultConfig, then calls Init.
func InitFromEnv(appName string) (zerolog.Logger, error) {
	cfg := DefaultConfig()
	cfg.AppName = appName

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Level = Level(strings.ToLower(v))
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Format = Format(strings.ToLower(v))
	}
	if v := os.Getenv("LOG_OUTPUT"); v != "" {
		cfg.Output = Output(strings.ToLower(v))
	}
	if v := os.Getenv("LOG_FILE_PATH"); v != "" {
		cfg.FilePath = v
	}

	return Init(cfg)
}

// Sanitize strips credential-shaped substrings (key/token/password
// fields, embedded URI basic-auth) from a string before it is logged.
func Sanitize(input string) string {
	result := input
	for _, pattern := range sensitivePatterns {
		result = pattern.ReplaceAllStringFunc(result, func(match string) string {
			if strings.Contains(match, `":`) {
				parts := strings.SplitN(match, `":`, 2)
				return parts[0] + `": "[******]"`
			}
			if strings.Contains(match, "@") {
				return match[:strings.Index(match, "://")+3] + "[******]@"
			}
			if idx := strings.IndexAny(match, ":="); idx >= 0 {
				return match[:idx+1] + "[******]"
			}
			return "[******]"
		})
	}
	return result
}

// Component returns a child logger tagged with a component field, the
// standard way every package in this repo scopes its log lines.
func Component(base zerolog.Logger, name string) zerolog.Logger {
	return base.With().Str("component", name).Logger()
}
