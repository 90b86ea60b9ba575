// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package logging configures the zerolog logger shared by all components.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/pdiddy/pmid2nct/pkg/types"
)

// Config holds logger configuration.
type Config struct {
	// Level is the minimum level to output: debug, info, warn, error.
	Level string

	// Pretty enables human-readable console output instead of JSON.
	Pretty bool

	// Output receives log lines (default os.Stderr).
	Output io.Writer
}

// FromTypes converts the application log settings into a logger Config.
func FromTypes(cfg types.LogConfig) Config {
	return Config{
		Level:  cfg.Level,
		Pretty: cfg.Pretty,
		Output: os.Stderr,
	}
}

// Setup configures the global zerolog logger and returns it.
func Setup(cfg Config) zerolog.Logger {
	zerolog.SetGlobalLevel(ParseLevel(cfg.Level))

	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}
	if cfg.Pretty {
		out = zerolog.ConsoleWriter{Out: out}
	}

	logger := zerolog.New(out).With().Timestamp().Logger()
	log.Logger = logger
	return logger
}

// ParseLevel converts a level name to a zerolog.Level, defaulting to info.
func ParseLevel(level string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// NewLogger returns a child of the global logger tagged with component.
func NewLogger(component string) zerolog.Logger {
	return log.With().Str("component", component).Logger()
}

// Field names used across components:
//   - batch: 1-based batch index
//   - batch_size: identifiers in the batch
//   - pmid: PubMed identifier
//   - tier: extraction tier that produced the result
//   - path: "structured" or "tree"
//   - run_id: stored run identifier
