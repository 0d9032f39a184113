// Package logging configures the run logger: console output plus a
// timestamped log file per run, so each run leaves its own trace.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"epl_v4/etl/internal/config"
)

// Setup builds the root logger from config and installs it as the global
// fallback. A log-file open failure degrades to console-only logging.
func Setup(cfg *config.Config) zerolog.Logger {
	level := zerolog.InfoLevel
	if parsed, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		level = parsed
	}
	zerolog.SetGlobalLevel(level)

	var console io.Writer = os.Stdout
	if cfg.IsDevelopment() {
		console = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	}

	writer := console
	if cfg.LogDir != "" {
		if file, err := openLogFile(cfg.LogDir); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to open log file, logging to console only: %v\n", err)
		} else {
			writer = zerolog.MultiLevelWriter(console, file)
		}
	}

	logger := zerolog.New(writer).With().Timestamp().Logger()
	log.Logger = logger

	logger.Info().Str("level", level.String()).Msg("Logger initialized")
	return logger
}

// openLogFile creates a fresh timestamped file for this run.
func openLogFile(dir string) (*os.File, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	name := fmt.Sprintf("football_etl_log_%s.log", time.Now().Format("20060102150405"))
	return os.Create(filepath.Join(dir, name))
}
