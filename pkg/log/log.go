// Package log wires the process-wide zerolog.Logger and the
// per-tenant child loggers every long-running component
// (scheduler, discoverer, worker, reconciler) attaches its
// site/file/user context to.
package log

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/nlweb-ai/schemacrawler/pkg/types"
)

var (
	// Logger is the global logger instance
	Logger zerolog.Logger
)

// Level represents log level
type Level string

const (
	DebugLevel Level = "debug"
	InfoLevel  Level = "info"
	WarnLevel  Level = "warn"
	ErrorLevel Level = "error"
)

// Config holds logging configuration
type Config struct {
	Level      Level
	JSONOutput bool
	Output     io.Writer
}

// Init initializes the global logger
func Init(cfg Config) {
	// Set log level
	var level zerolog.Level
	switch cfg.Level {
	case DebugLevel:
		level = zerolog.DebugLevel
	case InfoLevel:
		level = zerolog.InfoLevel
	case WarnLevel:
		level = zerolog.WarnLevel
	case ErrorLevel:
		level = zerolog.ErrorLevel
	default:
		level = zerolog.InfoLevel
	}

	zerolog.SetGlobalLevel(level)

	// Configure output
	output := cfg.Output
	if output == nil {
		output = os.Stdout
	}

	// Use JSON or console output
	if cfg.JSONOutput {
		Logger = zerolog.New(output).With().Timestamp().Logger()
	} else {
		Logger = zerolog.New(zerolog.ConsoleWriter{
			Out:        output,
			TimeFormat: time.RFC3339,
		}).With().Timestamp().Logger()
	}
}

// WithComponent creates a child logger with component field
func WithComponent(component string) zerolog.Logger {
	return Logger.With().Str("component", component).Logger()
}

// WithSite enriches base (normally a component logger from
// WithComponent) with the (site, user) pair the Scheduler, Discoverer,
// and Reconciler all sweep at, so a grep on site_url+user_id finds
// every log line touching that tenant's site regardless of which
// component emitted it.
func WithSite(base zerolog.Logger, siteURL, userID string) zerolog.Logger {
	return base.With().Str("site_url", siteURL).Str("user_id", userID).Logger()
}

// WithFile enriches base with the (file, user) pair a Reconciler sweep
// or a direct file lookup is scoped to.
func WithFile(base zerolog.Logger, fileURL, userID string) zerolog.Logger {
	return base.With().Str("file_url", fileURL).Str("user_id", userID).Logger()
}

// WithJob enriches base with every field a Worker needs across a
// job's lifetime: the queue message ID (blank for jobs synthesized
// outside the Queue, e.g. in tests, so the field is omitted rather
// than logged empty), the job type, and the (site, file, user) triple
// the job body names. Centralizing this here means worker.handle
// doesn't hand-assemble the same four .Str calls job after job.
func WithJob(base zerolog.Logger, msgID string, job types.JobBody) zerolog.Logger {
	l := base.With().
		Str("job_type", string(job.Type)).
		Str("site_url", job.Site).
		Str("file_url", job.FileURL).
		Str("user_id", job.UserID)
	if msgID != "" {
		l = l.Str("job_id", msgID)
	}
	return l.Logger()
}

// Helper functions for common logging patterns
func Info(msg string) {
	Logger.Info().Msg(msg)
}

func Debug(msg string) {
	Logger.Debug().Msg(msg)
}

func Warn(msg string) {
	Logger.Warn().Msg(msg)
}

func Error(msg string) {
	Logger.Error().Msg(msg)
}

func Errorf(format string, err error) {
	Logger.Error().Err(err).Msg(format)
}

func Fatal(msg string) {
	Logger.Fatal().Msg(msg)
}
