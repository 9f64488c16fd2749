// Package log provides queue-vision's structured logging facade.
//
// # Overview
//
// The package exposes a small Logger interface with leveled methods and a
// simple Field type for structured context. Output goes through a pluggable
// Formatter (text or JSON) and one or more Outputs. An slog bridge handler
// lets stdlib-slog callers share the same pipeline, and RedirectStdLog routes
// plain "log" package output through a Logger.
//
// Quick start
//
//	l := log.NewLogger(
//	    log.WithLevel(log.InfoLevel),
//	    log.WithFormatter(&log.TextFormatter{}),
//	    log.WithOutput(log.NewConsoleOutput()),
//	)
//	l = l.With(log.Component("server"), log.Str("queue", "emails"))
//	l.Info("server started", log.Int("port", 8080))
//
// # Configuration
//
// Use ApplyConfig to build a logger from a declarative Config with level and
// format names, typically sourced from QV_LOG_LEVEL / QV_LOG_FORMAT.
package log
