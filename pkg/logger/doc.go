// Package logger provides structured logging for the xhs automation tool.
//
// It wraps zerolog behind a small Logger interface. All output goes to stderr
// (optionally mirrored to a file) because stdout is reserved for JSON result
// documents that other programs parse.
//
// Basic Usage:
//
//	err := logger.Initialize(&cfg.Logging)
//	logger.WithField("session_id", id).Info("Session started")
//
// Components accept a Logger so tests can pass NewTestLogger() and assert on
// captured messages, or NewNopLogger() to silence output.
package logger
