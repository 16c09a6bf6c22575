// Package logging provides structured logging for empirlink.
//
// This package wraps a package-global zap logger with convenience functions
// used throughout the session, registry and CLI. Logging is silent unless a
// level is configured, so library code can log freely without polluting
// command output.
//
// # Log Levels
//
//   - Debug: envelope hex dumps, handler dispatch, subscription details
//   - Info: connection lifecycle (open, close, reconnect scheduling)
//   - Warn: dropped sends, malformed payloads, unresolved bindings
//   - Error: handler panics, failed config fetches
//
// # Configuration
//
//	if err := logging.Initialize("debug"); err != nil {
//	    log.Fatal(err)
//	}
//	defer logging.Sync()
//
// An empty level falls back to the EMPIRLINK_LOG_LEVEL environment variable.
// The terminal monitor calls InitializeTo with a file path instead of stderr.
//
// # Thread Safety
//
// All logging functions are safe for concurrent use.
package logging
