// Package log builds the slog loggers used across darklight.
//
// Every logger returned by New wraps its handler in a SecureHandler, which
// masks credentials before they are written: object storage keys, database
// and Redis passwords, and authorization headers captured from crawled pages.
// Connection strings are logged with the password replaced, so
//
//	logger.Error("connect failed", "dsn", "postgres://crawler:hunter2@db/darklight")
//
// prints dsn=postgres://crawler:***REDACTED***@db/darklight.
//
// The same logger is handed to tornago so embedded Tor output is sanitized too.
package log
