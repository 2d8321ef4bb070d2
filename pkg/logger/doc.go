// Package logger builds the process-wide structured logger. It wraps log/slog,
// picks a JSON or text handler by environment and tags every record with the
// service name and environment.
package logger
