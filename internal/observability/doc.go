// Package observability provides structured logging for the annotation
// client and CLI.
//
// Logging is zap-based. The level and output format (json or console) come
// from the application configuration.
package observability
