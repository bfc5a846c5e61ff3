// Package logging builds the slog loggers used across snapsort.
//
// Two output formats are supported: a compact console format
// (timestamp LEVEL component: message key=value ...) and machine-readable
// JSON. Log output goes to stderr and a file under the data directory so
// stdout remains free for progress display and tables.
package logging
