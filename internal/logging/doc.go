// Package logging assembles structured slog loggers and the attribute helpers
// used across spotafy.
//
// It owns the console and JSON handlers, centralizes level and output
// plumbing, and exposes context-aware helpers so import code can tag log lines
// with correlation IDs, search terms, and stages. A no-op logger is provided
// for tests and wiring code that cannot fail.
package logging
