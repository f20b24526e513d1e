// Package logging builds slog loggers for the bot and provides the shared
// attribute helpers used across components.
package logging
