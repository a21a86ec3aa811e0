// Package logging assembles the structured slog loggers used by pgsmod.
//
// It owns the console and JSON handlers, level parsing and output plumbing,
// and the attribute helpers shared by the pipeline and transformer. Logs are
// written to stderr by default because stdout may carry the rewritten
// subtitle stream. The package also provides a no-op logger for tests and
// wiring code that cannot fail.
//
// Prefer these constructors over hand-rolled slog setup so every component
// emits lines with the same shape.
package logging
