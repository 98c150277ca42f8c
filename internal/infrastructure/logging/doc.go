// Package logging provides the structured logger used across Vigil Core.
//
// It wraps log/slog with level parsing, JSON/text output selection, and
// default service/version attributes. Packages that log declare their own
// small Logger interface and accept *logging.Logger (or any slog-shaped
// implementation) via their constructors.
package logging
