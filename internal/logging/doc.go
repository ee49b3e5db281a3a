// Package logging wires log/slog with the console and JSON handlers used by
// every framelift component, plus helpers for standardized attributes and
// progress log sampling.
package logging
