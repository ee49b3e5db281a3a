// Package config loads, normalizes, and validates the TOML configuration
// file and derives the per-run Settings snapshot from it.
package config
