// Package config loads, normalizes, and validates pgsmod configuration.
//
// It supplies defaults, expands user paths (including tilde shortcuts),
// reads an optional TOML file and honours the PGSMOD_LOG_LEVEL environment
// override. Command-line flags take precedence over anything loaded here;
// the file only changes the defaults those flags start from.
package config
