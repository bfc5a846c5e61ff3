// Package config loads, normalizes, and validates snapsort configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// SNAPSORT_EXIFTOOL. The Config type centralizes every knob the CLI needs,
// so source/destination trees, extension sets, and hashing behaviour are
// resolved in one pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized absolute paths, lowercased dotted extensions, and clear
// validation errors.
package config
