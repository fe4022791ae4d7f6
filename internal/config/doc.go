// Package config loads, normalizes, and validates audiomason configuration.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and parses the operator-facing preflight and
// pipeline step lists into their typed forms so an invalid order is rejected
// before any stage directory is touched.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical enums, and clear validation errors.
package config
