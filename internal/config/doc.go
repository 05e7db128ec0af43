// Package config loads, normalizes, and validates tunegrab configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, resolves audio presets, and honours
// environment fallbacks such as TUNEGRAB_LIBRARY_DIR and HTTPS_PROXY. The
// Config type centralizes every knob the CLI and batch pipeline need.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
