// Package config loads, normalizes, and validates warden configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours the WARDEN_CONFIG environment
// fallback for the config location. The Config type centralizes every knob the
// launcher needs: the supervised command, run-as principal, pidfile and log
// locations, and lifecycle timing bounds.
//
// Always obtain settings through this package so downstream code receives
// absolute paths and clear validation errors before any process is touched.
package config
