// Package config loads, normalizes, and validates spotafy configuration data.
//
// It supplies repository defaults rooted in the XDG base directories, expands
// user paths (including tilde shortcuts), reads TOML files, loads .env files
// and honours environment fallbacks such as SPOTIFY_CLIENT_ID. The Config type
// centralizes every knob the importer, reconciler, local search and CLI need.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
