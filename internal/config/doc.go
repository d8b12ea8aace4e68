// Package config loads, normalizes, and validates picgaz configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), and reads TOML files. The Config type carries the ordered list
// of deduplication plans together with the engine knobs every plan shares:
// worker count, hash chunk size, the repair confirmation phrase, and the
// reserved quarantine and manifest names.
//
// Always obtain settings through this package so downstream code receives
// absolute paths, canonical hash algorithm names, and clear validation errors.
package config
