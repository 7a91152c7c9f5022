// Package config loads and watches shellbridge settings.
//
// Settings live in a single YAML file holding the logging setup, the
// interpreter bridge parameters, the circuit breaker thresholds and a set
// of named retry profiles. Loading applies defaults before validation, so
// a partial file only needs to state what differs from the standard setup.
// A Watcher can re-read the file on change and hand the new settings to a
// reload callback, which lets long-running callers pick up profile tuning
// without a restart.
package config
