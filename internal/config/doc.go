// Package config loads server settings from defaults, an optional config.yaml
// and PANTOGNOSTIS_* environment variables, then validates them.
package config
