// Package config loads and validates Vigil Core configuration.
//
// Configuration is layered: hardcoded defaults, then the YAML file, then
// VIGIL_* environment variable overrides. Load returns a validated Config
// or an error describing the first problem found.
package config
