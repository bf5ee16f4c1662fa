// Package config loads service configuration from a YAML file, environment
// variables and command line flags, and validates it before the server starts.
// Artifact paths are validated for presence only; whether the files load is
// decided at startup by the model package.
package config
