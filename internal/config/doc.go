// Package config builds the run configuration of the release pipeline once,
// at process start, from an optional YAML file, command-line flags and
// environment variables. Stages receive the resulting Config and never read
// flags or the environment themselves.
package config
