package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/oshokin/release-packager/internal/domain/release"
	"github.com/oshokin/release-packager/internal/logger"
	"github.com/oshokin/release-packager/internal/service/checksum"
	"github.com/oshokin/release-packager/internal/tracing"
)

// Config holds everything one pipeline run needs.
type Config struct {
	// ProjectDir is the root of the built project tree.
	ProjectDir string `yaml:"project_dir"`
	// Manifest is the manifest path, relative to ProjectDir unless absolute.
	Manifest string `yaml:"manifest"`
	// DistDir is the distribution directory, relative to ProjectDir unless absolute.
	DistDir string `yaml:"dist_dir"`
	// Include lists the inclusion patterns; "!" marks exclusions.
	Include []string `yaml:"include"`
	// DigestAlgorithm names the checksum algorithm (sha256, sha384, sha512).
	DigestAlgorithm string `yaml:"digest_algorithm"`
	// LogLevel is the minimum log level.
	LogLevel string `yaml:"log_level"`
	// Trace configures span export.
	Trace tracing.Config `yaml:"trace"`
	// Candidates are the raw selector values from flags and environment, never from the file.
	Candidates release.Candidates `yaml:"-"`
}

const (
	// DefaultConfigFilename is read when present and no --config is given.
	DefaultConfigFilename = "release-packager.yaml"

	// DefaultManifestFilename is the manifest inside the project directory.
	DefaultManifestFilename = "package.json"

	// DefaultDistDir is the distribution directory inside the project directory.
	DefaultDistDir = "dist"

	// DefaultFilePermissions is used when writing a configuration file.
	DefaultFilePermissions = 0o644
)

var (
	errConfigIsNotSet = errors.New("configuration is not set")
	errBadLogLevel    = errors.New("unknown log level")
)

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		ProjectDir:      ".",
		Manifest:        DefaultManifestFilename,
		DistDir:         DefaultDistDir,
		Include:         release.DefaultPatterns(),
		DigestAlgorithm: string(checksum.DefaultAlgorithm),
		LogLevel:        "info",
		Trace:           tracing.Config{Exporter: tracing.ExporterNone},
	}
}

// Load reads the YAML file at path over the defaults.
// An empty path means DefaultConfigFilename, which may be absent;
// an explicitly given path must exist.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		path = DefaultConfigFilename
	}

	cfg := Default()

	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		if !explicit && errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}

		return nil, fmt.Errorf("read config: %w", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(contents))
	dec.KnownFields(true)

	if err = dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	return cfg, nil
}

// Save writes cfg to path as YAML.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if path == "" {
		path = DefaultConfigFilename
	}

	if err := Validate(cfg); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err = os.WriteFile(filepath.Clean(path), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write config: %w", err)
	}

	return nil
}

// Validate fills empty fields with defaults and checks the rest.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	defaults := Default()

	if cfg.ProjectDir == "" {
		cfg.ProjectDir = defaults.ProjectDir
	}

	if cfg.Manifest == "" {
		cfg.Manifest = defaults.Manifest
	}

	if cfg.DistDir == "" {
		cfg.DistDir = defaults.DistDir
	}

	if len(cfg.Include) == 0 {
		cfg.Include = defaults.Include
	}

	if err := release.ValidatePatterns(cfg.Include); err != nil {
		return fmt.Errorf("include: %w", err)
	}

	if _, err := checksum.ParseAlgorithm(cfg.DigestAlgorithm); err != nil {
		return err
	}

	if _, ok := logger.ParseLogLevel(cfg.LogLevel); !ok {
		return fmt.Errorf("%w: %q", errBadLogLevel, cfg.LogLevel)
	}

	return nil
}

// ManifestPath returns the manifest location.
func (c *Config) ManifestPath() string {
	return underProject(c.ProjectDir, c.Manifest)
}

// DistPath returns the distribution directory location.
func (c *Config) DistPath() string {
	return underProject(c.ProjectDir, c.DistDir)
}

func underProject(projectDir, path string) string {
	if filepath.IsAbs(path) {
		return filepath.Clean(path)
	}

	return filepath.Join(projectDir, path)
}
