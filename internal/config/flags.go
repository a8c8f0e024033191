package config

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/oshokin/release-packager/internal/domain/release"
)

// Keys shared by flags, environment bindings and viper lookups.
const (
	KeyOS              = "os"
	KeyPlatform        = "platform"
	KeyNode            = "node"
	KeyProjectDir      = "project-dir"
	KeyManifest        = "manifest"
	KeyDistDir         = "dist-dir"
	KeyDigestAlgorithm = "digest-algorithm"
	KeyLogLevel        = "log-level"
	KeyTrace           = "trace"
	KeyTraceFile       = "trace-file"
)

// Environment variables read by the pipeline.
const (
	EnvOSName        = "PCKG_OS_NAME"
	EnvCPUArch       = "PCKG_CPU_ARCH"
	EnvNodeJSVersion = "nodejs_version"
	EnvNodeVersion   = "PCKG_NODE_VERSION"
	EnvLogLevel      = "PCKG_LOG_LEVEL"
)

// RegisterFlags declares the packaging flags on flags.
func RegisterFlags(flags *pflag.FlagSet) {
	flags.String(KeyOS, "", "target operating system tag (env "+EnvOSName+")")
	flags.String(KeyPlatform, "", "target CPU architecture tag (env "+EnvCPUArch+")")
	flags.String(KeyNode, "", "target Node.js version (env "+EnvNodeJSVersion+", "+EnvNodeVersion+")")
	flags.String(KeyProjectDir, "", "project directory to package (default \".\")")
	flags.String(KeyManifest, "", "manifest path relative to the project directory (default \""+DefaultManifestFilename+"\")")
	flags.String(KeyDistDir, "", "distribution directory relative to the project directory (default \""+DefaultDistDir+"\")")
	flags.String(KeyDigestAlgorithm, "", "checksum algorithm: sha256, sha384 or sha512 (default \"sha256\")")
	flags.String(KeyLogLevel, "", "log level: debug, info, warn, error (env "+EnvLogLevel+")")
	flags.String(KeyTrace, "", "trace exporter: none, stdout or file")
	flags.String(KeyTraceFile, "", "output file of the file trace exporter")
}

// Bind connects v to flags and to the environment. Selector flags and their
// environment variables are bound under separate keys so that a flag set to an
// empty value still falls through to the environment.
func Bind(v *viper.Viper, flags *pflag.FlagSet) error {
	if err := v.BindPFlags(flags); err != nil {
		return fmt.Errorf("bind flags: %w", err)
	}

	if err := v.BindEnv(KeyLogLevel, EnvLogLevel); err != nil {
		return fmt.Errorf("bind env %s: %w", EnvLogLevel, err)
	}

	for _, envs := range selectorEnvs {
		for _, env := range envs {
			if err := v.BindEnv(envKey(env), env); err != nil {
				return fmt.Errorf("bind env %s: %w", env, err)
			}
		}
	}

	return nil
}

// selectorEnvs lists the environment variables of each selector flag in priority order.
//
//nolint:gochecknoglobals // Read-only binding table.
var selectorEnvs = map[string][]string{
	KeyOS:       {EnvOSName},
	KeyPlatform: {EnvCPUArch},
	KeyNode:     {EnvNodeJSVersion, EnvNodeVersion},
}

func envKey(env string) string {
	return "env-" + strings.ToLower(env)
}

// candidates returns the raw values of a selector: the flag first, then its environment variables.
func candidates(v *viper.Viper, key string) []string {
	envs := selectorEnvs[key]
	values := make([]string, 0, len(envs)+1)
	values = append(values, v.GetString(key))

	for _, env := range envs {
		values = append(values, v.GetString(envKey(env)))
	}

	return values
}

// Resolve loads the configuration file and applies flag and environment
// values from v on top of it. Selector values are collected raw; the
// pipeline resolves and sanitizes them.
func Resolve(v *viper.Viper, configPath string) (*Config, error) {
	cfg, err := Load(configPath)
	if err != nil {
		return nil, err
	}

	overrides := map[string]*string{
		KeyProjectDir:      &cfg.ProjectDir,
		KeyManifest:        &cfg.Manifest,
		KeyDistDir:         &cfg.DistDir,
		KeyDigestAlgorithm: &cfg.DigestAlgorithm,
		KeyLogLevel:        &cfg.LogLevel,
		KeyTrace:           &cfg.Trace.Exporter,
		KeyTraceFile:       &cfg.Trace.FilePath,
	}

	for key, field := range overrides {
		if value := v.GetString(key); value != "" {
			*field = value
		}
	}

	cfg.Candidates = release.Candidates{
		OS:       candidates(v, KeyOS),
		Platform: candidates(v, KeyPlatform),
		Runtime:  candidates(v, KeyNode),
	}

	if err = Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}
