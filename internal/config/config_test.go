package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"

	"github.com/oshokin/release-packager/internal/domain/release"
)

// TestValidate fills defaults and rejects bad values.
func TestValidate(t *testing.T) {
	t.Parallel()

	require.ErrorIs(t, Validate(nil), errConfigIsNotSet)

	cfg := new(Config)
	require.NoError(t, Validate(cfg))
	require.Equal(t, ".", cfg.ProjectDir)
	require.Equal(t, DefaultManifestFilename, cfg.Manifest)
	require.Equal(t, DefaultDistDir, cfg.DistDir)
	require.Equal(t, release.DefaultPatterns(), cfg.Include)

	cfg = &Config{Include: []string{"!only/exclusions/**"}}
	require.Error(t, Validate(cfg))

	cfg = &Config{DigestAlgorithm: "md5"}
	require.Error(t, Validate(cfg))

	cfg = &Config{LogLevel: "chatty"}
	require.ErrorIs(t, Validate(cfg), errBadLogLevel)
}

// TestPaths resolves relative paths under the project directory.
func TestPaths(t *testing.T) {
	t.Parallel()

	cfg := &Config{ProjectDir: "app", Manifest: "package.json", DistDir: "dist"}
	require.Equal(t, filepath.Join("app", "package.json"), cfg.ManifestPath())
	require.Equal(t, filepath.Join("app", "dist"), cfg.DistPath())

	abs := filepath.Join(t.TempDir(), "out")
	cfg.DistDir = abs
	require.Equal(t, abs, cfg.DistPath())
}

// TestLoad_ExplicitMissingFile fails when the requested file does not exist.
func TestLoad_ExplicitMissingFile(t *testing.T) {
	t.Parallel()

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

// TestLoad_UnknownField rejects typos in the configuration file.
func TestLoad_UnknownField(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "release-packager.yaml")
	require.NoError(t, os.WriteFile(path, []byte("dist_directory: out\n"), 0o600))

	_, err := Load(path)
	require.Error(t, err)
}

// TestSaveLoadRoundtrip ensures the configuration is persisted and loaded back correctly.
func TestSaveLoadRoundtrip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "release-packager.yaml")

	cfg := Default()
	cfg.DistDir = "out"
	cfg.Include = []string{"build/**", "!build/reports/**", "package.json"}
	cfg.DigestAlgorithm = "sha512"

	require.NoError(t, Save(path, cfg))

	loaded, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, cfg.DistDir, loaded.DistDir)
	require.Equal(t, cfg.Include, loaded.Include)
	require.Equal(t, cfg.DigestAlgorithm, loaded.DigestAlgorithm)
	require.Equal(t, release.Candidates{}, loaded.Candidates)
}

func newBoundViper(t *testing.T, args ...string) *viper.Viper {
	t.Helper()

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(flags)
	require.NoError(t, flags.Parse(args))

	v := viper.New()
	require.NoError(t, Bind(v, flags))

	return v
}

func emptyConfigFile(t *testing.T) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "release-packager.yaml")
	require.NoError(t, os.WriteFile(path, nil, 0o600))

	return path
}

// TestResolve_FlagsWinOverEnvironment checks selector precedence.
func TestResolve_FlagsWinOverEnvironment(t *testing.T) {
	t.Setenv(EnvOSName, "win32")
	t.Setenv(EnvCPUArch, "arm64")
	t.Setenv(EnvNodeJSVersion, "")
	t.Setenv(EnvNodeVersion, "20")

	cfg, err := Resolve(newBoundViper(t, "--os", "linux"), emptyConfigFile(t))
	require.NoError(t, err)
	require.Equal(t, release.Selectors{OS: "linux", Platform: "arm64", Runtime: "20"}, resolved(t, cfg))
}

// TestResolve_NodeEnvironmentOrder prefers nodejs_version over PCKG_NODE_VERSION.
func TestResolve_NodeEnvironmentOrder(t *testing.T) {
	t.Setenv(EnvOSName, "")
	t.Setenv(EnvCPUArch, "")
	t.Setenv(EnvNodeJSVersion, "18")
	t.Setenv(EnvNodeVersion, "20")

	cfg, err := Resolve(newBoundViper(t), emptyConfigFile(t))
	require.NoError(t, err)
	require.Equal(t, release.Selectors{Runtime: "18"}, resolved(t, cfg))
	require.Equal(t, []string{"", "18", "20"}, cfg.Candidates.Runtime)
}

// TestResolve_InvalidSelectorsBecomeUnset drops unsafe values without failing.
func TestResolve_InvalidSelectorsBecomeUnset(t *testing.T) {
	t.Setenv(EnvOSName, "../../etc")
	t.Setenv(EnvCPUArch, "x64; rm -rf /")
	t.Setenv(EnvNodeJSVersion, "")
	t.Setenv(EnvNodeVersion, "")

	cfg, err := Resolve(newBoundViper(t, "--node", "18 lts"), emptyConfigFile(t))
	require.NoError(t, err)
	require.True(t, resolved(t, cfg).IsGeneric())
}

// TestResolve_EmptyFlagFallsThroughToEnvironment treats --os= like an absent flag.
func TestResolve_EmptyFlagFallsThroughToEnvironment(t *testing.T) {
	t.Setenv(EnvOSName, "linux")
	t.Setenv(EnvCPUArch, "")
	t.Setenv(EnvNodeJSVersion, "")
	t.Setenv(EnvNodeVersion, "18")

	cfg, err := Resolve(newBoundViper(t, "--os=", "--node="), emptyConfigFile(t))
	require.NoError(t, err)
	require.Equal(t, []string{"", "linux"}, cfg.Candidates.OS)
	require.Equal(t, release.Selectors{OS: "linux", Runtime: "18"}, resolved(t, cfg))
}

func resolved(t *testing.T, cfg *Config) release.Selectors {
	t.Helper()

	sel, _ := cfg.Candidates.Resolve()

	return sel
}

// TestResolve_FlagsOverrideFile applies flag values over the configuration file.
func TestResolve_FlagsOverrideFile(t *testing.T) {
	t.Setenv(EnvOSName, "")
	t.Setenv(EnvCPUArch, "")
	t.Setenv(EnvNodeJSVersion, "")
	t.Setenv(EnvNodeVersion, "")
	t.Setenv(EnvLogLevel, "debug")

	path := filepath.Join(t.TempDir(), "release-packager.yaml")
	require.NoError(t, os.WriteFile(path, []byte("dist_dir: out\nproject_dir: app\n"), 0o600))

	cfg, err := Resolve(newBoundViper(t, "--dist-dir", "release"), path)
	require.NoError(t, err)
	require.Equal(t, "release", cfg.DistDir)
	require.Equal(t, "app", cfg.ProjectDir)
	require.Equal(t, "debug", cfg.LogLevel)
}
