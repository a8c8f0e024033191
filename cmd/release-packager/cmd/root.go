package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/oshokin/release-packager/internal/config"
	"github.com/oshokin/release-packager/internal/logger"
	"github.com/oshokin/release-packager/internal/service/packager"
	"github.com/oshokin/release-packager/internal/tracing"
	"github.com/oshokin/release-packager/internal/version"
)

// NewRootCommand builds the release-packager CLI with all subcommands attached.
func NewRootCommand() *cobra.Command {
	var (
		// configPath to the configuration YAML file.
		configPath string
		v          = viper.New()
	)

	rootCmd := &cobra.Command{
		Use:   "release-packager",
		Short: "Package a built project into a versioned, platform-qualified archive",
		Long: `Patches the project manifest with the target selectors, archives the
matched project files under dist/ and writes a .digest file next to every
file in dist/.

Selectors come from flags or from the environment:
  --os        PCKG_OS_NAME
  --platform  PCKG_CPU_ARCH
  --node      nodejs_version, PCKG_NODE_VERSION
Values outside [A-Za-z0-9_-] are ignored.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			cfg, err := config.Resolve(v, configPath)
			if err != nil {
				logger.ErrorKV(ctx, "Failed to load configuration", "error", err)
				return err
			}

			if level, ok := logger.ParseLogLevel(cfg.LogLevel); ok {
				logger.SetLevel(level)
			}

			logger.DebugKV(ctx, "Configuration loaded",
				"project_dir", cfg.ProjectDir, "dist_dir", cfg.DistPath(), "log_level", logger.Level())

			provider, err := tracing.New(cfg.Trace)
			if err != nil {
				logger.ErrorKV(ctx, "Failed to set up tracing", "error", err)
				return err
			}

			defer func() {
				if shutdownErr := provider.Shutdown(context.WithoutCancel(ctx)); shutdownErr != nil {
					logger.WarnKV(ctx, "Failed to flush traces", "error", shutdownErr)
				}
			}()

			options := &packager.Options{
				ProjectDir:      cfg.ProjectDir,
				ManifestPath:    cfg.ManifestPath(),
				DistDir:         cfg.DistPath(),
				Patterns:        cfg.Include,
				DigestAlgorithm: cfg.DigestAlgorithm,
				Candidates:      cfg.Candidates,
				Tracer:          provider.Tracer(),
			}

			_, err = packager.Run(ctx, options)

			return err
		},
	}

	// Setup command flags with consistent naming and descriptions.
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "",
		"path to configuration file (default \""+config.DefaultConfigFilename+"\" if present)")
	config.RegisterFlags(rootCmd.Flags())

	rootCmd.PreRunE = func(cmd *cobra.Command, _ []string) error {
		return config.Bind(v, cmd.Flags())
	}

	rootCmd.AddCommand(newConfigCommand(&configPath), newVerifyCommand())
	version.AttachCobraVersionCommand(rootCmd)

	return rootCmd
}

// Execute runs the release-packager CLI and exits with non-zero status on error.
func Execute() {
	if err := NewRootCommand().ExecuteContext(context.Background()); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
