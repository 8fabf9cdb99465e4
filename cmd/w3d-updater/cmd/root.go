package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/wphicks/w3d-updater/internal/logger"
	"github.com/wphicks/w3d-updater/internal/service/engine"
	"github.com/wphicks/w3d-updater/internal/service/site"
	"github.com/wphicks/w3d-updater/internal/service/updater"
	"github.com/wphicks/w3d-updater/internal/version"
)

var (
	// configPath to the optional configuration YAML file.
	configPath string

	// branch overrides the configured remote branch.
	branch string

	// logLevel selects the minimum log level (debug, info, warn, error).
	logLevel string

	// installPath overrides the engine installation root.
	installPath string

	// pythonExecutable overrides the interpreter queried by `site`.
	pythonExecutable string

	// rootCmd updates the distribution working copy in place.
	rootCmd = &cobra.Command{
		Use:   "w3d-updater",
		Short: "Update the Writing3D distribution in place",
		Long: "Bring the Writing3D distribution to the latest remote revision, " +
			"via git fetch and hard reset when a git client is available, or by " +
			"replacing the directory from a zip snapshot otherwise. The revision " +
			"prior to the update is recorded for manual rollback.",
		Args: cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			ctx, stop := signalContext()
			defer stop()

			_, err := updater.Run(ctx, &updater.Options{
				ConfigPath: configPath,
				Branch:     branch,
			})

			return err
		},
	}

	// engineCmd installs the engine build required by the distribution.
	engineCmd = &cobra.Command{
		Use:   "engine",
		Short: "Download and install the engine build required by the distribution",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			ctx, stop := signalContext()
			defer stop()

			return engine.Run(ctx, &engine.Options{
				ConfigPath:  configPath,
				InstallPath: installPath,
			})
		},
	}

	// siteCmd registers the distribution with the embedded Python.
	siteCmd = &cobra.Command{
		Use:   "site",
		Short: "Register the distribution path in the embedded Python's site-packages",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			ctx, stop := signalContext()
			defer stop()

			return site.Run(ctx, &site.Options{
				ConfigPath:       configPath,
				PythonExecutable: pythonExecutable,
			})
		},
	}
)

// Execute runs the w3d-updater CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// signalContext applies the configured log level and sets up graceful
// shutdown on SIGINT/SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	if level, ok := logger.ParseLogLevel(logLevel); ok {
		logger.SetLevel(level)
	}

	return signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to configuration file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "minimum log level (debug, info, warn, error)")
	rootCmd.Flags().StringVarP(&branch, "branch", "b", "", "remote branch to reset to (defaults to configuration)")
	engineCmd.Flags().StringVar(&installPath, "install-path", "", "engine installation root (defaults to the script parent)")
	siteCmd.Flags().StringVar(&pythonExecutable, "python", "", "python interpreter to register with")

	rootCmd.AddCommand(engineCmd, siteCmd)
}
