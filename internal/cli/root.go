// Package cli provides the command-line interface for sourcify-sync.
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/sourcifyeth/sourcify-sync/internal/aria2"
	"github.com/sourcifyeth/sourcify-sync/internal/config"
	"github.com/sourcifyeth/sourcify-sync/internal/core"
	"github.com/sourcifyeth/sourcify-sync/internal/logging"
	"github.com/sourcifyeth/sourcify-sync/internal/manifest"
)

var (
	// Global flags
	cfgFile               string
	downloadDir           string
	manifestURL           string
	concurrency           int
	runIntegrity          bool
	integrityRetries      int
	concurrentValidations int
	verbose               bool
	quiet                 bool
	logFile               string

	// Global logger
	logger *logging.Logger
)

// Version is set via -ldflags at release build.
var Version = "v1.2.0-dev"

// NewRootCmd creates the root command. The root command itself runs the
// sync; there are no subcommands.
func NewRootCmd(ctx context.Context) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "sourcify-sync",
		Short: "Mirror the Sourcify export manifest using aria2c",
		Long: `Sourcify Sync ` + Version + `
Downloads every file listed in the Sourcify export manifest into a local
directory, delegating transport to aria2c with a persistent session for
resume. Parquet files are structurally verified after download and
re-fetched up to a bounded number of retries.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logger = logging.New()
			switch {
			case verbose:
				logger.SetLevel(zerolog.DebugLevel)
			case quiet:
				logger.SetLevel(zerolog.WarnLevel)
			}
			if logFile != "" {
				if err := logger.WithFile(logFile); err != nil {
					logger.Warn().Err(err).Msg("Continuing without log file")
				}
			}
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSync(ctx)
		},
	}

	rootCmd.Flags().StringVarP(&cfgFile, "config", "c", "", "Configuration file path (default: config.toml)")
	rootCmd.Flags().StringVarP(&downloadDir, "download-dir", "d", "", "Override download directory from config")
	rootCmd.Flags().StringVarP(&manifestURL, "manifest-url", "m", "", "Override manifest URL from config")
	rootCmd.Flags().IntVarP(&concurrency, "concurrency", "j", 0, "Number of concurrent downloads")
	rootCmd.Flags().BoolVarP(&runIntegrity, "run-integrity", "r", false, "Verify existing files before downloading")
	rootCmd.Flags().IntVar(&integrityRetries, "integrity-retries", 0, "Retry bound for files failing integrity checks")
	rootCmd.Flags().IntVar(&concurrentValidations, "concurrent-validations", 0, "Concurrent parquet validations (default: CPU count)")
	rootCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output (shows debug messages)")
	rootCmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "Quiet mode (warnings and errors only)")
	rootCmd.Flags().StringVar(&logFile, "log-file", "", "Also write logs to file")
	rootCmd.MarkFlagsMutuallyExclusive("verbose", "quiet")

	rootCmd.Version = Version

	return rootCmd
}

// Execute runs the CLI and returns the process exit code.
func Execute() int {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		for sig := range sigChan {
			if sig != nil {
				fmt.Fprintf(os.Stderr, "\nReceived signal %v, stopping. Session is saved; run again to resume.\n", sig)
				cancel()
			}
		}
	}()
	defer func() {
		signal.Stop(sigChan)
		close(sigChan)
	}()

	if err := NewRootCmd(ctx).Execute(); err != nil {
		var exitErr *exitCodeError
		if errors.As(err, &exitErr) {
			return exitErr.code
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

// exitCodeError carries a specific process exit code out of RunE.
type exitCodeError struct {
	code int
	err  error
}

func (e *exitCodeError) Error() string { return e.err.Error() }
func (e *exitCodeError) Unwrap() error { return e.err }

// runSync executes one synchronization run end to end.
func runSync(ctx context.Context) error {
	logger.Debug().Msg("Loading configuration")
	cfg, err := config.Load(cfgFile, config.Overrides{
		DownloadDir:           downloadDir,
		ManifestURL:           manifestURL,
		ConcurrentDownloads:   concurrency,
		IntegrityRetryCount:   integrityRetries,
		ConcurrentValidations: concurrentValidations,
	})
	if err != nil {
		return err
	}
	defer logger.Close()

	logger.Info().Str("url", cfg.ManifestURL).Msg("Manifest")
	logger.Info().Str("dir", cfg.DownloadDir).Msg("Download directory")
	logger.Info().Int("downloads", cfg.ConcurrentDownloads).Msg("Concurrency")
	logger.Info().Bool("enabled", cfg.IntegrityCheck).Int("retries", cfg.IntegrityRetryCount).Msg("Integrity check")
	if runIntegrity {
		logger.Info().Msg("Pre-download integrity check enabled")
	}

	logger.Debug().Msg("Fetching manifest")
	entries, err := manifest.Fetch(ctx, cfg.ManifestURL)
	if err != nil {
		return err
	}
	logger.Info().Int("files", len(entries)).Msg("Manifest loaded")

	engine := core.NewEngine(cfg, logger)
	result, runErr := engine.Run(ctx, entries, runIntegrity)

	printSummary(result)

	if runErr != nil {
		var transferErr *aria2.Error
		if errors.As(runErr, &transferErr) && transferErr.ExitCode > 0 {
			logger.Warn().Int("exit_code", transferErr.ExitCode).Msg("aria2c failed")
			logger.Info().Msg("Session saved. Run again to resume incomplete downloads.")
			return &exitCodeError{code: transferErr.ExitCode, err: runErr}
		}
		return runErr
	}

	if len(result.Residual) > 0 {
		logger.Warn().Msg("Sync completed with errors")
		return &exitCodeError{code: 1, err: fmt.Errorf("%d files failed integrity checks after max retries", len(result.Residual))}
	}

	logger.Info().Msg("All files synced successfully")
	return nil
}

func printSummary(result *core.Result) {
	if result == nil {
		return
	}
	logger.Info().Msg("==================================================")
	logger.Info().Msg("Download Summary")
	logger.Info().Msg("==================================================")
	logger.Infof("Total files in manifest: %d", result.TotalFiles)
	logger.Infof("Already complete: %d", result.Skipped)
	logger.Infof("Downloaded/resumed: %d", result.Transferred)
	if result.IntegrityRetries > 0 {
		logger.Infof("Integrity retries: %d", result.IntegrityRetries)
	}
	if len(result.Residual) > 0 {
		logger.Warnf("Integrity failures: %d", len(result.Residual))
		for _, f := range result.Residual {
			logger.Warnf("  %s: %s", f.OutputName, f.Reason)
		}
	}
}
