package cli

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/seltzinger/airsync/internal/config"
	"github.com/seltzinger/airsync/internal/device"
	"github.com/seltzinger/airsync/internal/journal"
	"github.com/seltzinger/airsync/internal/sync"
	"github.com/seltzinger/airsync/internal/types"
	"github.com/seltzinger/airsync/internal/utils"
	"github.com/seltzinger/airsync/pkg/version"
)

var (
	globalFlags types.GlobalFlags
	cfg         *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "airsync",
	Short: "FlashAir sync tool - mirror files between a card and a local directory",
	Long: `airsync keeps a local directory and a FlashAir SD card in step over
the card's wireless HTTP interface. It can copy files in either
direction once, or watch both sides and mirror new files as they
appear.

All commands support JSON output for automation and scripting.`,
	Version:       version.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := validateGlobalFlags(); err != nil {
			return err
		}

		loaded, err := config.LoadFrom(globalFlags.Config)
		if err != nil {
			out := NewOutputWriter(globalFlags.OutputFormat, globalFlags.Quiet, globalFlags.Verbose)
			cliErr := utils.NewCLIError(utils.ErrCodeConfigInvalid, err.Error()).Build()
			if werr := out.WriteError("config.load", cliErr); werr != nil {
				return werr
			}
			return &exitError{code: utils.ExitConfig}
		}
		cfg = loaded
		applyConfig()
		initLogging()

		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Long:  "Print the version number of airsync",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(version.Get().String())
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&globalFlags.DeviceURL, "device-url", utils.DefaultDeviceURL, "Base URL of the card's HTTP interface")
	rootCmd.PersistentFlags().StringVar(&globalFlags.RemoteDir, "remote-dir", utils.DefaultRemoteDir, "Card directory to sync")
	rootCmd.PersistentFlags().StringVar(&globalFlags.LocalDir, "local-dir", utils.DefaultLocalDir, "Local directory to sync")
	rootCmd.PersistentFlags().StringVar((*string)(&globalFlags.OutputFormat), "output", "table", "Output format (json, table)")
	rootCmd.PersistentFlags().BoolVar(&globalFlags.JSON, "json", false, "Output in JSON format (alias for --output json)")
	rootCmd.PersistentFlags().BoolVarP(&globalFlags.Quiet, "quiet", "q", false, "Suppress non-essential output")
	rootCmd.PersistentFlags().BoolVarP(&globalFlags.Verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().BoolVar(&globalFlags.Debug, "debug", false, "Enable debug output")
	rootCmd.PersistentFlags().StringVar(&globalFlags.Config, "config", "", "Path to configuration file")

	// Add subcommands
	rootCmd.AddCommand(versionCmd)
}

func validateGlobalFlags() error {
	// Handle --json flag as alias for --output json
	if globalFlags.JSON {
		globalFlags.OutputFormat = types.OutputFormatJSON
	}

	if globalFlags.OutputFormat != types.OutputFormatJSON && globalFlags.OutputFormat != types.OutputFormatTable {
		return fmt.Errorf("invalid output format: %s", globalFlags.OutputFormat)
	}
	return nil
}

// applyConfig fills in every global flag the user left untouched from
// the loaded configuration. Explicit flags always win.
func applyConfig() {
	pf := rootCmd.PersistentFlags()
	if !pf.Changed("device-url") && cfg.DeviceURL != "" {
		globalFlags.DeviceURL = cfg.DeviceURL
	}
	if !pf.Changed("remote-dir") && cfg.RemoteDir != "" {
		globalFlags.RemoteDir = cfg.RemoteDir
	}
	if !pf.Changed("local-dir") && cfg.LocalDir != "" {
		globalFlags.LocalDir = cfg.LocalDir
	}
	if !pf.Changed("output") && !globalFlags.JSON && cfg.DefaultOutputFormat != "" {
		globalFlags.OutputFormat = cfg.DefaultOutputFormat
	}
}

func initLogging() {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})

	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = log.InfoLevel
	}
	if globalFlags.Verbose {
		level = log.DebugLevel
	}
	if globalFlags.Debug {
		level = log.TraceLevel
	}
	if globalFlags.Quiet {
		level = log.ErrorLevel
	}
	// Keep stdout machine-readable in JSON mode; logs go to stderr but
	// stay out of the way unless explicitly requested.
	if globalFlags.OutputFormat == types.OutputFormatJSON && !globalFlags.Verbose && !globalFlags.Debug {
		level = log.ErrorLevel
	}
	log.SetLevel(level)
}

// exitError carries a process exit status through cobra's error return.
// The envelope for the underlying failure has already been written by
// the time one of these surfaces.
type exitError struct {
	code int
}

func (e *exitError) Error() string {
	return fmt.Sprintf("exit status %d", e.code)
}

// classify maps an operational error onto its stable error code.
func classify(err error) types.CLIError {
	var interruptedErr *sync.InterruptedError
	var unsupportedErr *device.UnsupportedError
	var uploadErr *device.UploadError
	var paramErr *device.ParamError
	var statusErr *device.StatusError
	var urlErr *url.Error

	switch {
	case errors.As(err, &interruptedErr):
		return utils.NewCLIError(utils.ErrCodeTransferInterrupted, err.Error()).
			WithContext("path", interruptedErr.Path).
			WithRetryable(true).
			Build()
	case errors.As(err, &unsupportedErr):
		return utils.NewCLIError(utils.ErrCodeUploadUnsupported, err.Error()).
			WithDeviceDetail(unsupportedErr.Firmware).
			Build()
	case errors.As(err, &uploadErr):
		return utils.NewCLIError(utils.ErrCodeUploadRejected, err.Error()).
			WithDeviceDetail(uploadErr.Body).
			Build()
	case errors.As(err, &paramErr):
		return utils.NewCLIError(utils.ErrCodeInvalidParam, err.Error()).Build()
	case errors.As(err, &statusErr):
		return utils.NewCLIError(utils.ErrCodeDeviceStatus, err.Error()).
			WithHTTPStatus(statusErr.StatusCode).
			WithRetryable(statusErr.StatusCode >= 500).
			Build()
	case errors.Is(err, context.DeadlineExceeded):
		return utils.NewCLIError(utils.ErrCodeTimeout, err.Error()).
			WithRetryable(true).
			Build()
	case errors.Is(err, context.Canceled):
		return utils.NewCLIError(utils.ErrCodeCancelled, err.Error()).Build()
	case errors.As(err, &urlErr):
		return utils.NewCLIError(utils.ErrCodeDeviceUnreachable, err.Error()).
			WithRetryable(true).
			Build()
	default:
		return utils.NewCLIError(utils.ErrCodeUnknown, err.Error()).Build()
	}
}

// fail writes the error envelope and returns the exit status carrier
// that Execute turns into the process exit code.
func fail(out *OutputWriter, command string, err error) error {
	cliErr := classify(err)
	if werr := out.WriteError(command, cliErr); werr != nil {
		return werr
	}
	return &exitError{code: utils.GetExitCode(cliErr.Code)}
}

// failCode is fail with the error code chosen by the caller instead of
// classified from the error value.
func failCode(out *OutputWriter, command, code string, err error) error {
	cliErr := utils.NewCLIError(code, err.Error()).Build()
	if werr := out.WriteError(command, cliErr); werr != nil {
		return werr
	}
	return &exitError{code: utils.GetExitCode(code)}
}

// newDeviceClient builds a card client from the effective global flags.
// No request timeout is set here; short control commands bound
// themselves with opCtx and transfers run as long as the stream does.
func newDeviceClient() *device.Client {
	return device.NewClient(globalFlags.DeviceURL,
		device.WithRetry(cfg.MaxRetries, cfg.GetRetryDelay()))
}

// newSession binds a client to the directory pair being synced.
func newSession(dev sync.DeviceAPI, filters ...sync.Filter) *sync.Session {
	return sync.NewSession(dev,
		sync.WithLocalDir(globalFlags.LocalDir),
		sync.WithRemoteDir(globalFlags.RemoteDir),
		sync.WithFilters(filters...),
	)
}

// openJournal opens the transfer journal, or nil when history is
// unavailable. Sync commands carry on without it.
func openJournal(out *OutputWriter) *journal.Journal {
	path, err := cfg.GetJournalPath()
	if err != nil {
		out.Verbose("journal disabled: %v", err)
		return nil
	}
	j, err := journal.Open(path)
	if err != nil {
		log.WithError(err).Warn("journal unavailable, continuing without history")
		out.AddWarning(utils.ErrCodeJournalError, fmt.Sprintf("journal unavailable: %v", err), "warning")
		return nil
	}
	return j
}

// opCtx bounds one control request with the configured timeout.
func opCtx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), cfg.GetTimeout())
}

// Execute runs the root command and exits the process with the code of
// whatever failed.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		var ee *exitError
		if errors.As(err, &ee) {
			os.Exit(ee.code)
		}
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(utils.ExitUsage)
	}
}

// GetGlobalFlags returns the global flags
func GetGlobalFlags() types.GlobalFlags {
	return globalFlags
}
