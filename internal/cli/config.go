package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/seltzinger/airsync/internal/config"
	"github.com/seltzinger/airsync/internal/types"
	"github.com/seltzinger/airsync/internal/utils"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration management",
	Long:  "Commands for managing airsync configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Args:  cobra.NoArgs,
	RunE:  runConfigShow,
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Long:  "Set a configuration value. Use 'config show' to see available keys",
	Args:  cobra.ExactArgs(2),
	RunE:  runConfigSet,
}

var configResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Reset configuration to defaults",
	Args:  cobra.NoArgs,
	RunE:  runConfigReset,
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configResetCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	flags := GetGlobalFlags()
	out := NewOutputWriter(flags.OutputFormat, flags.Quiet, flags.Verbose)

	return out.WriteSuccess("config.show", cfg)
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	flags := GetGlobalFlags()
	out := NewOutputWriter(flags.OutputFormat, flags.Quiet, flags.Verbose)

	loaded, err := config.Load()
	if err != nil {
		return failCode(out, "config.set", utils.ErrCodeConfigInvalid, err)
	}

	if err := applyConfigKey(loaded, args[0], args[1]); err != nil {
		return failCode(out, "config.set", utils.ErrCodeInvalidArgument, err)
	}

	if err := loaded.Save(); err != nil {
		return failCode(out, "config.set", utils.ErrCodeConfigInvalid, err)
	}

	return out.WriteSuccess("config.set", loaded)
}

func runConfigReset(cmd *cobra.Command, args []string) error {
	flags := GetGlobalFlags()
	out := NewOutputWriter(flags.OutputFormat, flags.Quiet, flags.Verbose)

	defaults := config.DefaultConfig()
	if err := defaults.Save(); err != nil {
		return failCode(out, "config.reset", utils.ErrCodeConfigInvalid, err)
	}

	return out.WriteSuccess("config.reset", defaults)
}

// applyConfigKey sets one configuration field from its string form.
// Range checks are left to Config.Validate on save.
func applyConfigKey(c *config.Config, key, value string) error {
	switch strings.ToLower(key) {
	case "deviceurl":
		c.DeviceURL = value
	case "remotedir":
		c.RemoteDir = value
	case "localdir":
		c.LocalDir = value
	case "defaultoutputformat":
		c.DefaultOutputFormat = types.OutputFormat(value)
	case "timeoutseconds":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("timeoutSeconds must be an integer")
		}
		c.TimeoutSeconds = n
	case "maxretries":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("maxRetries must be an integer")
		}
		c.MaxRetries = n
	case "retrydelayms":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("retryDelayMs must be an integer")
		}
		c.RetryDelayMs = n
	case "journalpath":
		c.JournalPath = value
	case "loglevel":
		c.LogLevel = value
	default:
		return fmt.Errorf("unknown configuration key %q", key)
	}
	return nil
}
