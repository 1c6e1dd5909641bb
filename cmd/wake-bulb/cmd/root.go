package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/wake-bulb/internal/config"
	"github.com/oshokin/wake-bulb/internal/logger"
	"github.com/oshokin/wake-bulb/internal/service/alarm"
	"github.com/oshokin/wake-bulb/internal/version"
)

// Exit statuses reported to the shell.
const (
	exitFailure    = 1
	exitConfig     = 2
	exitConnection = 3
)

var (
	// configPath stores the path to the configuration YAML file.
	configPath string
	// envFile stores the path to the dotenv file with the bulb secrets.
	envFile string
	// alarmOptions collects the tunable overrides from flags.
	//nolint:exhaustruct // Filled field by field from flags.
	alarmOptions = &alarm.Options{}
	// settleDelay backs the --settle flag; applied only when the flag is set.
	settleDelay = config.DefaultSettleDelay

	// rootCmd represents the base command for the sunrise alarm.
	rootCmd = &cobra.Command{
		Use:   "wake-bulb",
		Short: "Sunrise alarm for a Tuya smart bulb.",
		Long: `Gently wakes you by ramping a Tuya Wi-Fi bulb from 1% to 100% warm white.

Switch the bulb to colour mode in the app to disarm during the ramp.
If nobody reacts, the bulb strobes red and blue until you switch it back to
white mode or the escalation timeout passes. The bulb always ends on cold white.

Device secrets are read from BULB_DEVICE_ID, BULB_IP and BULB_LOCAL_KEY,
optionally loaded from a .env file.`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			defer logger.Sync()

			alarmOptions.ConfigPath = configPath
			alarmOptions.EnvFile = envFile

			// Zero is a valid settle delay, so only an explicit flag overrides the file.
			if cmd.Flags().Changed("settle") {
				alarmOptions.SettleDelay = &settleDelay
			}

			_, err := alarm.Run(ctx, alarmOptions)

			return err
		},
	}

	// initConfigCmd writes a settings file with the defaults.
	initConfigCmd = &cobra.Command{
		Use:   "init-config",
		Short: "Write a settings file with default values.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := config.Save(configPath, config.Default()); err != nil {
				return fmt.Errorf("%w: %w", alarm.ErrConfig, err)
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Settings written to %s\n", configPath)

			return nil
		},
	}
)

// Execute runs the wake-bulb CLI and exits with a status describing the failure.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(exitCode(err))
	}
}

// exitCode maps a run error to the process exit status.
func exitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, alarm.ErrConfig),
		errors.Is(err, config.ErrMissingCredentials),
		errors.Is(err, config.ErrInvalidCredentials):
		return exitConfig
	case errors.Is(err, alarm.ErrConnect):
		return exitConnection
	default:
		return exitFailure
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	// Setup command flags with consistent naming and descriptions.
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", config.DefaultConfigFilename, "path to settings file")

	flags := rootCmd.Flags()
	flags.StringVar(&envFile, "env-file", config.DefaultEnvFilename, "path to dotenv file with the bulb secrets")
	flags.DurationVarP(&alarmOptions.WakeDuration, "wake", "w", 0, "gentle wake duration (default from settings, 10m)")
	flags.DurationVarP(&alarmOptions.EscalationTimeout, "escalation", "e", 0,
		"strobe timeout, fractional minutes allowed as 2m30s (default from settings, 5m)")
	flags.StringVarP(&alarmOptions.Policy, "policy", "p", "", "what a manual power-off means: reassert or terminate")
	flags.DurationVar(&settleDelay, "settle", config.DefaultSettleDelay, "pause after power-on before the first poll")
	flags.DurationVar(&alarmOptions.StrobeInterval, "strobe-interval", 0, "how long each strobe colour is held, at least 500ms")
	flags.StringVarP(&alarmOptions.LogLevel, "log-level", "l", "", "log level: debug, info, warn or error")

	rootCmd.AddCommand(initConfigCmd)
}
