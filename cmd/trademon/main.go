package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

func main() {
	if err := buildRoot().Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// GlobalFlags holds persistent flags shared by all commands.
type GlobalFlags struct {
	ConfigPath string
}

// EngineFlags holds flags for engine subcommands that talk to a running
// server.
type EngineFlags struct {
	Port       int
	APIUrl     string
	APITimeout time.Duration
}

// TradesFlags holds flags for the trades command.
type TradesFlags struct {
	Limit      int
	APIUrl     string
	APITimeout time.Duration
}

// buildRoot creates the root command and wires all subcommands.
func buildRoot() *cobra.Command {
	globalFlags := &GlobalFlags{}

	root := &cobra.Command{
		Use:   "trademon",
		Short: "Embedded database lifecycle manager for the trading monitor",
		Long: `Trademon supervises the embedded database engine used by the
trading-account monitor: it initializes the data directory on first run,
recovers from stale lock artifacts left by crashes, and exposes the
lifecycle over a local HTTP API.

Examples:
  trademon serve --config=config.toml   # Run the server
  trademon engine start                 # Start the engine via a running server
  trademon engine status
  trademon secret encrypt --value=dbpassword`,
	}

	root.PersistentFlags().StringVar(&globalFlags.ConfigPath, "config", "", "path to TOML config file")

	root.AddCommand(
		createServeCommand(globalFlags),
		createEngineCommand(),
		createTradesCommand(),
		createSecretCommand(),
	)
	return root
}

// createEngineCommand groups the engine lifecycle subcommands.
func createEngineCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "engine",
		Short: "Control the embedded engine via a running server",
	}
	cmd.AddCommand(
		createEngineStartCommand(),
		createEngineStopCommand(),
		createEngineStatusCommand(),
	)
	return cmd
}

func createEngineStartCommand() *cobra.Command {
	flags := &EngineFlags{}
	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start the embedded engine",
		Long: `Ask the running trademon server to start the embedded engine.
Idempotent: when the engine is already up the cached connection URL is
printed again.

Examples:
  trademon engine start
  trademon engine start --port=5434`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEngineStart(*flags)
		},
	}
	cmd.Flags().IntVar(&flags.Port, "port", 0, "listening port (0 uses the server default)")
	addAPIFlags(cmd, &flags.APIUrl, &flags.APITimeout)
	return cmd
}

func createEngineStopCommand() *cobra.Command {
	flags := &EngineFlags{}
	cmd := &cobra.Command{
		Use:   "stop",
		Short: "Stop the embedded engine",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEngineStop(*flags)
		},
	}
	addAPIFlags(cmd, &flags.APIUrl, &flags.APITimeout)
	return cmd
}

func createEngineStatusCommand() *cobra.Command {
	flags := &EngineFlags{}
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show engine status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEngineStatus(*flags)
		},
	}
	addAPIFlags(cmd, &flags.APIUrl, &flags.APITimeout)
	return cmd
}

func createTradesCommand() *cobra.Command {
	flags := &TradesFlags{}
	cmd := &cobra.Command{
		Use:   "trades",
		Short: "List recent trades from the trading engine's store",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrades(*flags)
		},
	}
	cmd.Flags().IntVar(&flags.Limit, "limit", 0, "maximum number of trades (0 uses the server default)")
	addAPIFlags(cmd, &flags.APIUrl, &flags.APITimeout)
	return cmd
}

// createSecretCommand groups secret helpers used to prepare config values.
func createSecretCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "secret",
		Short: "Encrypt config secrets",
	}
	cmd.AddCommand(createSecretEncryptCommand())
	return cmd
}

func createSecretEncryptCommand() *cobra.Command {
	var value string
	cmd := &cobra.Command{
		Use:   "encrypt",
		Short: "Encrypt a value for use in password_encrypted",
		Long: `Encrypt a value with the key from ` + secretEnvHint + `.
The output is suitable for the engine.password_encrypted config field.

Example:
  trademon secret encrypt --value=dbpassword`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSecretEncrypt(value)
		},
	}
	cmd.Flags().StringVar(&value, "value", "", "plaintext to encrypt (required)")
	if err := cmd.MarkFlagRequired("value"); err != nil {
		panic(err)
	}
	return cmd
}

func addAPIFlags(cmd *cobra.Command, url *string, timeout *time.Duration) {
	cmd.Flags().StringVar(url, "api-url", "", "server URL (default http://127.0.0.1:8085)")
	cmd.Flags().DurationVar(timeout, "api-timeout", 30*time.Second, "request timeout")
}
