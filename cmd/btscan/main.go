// Btscan discovers nearby wireless devices and reports their signal strength.
//
// A discovery session scans for a fixed time, collects each device once and
// classifies its RSSI. Sessions can be driven from an interactive screen, a
// one-shot command or an HTTP/WebSocket API, and can mirror their events to
// an MQTT broker.
//
// Usage:
//
//	btscan [command] [flags]
//
// Running without arguments opens the interactive scan screen.
// See 'btscan --help' for available commands.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/muurk/btscan/internal/config"
	"github.com/muurk/btscan/internal/version"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// Global flags
var (
	configPath string
	backend    string
	logLevel   string
	timeout    time.Duration
	enableMQTT bool
	assumeYes  bool
)

var rootCmd = &cobra.Command{
	Use:   "btscan",
	Short: "Nearby device discovery",
	Long: `Scan for nearby wireless devices and rate their signal strength.

Each scan runs for a fixed time (scan.timeout, 15s by default) or until it is
stopped. Devices are listed in the order they were first seen, with the RSSI
reading classified as Excellent, Good, Fair or Poor.

If no command is specified, the interactive scan screen opens.`,
	Version:       version.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runWatch,
}

func init() {
	// Disable automatic completion command generation
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default is the OS config dir, see 'btscan config path')")
	rootCmd.PersistentFlags().StringVar(&backend, "backend", "", fmt.Sprintf("Discovery backend %v (overrides scan.backend)", config.Backends))
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error); silent when unset")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 0, "Scan duration (overrides scan.timeout)")
	rootCmd.PersistentFlags().BoolVar(&enableMQTT, "mqtt", false, "Publish session events to the configured MQTT broker")
	rootCmd.PersistentFlags().BoolVarP(&assumeYes, "yes", "y", false, "Answer yes to scan consent and adapter power questions")

	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}

var versionJSON bool

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	RunE: func(cmd *cobra.Command, args []string) error {
		info := version.Get()
		if versionJSON {
			data, err := json.MarshalIndent(info, "", "  ")
			if err != nil {
				return fmt.Errorf("failed to marshal JSON: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return nil
		}
		fmt.Fprintf(cmd.OutOrStdout(), "btscan %s (%s, %s)\n", version.Full(), info.GoVersion, info.Platform)
		return nil
	},
}

func init() {
	versionCmd.Flags().BoolVar(&versionJSON, "json", false, "Print version information as JSON")
}
