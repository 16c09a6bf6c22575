// Empirlink is a command-line client for EmpirBus digital switching
// controllers.
//
// It connects to the controller's websocket, subscribes to every signal the
// hardware configuration lists, and shows live output state. It can also
// toggle, press and dim outputs, and find controllers with mDNS.
//
// Usage:
//
//	empirlink [command] [flags]
//
// See 'empirlink --help' for available commands.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/muurk/empirlink/internal/config"
	"github.com/muurk/empirlink/internal/logging"
	"github.com/muurk/empirlink/internal/version"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// Persistent flags
var (
	flagURL         string
	flagHost        string
	flagSecure      bool
	flagHardware    string
	flagSchema      string
	flagConfig      string
	flagLogLevel    string
	flagMetricsAddr string
	flagNoFetch     bool
)

// cfg is loaded before every command and has flag overrides applied
var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "empirlink",
	Short: "EmpirBus controller client",
	Long: `A command-line client for EmpirBus digital switching controllers.

Connects to the controller's websocket, keeps a live view of every signal,
and sends toggle, momentary and dimmer commands to outputs.

The controller address comes from --url or --host, or from the config file
($XDG_CONFIG_HOME/empirlink/config.yaml).`,
	Version:           version.Version,
	SilenceUsage:      true,
	PersistentPreRunE: loadConfig,
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logging.Sync()
	},
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flagURL, "url", "", "Full websocket URL (e.g., ws://192.168.1.1/ws)")
	pf.StringVar(&flagHost, "host", "", "Controller host[:port]; the URL is derived from it")
	pf.BoolVar(&flagSecure, "secure", false, "Use wss:// when deriving the URL from --host")
	pf.StringVar(&flagHardware, "hardware", "", "Local hardware-config.json")
	pf.StringVar(&flagSchema, "schema", "", "Local UI schema whose \"hardware\" object lists outputs")
	pf.BoolVar(&flagNoFetch, "no-fetch", false, "Do not fetch hardware from the controller's web server")
	pf.StringVar(&flagConfig, "config", "", "Config file (default $XDG_CONFIG_HOME/empirlink/config.yaml)")
	pf.StringVar(&flagLogLevel, "log-level", "", "Log level (debug, info, warn, error); silent when empty")
	pf.StringVar(&flagMetricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address (e.g., :9464)")

	rootCmd.AddCommand(versionCmd)
}

// loadConfig reads the config file and applies flag overrides.
func loadConfig(cmd *cobra.Command, args []string) error {
	loaded, err := config.Load(flagConfig)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("url") {
		loaded.Controller.URL = flagURL
	}
	if flags.Changed("host") {
		loaded.Controller.Host = flagHost
		if !flags.Changed("url") {
			loaded.Controller.URL = ""
		}
	}
	if flags.Changed("secure") {
		loaded.Controller.Secure = flagSecure
	}
	if flags.Changed("hardware") {
		loaded.HardwareConfig = flagHardware
	}
	if flags.Changed("schema") {
		loaded.Schema = flagSchema
	}
	if flagNoFetch {
		loaded.FetchFromController = false
	}
	if flags.Changed("log-level") {
		loaded.LogLevel = flagLogLevel
	}
	if flags.Changed("metrics-addr") {
		loaded.MetricsAddr = flagMetricsAddr
	}

	if err := logging.Initialize(loaded.LogLevel); err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}

	cfg = loaded
	return nil
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("empirlink %s\n", version.Full())
	},
}
