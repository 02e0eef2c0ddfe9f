package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/muurk/btscan/internal/config"
	"github.com/muurk/btscan/internal/logging"
	"github.com/muurk/btscan/internal/radio"
	"github.com/muurk/btscan/internal/report"
	"github.com/muurk/btscan/internal/server"
	"github.com/muurk/btscan/internal/session"
	"github.com/muurk/btscan/internal/tui"
	"github.com/muurk/btscan/internal/ui"
)

// logFileName is written next to the config file while the TUI is open.
const logFileName = "btscan.log"

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// watchCmd opens the interactive scan screen
var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Open the interactive scan screen",
	Long: `Open a full-screen view with a scan toggle and a live device list.

Press s or space to start and stop a scan, arrow keys to move through the
list and q to quit. Consent and adapter power questions are asked on screen.
Logs go to btscan.log in the config directory so they do not disturb the
screen.`,
	Example: `  # Open the scan screen (also the default with no command)
  btscan watch

  # Use the simulated radio and start scanning right away
  btscan watch --backend sim --start`,
	RunE: runWatch,
}

var watchStart bool

func init() {
	watchCmd.Flags().BoolVar(&watchStart, "start", false, "Start a scan as soon as the screen opens")
}

func runWatch(cmd *cobra.Command, args []string) error {
	if !ui.IsTerminal() {
		return errors.New("the scan screen needs an interactive terminal; use 'btscan scan' instead")
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	path, err := resolveConfigPath()
	if err != nil {
		return err
	}
	logPath := filepath.Join(filepath.Dir(path), logFileName)
	if err := os.MkdirAll(filepath.Dir(logPath), 0700); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}
	if err := logging.InitializeTo(logLevel, logPath); err != nil {
		return err
	}

	ctx, stop := signalContext()
	defer stop()

	bridge := tui.NewBridge()
	a, err := startSession(ctx, cfg, consentAsker(bridge), bridge)
	if err != nil {
		return err
	}
	defer a.Close()

	if watchStart {
		a.ctrl.Start()
	}
	return tui.Run(ctx, a.ctrl, bridge, a.backend.Name, cfg.Scan.Timeout)
}

// scanCmd runs one scan and prints the result
var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Run one scan and print the devices found",
	Long: `Run a single scan and print the discovered devices.

The scan ends after scan.timeout or on Ctrl+C, whichever comes first. If the
adapter is off or scan consent is required, you are asked on the terminal;
pass --yes to agree without a prompt.`,
	Example: `  # Scan for 15 seconds (default)
  btscan scan

  # Quick 5-second scan on the simulated radio
  btscan scan --timeout 5s --backend sim

  # JSON output for scripting
  btscan scan --json --yes`,
	RunE: runScan,
}

var scanJSON bool

func init() {
	scanCmd.Flags().BoolVar(&scanJSON, "json", false, "Print the result as JSON")
}

// scanWaiter captures the outcome of the first scan attempt.
type scanWaiter struct {
	session.NopObserver
	ended  chan session.Result
	failed chan *session.Error
}

func newScanWaiter() *scanWaiter {
	return &scanWaiter{
		ended:  make(chan session.Result, 1),
		failed: make(chan *session.Error, 1),
	}
}

func (w *scanWaiter) ScanEnded(result session.Result) {
	select {
	case w.ended <- result:
	default:
	}
}

func (w *scanWaiter) ScanFailed(err *session.Error) {
	select {
	case w.failed <- err:
	default:
	}
}

func runScan(cmd *cobra.Command, args []string) error {
	if err := logging.Initialize(logLevel); err != nil {
		return err
	}
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	ctx, stop := signalContext()
	defer stop()

	out := cmd.OutOrStdout()
	width := ui.GetTerminalWidth()
	if !scanJSON {
		fmt.Fprintln(out, ui.RenderHeader("Device Scan", "btscan scan", []ui.Detail{
			{Key: "Backend", Value: cfg.Scan.Backend},
			{Key: "Timeout", Value: cfg.Scan.Timeout.String()},
			{Key: "Dedup", Value: cfg.Scan.Dedup},
		}, width))
		fmt.Fprintln(out)
	}

	waiter := newScanWaiter()
	a, err := startSession(ctx, cfg, consentAsker(radio.NewTerminalAsker()), waiter)
	if err != nil {
		return err
	}
	defer a.Close()

	a.ctrl.Start()

	select {
	case res := <-waiter.ended:
		return printScan(out, res, width)
	case failure := <-waiter.failed:
		return printFailure(out, failure, width)
	case <-ctx.Done():
		// The loop ends the running scan on its way out.
		<-a.ctrl.Done()
		select {
		case res := <-waiter.ended:
			return printScan(out, res, width)
		default:
			return ctx.Err()
		}
	}
}

func printScan(out io.Writer, res session.Result, width int) error {
	if scanJSON {
		return writeJSON(out, report.NewScan(res, time.Now()))
	}
	if len(res.Devices) > 0 {
		ui.Table{Out: out, Color: ui.IsTerminal()}.Print(res.Devices)
		fmt.Fprintln(out)
	}
	fmt.Fprintln(out, ui.RenderScanResult(res, width))
	return nil
}

func printFailure(out io.Writer, failure *session.Error, width int) error {
	if scanJSON {
		if err := writeJSON(out, report.NewFailure(failure, time.Now())); err != nil {
			return err
		}
	} else {
		fmt.Fprintln(out, ui.RenderFailure(failure, width))
	}
	return fmt.Errorf("scan failed: %w", failure)
}

func writeJSON(out io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	_, err = fmt.Fprintln(out, string(data))
	return err
}

// serveCmd exposes the session over HTTP and WebSocket
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the scan session over HTTP and WebSocket",
	Long: `Run a discovery session behind a small HTTP API.

Endpoints:
  GET  /api/scan          current state, devices and counters
  POST /api/scan/start    start a scan
  POST /api/scan/stop     stop the running scan
  POST /api/scan/toggle   start or stop
  GET  /ws                live session events
  GET  /healthz           liveness check

TLS is enabled when server.tls_cert and server.tls_key (or --tls-cert and
--tls-key) are set. The server has no interactive terminal, so scan consent
is refused unless --yes is given or scan.require_consent is false.`,
	Example: `  # Serve on the configured address (127.0.0.1:8787 by default)
  btscan serve --yes

  # Listen on all interfaces with TLS and mirror events to MQTT
  btscan serve --listen :8443 --tls-cert cert.pem --tls-key key.pem --mqtt`,
	RunE: runServe,
}

var (
	serveListen  string
	serveTLSCert string
	serveTLSKey  string
	serveStart   bool
)

func init() {
	serveCmd.Flags().StringVar(&serveListen, "listen", "", "Listen address (overrides server.listen)")
	serveCmd.Flags().StringVar(&serveTLSCert, "tls-cert", "", "Path to TLS certificate file (overrides server.tls_cert)")
	serveCmd.Flags().StringVar(&serveTLSKey, "tls-key", "", "Path to TLS private key file (overrides server.tls_key)")
	serveCmd.Flags().BoolVar(&serveStart, "start", false, "Start a scan as soon as the server is up")
}

func runServe(cmd *cobra.Command, args []string) error {
	level := firstNonEmpty(logLevel, os.Getenv(logging.LogLevelEnvVar), "info")
	if err := logging.Initialize(level); err != nil {
		return err
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if serveListen != "" {
		cfg.Server.Listen = serveListen
	}
	if serveTLSCert != "" || serveTLSKey != "" {
		cfg.Server.TLSCert = serveTLSCert
		cfg.Server.TLSKey = serveTLSKey
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, stop := signalContext()
	defer stop()

	hub := server.NewHub()
	a, err := startSession(ctx, cfg, consentAsker(nil), hub)
	if err != nil {
		return err
	}
	defer a.Close()

	srv, err := server.New(server.Config{
		Listen:   cfg.Server.Listen,
		CertPath: cfg.Server.TLSCert,
		KeyPath:  cfg.Server.TLSKey,
		Hub:      hub,
	}, a.ctrl)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	if serveStart {
		a.ctrl.Start()
	}
	logging.Info("Starting API server",
		zap.String("listen", cfg.Server.Listen),
		zap.Bool("tls", cfg.Server.TLSCert != ""),
	)
	return srv.Start(ctx)
}

// configCmd manages the config file
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the configuration file",
}

var configForce bool

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default configuration file",
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := resolveConfigPath()
		if err != nil {
			return fmt.Errorf("failed to get config path: %w", err)
		}
		created, err := config.Init(path, configForce)
		if err != nil {
			return err
		}
		if !created {
			fmt.Fprintf(cmd.OutOrStdout(), "%s Configuration already exists at %s (use --force to overwrite)\n", ui.WarningMarker, path)
			return nil
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s Wrote default configuration to %s\n", ui.SuccessMarker, path)
		return nil
	},
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the configuration file location",
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := resolveConfigPath()
		if err != nil {
			return fmt.Errorf("failed to get config path: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), path)
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	Long: `Print the configuration after defaults and command line overrides are
applied. A missing file shows the defaults.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		data, err := cfg.Marshal()
		if err != nil {
			return err
		}
		_, err = cmd.OutOrStdout().Write(data)
		return err
	},
}

func init() {
	configInitCmd.Flags().BoolVar(&configForce, "force", false, "Overwrite an existing file")

	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configPathCmd)
	configCmd.AddCommand(configShowCmd)
}
