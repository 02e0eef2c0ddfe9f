package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/muurk/btscan/internal/config"
	"github.com/muurk/btscan/internal/logging"
	"github.com/muurk/btscan/internal/mqtt"
	"github.com/muurk/btscan/internal/radio"
	"github.com/muurk/btscan/internal/session"
)

// resolveConfigPath returns --config or the default config location.
func resolveConfigPath() (string, error) {
	if configPath != "" {
		return configPath, nil
	}
	return config.GetConfigPath()
}

// loadConfig reads the config file and applies command line overrides.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, err := resolveConfigPath()
	if err != nil {
		return nil, fmt.Errorf("failed to get config path: %w", err)
	}
	cfg, err := config.LoadFrom(path)
	if err != nil {
		return nil, err
	}

	if backend != "" {
		cfg.Scan.Backend = backend
	}
	if timeout > 0 {
		cfg.Scan.Timeout = timeout
	}
	if cmd.Flags().Changed("mqtt") {
		cfg.MQTT.Enabled = enableMQTT
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// app is a running discovery session with its radio and optional MQTT
// mirror.
type app struct {
	cfg     *config.Config
	backend *radio.Backend
	ctrl    *session.Controller

	client    *mqtt.Client
	publisher *mqtt.Publisher

	runErr chan error
}

// startSession opens the configured radio and runs a controller that
// notifies observers. When MQTT is enabled the publisher is notified first.
func startSession(ctx context.Context, cfg *config.Config, asker radio.Asker, observers ...session.Observer) (*app, error) {
	backend, err := radio.Open(cfg, asker)
	if err != nil {
		return nil, err
	}
	opts, err := backend.SessionOptions(cfg)
	if err != nil {
		backend.Close()
		return nil, err
	}

	a := &app{cfg: cfg, backend: backend, runErr: make(chan error, 1)}

	all := session.Observers{}
	if cfg.MQTT.Enabled {
		client, err := mqtt.Connect(cfg.MQTT)
		if err != nil {
			backend.Close()
			return nil, fmt.Errorf("failed to connect to MQTT broker: %w", err)
		}
		a.client = client
		a.publisher = mqtt.NewPublisher(client, client.Topics(), cfg.MQTT.QoS)
		all = append(all, a.publisher)
	}
	all = append(all, observers...)
	opts.Observer = all

	a.ctrl = session.New(opts)
	go func() {
		a.runErr <- a.ctrl.Run(ctx)
	}()

	logging.Info("Session started",
		zap.String("backend", backend.Name),
		zap.Duration("timeout", opts.Timeout),
		zap.Bool("mqtt", cfg.MQTT.Enabled),
	)
	return a, nil
}

// Close ends the session, flushes the MQTT mirror and releases the radio.
func (a *app) Close() {
	a.ctrl.Shutdown()
	if err := <-a.runErr; err != nil {
		logging.Debug("Session loop exited", zap.Error(err))
	}

	if a.publisher != nil {
		a.publisher.Close()
		if n := a.publisher.Dropped(); n > 0 {
			logging.Warn("MQTT messages dropped", zap.Uint64("count", n))
		}
	}
	if a.client != nil {
		if err := a.client.Close(); err != nil {
			logging.Warn("Failed to close MQTT client", zap.Error(err))
		}
	}
	if err := a.backend.Close(); err != nil {
		logging.Warn("Failed to close radio", zap.Error(err))
	}

	stats := a.ctrl.Stats()
	logging.Debug("Session closed",
		zap.Uint64("scans", stats.Scans),
		zap.Uint64("received", stats.Received),
		zap.Uint64("accepted", stats.Accepted),
		zap.Uint64("duplicates", stats.Duplicates),
		zap.Uint64("discarded", stats.Discarded),
	)
	logging.Sync()
}

// consentAsker answers yes when --yes is set, otherwise uses fallback.
func consentAsker(fallback radio.Asker) radio.Asker {
	if assumeYes {
		return radio.Always(true)
	}
	return fallback
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
