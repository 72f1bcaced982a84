package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"devtoken/cmd/internal/passphrase"
	"devtoken/config"
	"devtoken/crypto"
	"devtoken/observability/logging"
	telemetry "devtoken/observability/otel"
)

func main() {
	configFile := flag.String("config", "./config.toml", "Path to the node configuration file")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	passSource := passphrase.NewSource(config.EnvKeystorePassphrase)
	if err := run(ctx, *configFile, passSource.Get); err != nil {
		fmt.Fprintf(os.Stderr, "stakerd: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, configFile string, pass func() (string, error)) error {
	cfg, err := config.Load(configFile, config.WithKeystorePassphraseSource(pass))
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	service := cfg.Observability.ServiceName
	logger := logging.Setup(service, cfg.Environment, logging.FileConfig{
		Path:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
		Debug:      cfg.Log.Debug,
	})

	telemetryCfg := telemetry.ConfigFromEnv(service, cfg.Environment, os.Getenv)
	telemetryCfg.Traces = telemetryCfg.Traces && cfg.Observability.Tracing
	shutdownTelemetry, err := telemetry.Init(ctx, telemetryCfg)
	if err != nil {
		return fmt.Errorf("initialise telemetry: %w", err)
	}
	defer func() {
		if shutdownTelemetry != nil {
			_ = shutdownTelemetry(context.Background())
		}
	}()

	secret, err := pass()
	if err != nil {
		return err
	}
	key, err := crypto.LoadFromKeystore(cfg.OperatorKeystorePath, secret)
	if err != nil {
		return fmt.Errorf("load operator keystore: %w", err)
	}
	operator := key.PubKey().Address()
	logger.Info("operator key loaded", "network", cfg.NetworkName, "operator", operator.String())

	d, err := newDaemon(ctx, cfg, operator, logger)
	if err != nil {
		return err
	}
	defer d.Close()

	if err := d.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
