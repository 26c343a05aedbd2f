package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"github.com/ajitpratap0/tradepro/internal/app"
	"github.com/ajitpratap0/tradepro/internal/config"
)

func main() {
	configPath := flag.String("config", "", "Path to config file (default ./configs/config.yaml)")
	skipChecks := flag.Bool("skip-connectivity", false, "Skip Redis/NATS connectivity checks at startup")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	config.InitLogger(cfg.App.LogLevel, cfg.App.LogFormat)

	log.Info().
		Str("version", cfg.App.Version).
		Str("environment", cfg.App.Environment).
		Str("addr", cfg.API.GetAPIAddr()).
		Msg("Starting TradePro API")

	opts := config.DefaultValidatorOptions()
	opts.VerifyConnectivity = !*skipChecks
	if err := config.NewValidator(cfg, opts).ValidateStartup(context.Background()); err != nil {
		log.Fatal().Err(err).Msg("Startup validation failed")
	}

	a, err := app.New(cfg, log.Logger)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to wire components")
	}

	errChan := make(chan error, 2)

	metricsServer := a.MetricsServer()
	if metricsServer != nil {
		go func() {
			if err := metricsServer.Start(); err != nil {
				errChan <- err
			}
		}()
	}

	server := a.APIServer()
	go func() {
		if err := server.Start(); err != nil {
			errChan <- err
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		log.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
	case err := <-errChan:
		log.Error().Err(err).Msg("Server error")
	}

	log.Info().Msg("Initiating graceful shutdown...")
	ctx, cancel := context.WithTimeout(context.Background(), cfg.API.ShutdownTimeout)
	defer cancel()

	exitCode := 0
	if err := server.Stop(ctx); err != nil {
		log.Error().Err(err).Msg("Error stopping API server")
		exitCode = 1
	}
	if metricsServer != nil {
		if err := metricsServer.Shutdown(ctx); err != nil {
			log.Error().Err(err).Msg("Error stopping metrics server")
			exitCode = 1
		}
	}
	if err := a.Close(); err != nil {
		log.Error().Err(err).Msg("Error closing connections")
		exitCode = 1
	}

	log.Info().Msg("Shutdown complete")
	os.Exit(exitCode)
}
