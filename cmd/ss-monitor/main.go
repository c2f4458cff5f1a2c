package main

import (
	"Go2SessionSpectra/internal/config"
	"Go2SessionSpectra/internal/factory"
	"Go2SessionSpectra/internal/logger"
	"Go2SessionSpectra/internal/poller"
	"Go2SessionSpectra/internal/refresh"
	"Go2SessionSpectra/internal/registry"
	"Go2SessionSpectra/internal/routeros"
	"Go2SessionSpectra/internal/source"
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "Path to the configuration file.")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "ss-monitor: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	// 1. Load configuration
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log, err := logger.Init(cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to init logger: %w", err)
	}
	log.Info().Str("config", configPath).Msg("Starting ss-monitor")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Load the device list; polling cannot start without it
	reg, err := registry.Load(ctx, cfg.Registry, nil)
	if err != nil {
		return fmt.Errorf("failed to load device registry: %w", err)
	}
	log.Info().Int("devices", reg.Len()).Str("source", cfg.Registry.Source).Msg("Device registry loaded")

	// 3. Wire sources on top of the RouterOS transport
	transport := routeros.NewClient(cfg.RouterOS, logger.WithComponent("routeros"))
	sources := source.NewSet(source.NewPPP(transport), source.NewSOCKS(transport))
	p := poller.New(sources, cfg.Poller.Concurrency, logger.WithComponent("poller"))

	// 4. Build sinks
	sinks, err := factory.Create(cfg, factory.Deps{Out: os.Stdout, Logger: logger.WithComponent("sink")})
	if err != nil {
		return fmt.Errorf("failed to create sinks: %w", err)
	}
	defer func() {
		if err := sinks.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to close sinks")
		}
	}()

	// 5. Run until a shutdown signal arrives
	loop := refresh.New(cfg.Loop, p, reg, sinks, logger.WithComponent("refresh"))
	if err := loop.Run(ctx); err != nil {
		return fmt.Errorf("refresh loop failed: %w", err)
	}

	log.Info().Uint64("rounds", loop.Round()).Msg("Shutdown complete")
	return nil
}
