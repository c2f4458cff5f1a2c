package main

import (
	"Go2SessionSpectra/internal/config"
	"Go2SessionSpectra/internal/logger"
	"Go2SessionSpectra/internal/model"
	"Go2SessionSpectra/internal/publisher"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "Path to the configuration file.")
	url := flag.String("url", "", "NATS server URL (overrides sinks.nats.url).")
	subject := flag.String("subject", "", "Subject to subscribe to (overrides sinks.nats.subject).")
	verbose := flag.Bool("v", false, "Print every aggregated row, not just the summary.")
	flag.Parse()

	if err := run(*configPath, *url, *subject, *verbose); err != nil {
		fmt.Fprintf(os.Stderr, "ss-watch: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath, url, subject string, verbose bool) error {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log, err := logger.Init(cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to init logger: %w", err)
	}

	natsCfg := cfg.Sinks.NATS
	if url != "" {
		natsCfg.URL = url
	}
	if subject != "" {
		natsCfg.Subject = subject
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := watch(ctx, natsCfg, os.Stdout, verbose, logger.WithComponent("subscriber")); err != nil {
		return err
	}

	log.Info().Msg("Shutting down subscriber")
	return nil
}

// watch prints every view received on the configured subject until ctx is
// done. The subscription is always closed before watch returns.
func watch(ctx context.Context, cfg config.NATSConfig, out io.Writer, verbose bool, log zerolog.Logger) error {
	sub, err := publisher.NewSubscriber(cfg, log)
	if err != nil {
		return err
	}
	defer sub.Close()

	err = sub.Start(func(v model.View) {
		printView(out, v, verbose)
	})
	if err != nil {
		return err
	}

	<-ctx.Done()
	return nil
}

func printView(w io.Writer, v model.View, verbose bool) {
	offline := 0
	for _, d := range v.Devices {
		if !d.Reachable {
			offline++
		}
	}
	fmt.Fprintf(w, "%s round=%d users=%d ppp=%d socks=%d devices=%d offline=%d\n",
		v.PublishedAt.Local().Format(time.DateTime), v.Round,
		v.Summary.Total, v.Summary.PPP, v.Summary.SOCKS, len(v.Devices), offline)

	if !verbose {
		return
	}
	for _, r := range v.Rows {
		fmt.Fprintf(w, "  %-5s %-20s %-15s tx=%d rx=%d uptime=%s\n",
			r.Class, r.User, r.DeviceName, r.TxBytes, r.RxBytes, r.Uptime)
	}
}
