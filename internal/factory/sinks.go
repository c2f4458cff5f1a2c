package factory

import (
	"Go2SessionSpectra/internal/alerter"
	"Go2SessionSpectra/internal/api"
	"Go2SessionSpectra/internal/config"
	"Go2SessionSpectra/internal/display"
	"Go2SessionSpectra/internal/health"
	"Go2SessionSpectra/internal/model"
	"Go2SessionSpectra/internal/notification"
	"Go2SessionSpectra/internal/publisher"
	"Go2SessionSpectra/internal/snapshot"
)

func init() {
	RegisterSink("terminal",
		func(cfg *config.Config) bool { return cfg.Sinks.Terminal.Enabled },
		func(cfg *config.Config, deps Deps) (model.Sink, error) {
			return display.NewTerminal(deps.Out, cfg.Sinks.Terminal), nil
		})

	RegisterSink("snapshot",
		func(cfg *config.Config) bool { return cfg.Sinks.Snapshot.Enabled },
		func(cfg *config.Config, _ Deps) (model.Sink, error) {
			return snapshot.NewWriter(cfg.Sinks.Snapshot)
		})

	RegisterSink("api",
		func(cfg *config.Config) bool { return cfg.Sinks.API.Enabled },
		func(cfg *config.Config, deps Deps) (model.Sink, error) {
			s := api.NewServer(cfg.Sinks.API, deps.Logger)
			if err := s.Start(); err != nil {
				return nil, err
			}
			return s, nil
		})

	RegisterSink("health",
		func(cfg *config.Config) bool { return cfg.Sinks.Health.Enabled },
		func(cfg *config.Config, deps Deps) (model.Sink, error) {
			s := health.NewServer(cfg.Sinks.Health, deps.Logger)
			if err := s.Start(); err != nil {
				return nil, err
			}
			return s, nil
		})

	RegisterSink("nats",
		func(cfg *config.Config) bool { return cfg.Sinks.NATS.Enabled },
		func(cfg *config.Config, deps Deps) (model.Sink, error) {
			return publisher.NewPublisher(cfg.Sinks.NATS, deps.Logger)
		})

	RegisterSink("alerter",
		func(cfg *config.Config) bool { return cfg.Sinks.Alerter.Enabled },
		func(cfg *config.Config, deps Deps) (model.Sink, error) {
			notifier := deps.Notifier
			if notifier == nil {
				notifier = notification.NewEmailNotifier(cfg.SMTP)
			}
			return alerter.NewAlerter(notifier, deps.Logger), nil
		})
}
