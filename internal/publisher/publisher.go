// Package publisher ships published views over NATS and reads them back.
package publisher

import (
	"Go2SessionSpectra/internal/config"
	"Go2SessionSpectra/internal/model"
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
)

// CycleIDHeader carries the cycle identifier of the view in each message.
const CycleIDHeader = "Ss-Cycle-Id"

// Publisher is a sink that publishes every view to a NATS subject.
type Publisher struct {
	nc      *nats.Conn
	subject string
	logger  zerolog.Logger
}

// NewPublisher connects to the NATS server configured in cfg.
func NewPublisher(cfg config.NATSConfig, logger zerolog.Logger) (*Publisher, error) {
	nc, err := nats.Connect(cfg.URL, nats.Name("ss-monitor"))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS at %s: %w", cfg.URL, err)
	}
	logger.Info().Str("url", cfg.URL).Str("subject", cfg.Subject).Msg("Connected to NATS server")
	return &Publisher{nc: nc, subject: cfg.Subject, logger: logger}, nil
}

func (*Publisher) Name() string { return "nats" }

// Publish serializes view to JSON and publishes it on the configured subject.
func (p *Publisher) Publish(_ context.Context, view model.View) error {
	data, err := json.Marshal(view)
	if err != nil {
		return fmt.Errorf("failed to encode view: %w", err)
	}

	msg := nats.NewMsg(p.subject)
	msg.Header.Set(CycleIDHeader, view.CycleID)
	msg.Data = data

	if err := p.nc.PublishMsg(msg); err != nil {
		return fmt.Errorf("failed to publish view to %s: %w", p.subject, err)
	}
	return nil
}

// Close drains and closes the NATS connection.
func (p *Publisher) Close() error {
	if p.nc == nil {
		return nil
	}
	if err := p.nc.Drain(); err != nil {
		return fmt.Errorf("failed to drain NATS connection: %w", err)
	}
	p.logger.Info().Msg("NATS connection drained and closed")
	return nil
}
