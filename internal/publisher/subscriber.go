package publisher

import (
	"Go2SessionSpectra/internal/config"
	"Go2SessionSpectra/internal/model"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
)

// ViewHandler processes a received view.
type ViewHandler func(view model.View)

// Subscriber receives views published by a Publisher.
type Subscriber struct {
	nc      *nats.Conn
	sub     *nats.Subscription
	subject string
	logger  zerolog.Logger
}

// NewSubscriber connects to the NATS server configured in cfg.
func NewSubscriber(cfg config.NATSConfig, logger zerolog.Logger) (*Subscriber, error) {
	nc, err := nats.Connect(cfg.URL, nats.Name("ss-watch"))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS at %s: %w", cfg.URL, err)
	}
	logger.Info().Str("url", cfg.URL).Msg("Connected to NATS server")
	return &Subscriber{nc: nc, subject: cfg.Subject, logger: logger}, nil
}

// Start subscribes to the subject and hands each decoded view to handler.
// Messages that fail to decode are logged and skipped.
func (s *Subscriber) Start(handler ViewHandler) error {
	sub, err := s.nc.Subscribe(s.subject, func(msg *nats.Msg) {
		var view model.View
		if err := json.Unmarshal(msg.Data, &view); err != nil {
			s.logger.Warn().
				Err(err).
				Str("cycle_id", msg.Header.Get(CycleIDHeader)).
				Msg("Failed to decode view")
			return
		}
		handler(view)
	})
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", s.subject, err)
	}
	s.sub = sub
	s.logger.Info().Str("subject", s.subject).Msg("Subscribed, waiting for views")
	return nil
}

// Close unsubscribes and closes the NATS connection.
func (s *Subscriber) Close() error {
	if s.sub != nil {
		if err := s.sub.Unsubscribe(); err != nil {
			s.logger.Warn().Err(err).Msg("Failed to unsubscribe")
		}
	}
	if s.nc != nil {
		s.nc.Close()
		s.logger.Info().Msg("NATS connection closed")
	}
	return nil
}
