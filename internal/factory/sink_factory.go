package factory

import (
	"Go2SessionSpectra/internal/config"
	"Go2SessionSpectra/internal/display"
	"Go2SessionSpectra/internal/model"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
)

var ErrNoSinks = errors.New("no sinks enabled")

// Deps carries the collaborators sinks may need beyond the configuration.
type Deps struct {
	// Out is where the terminal sink draws. Defaults to os.Stdout.
	Out io.Writer
	// Notifier overrides the SMTP notifier built for the alerter.
	Notifier model.Notifier
	Logger   zerolog.Logger
}

// SinkFactory builds one sink from the configuration.
type SinkFactory func(cfg *config.Config, deps Deps) (model.Sink, error)

// EnabledFunc reports whether a sink type is switched on in cfg.
type EnabledFunc func(cfg *config.Config) bool

type registration struct {
	name    string
	enabled EnabledFunc
	factory SinkFactory
}

// registry holds the sink types in registration order, which is also the
// order in which sinks receive each view.
var registry []registration

// RegisterSink registers a new sink type with its factory function.
func RegisterSink(name string, enabled EnabledFunc, factory SinkFactory) {
	for _, r := range registry {
		if r.name == name {
			panic(fmt.Sprintf("sink type '%s' already registered", name))
		}
	}
	registry = append(registry, registration{name: name, enabled: enabled, factory: factory})
}

// Names returns the registered sink types in order.
func Names() []string {
	names := make([]string, len(registry))
	for i, r := range registry {
		names[i] = r.name
	}
	return names
}

// Create builds every enabled sink and returns them as one fan-out sink. If
// any sink fails to build, the ones already built are closed again.
func Create(cfg *config.Config, deps Deps) (display.Multi, error) {
	if deps.Out == nil {
		deps.Out = os.Stdout
	}

	var sinks display.Multi
	for _, r := range registry {
		if !r.enabled(cfg) {
			continue
		}

		d := deps
		d.Logger = deps.Logger.With().Str("sink", r.name).Logger()
		d.Logger.Info().Msg("Creating sink")

		sink, err := r.factory(cfg, d)
		if err != nil {
			if closeErr := sinks.Close(); closeErr != nil {
				deps.Logger.Warn().Err(closeErr).Msg("Failed to close sinks after setup error")
			}
			return nil, fmt.Errorf("error creating sink type '%s': %w", r.name, err)
		}
		sinks = append(sinks, sink)
	}

	if len(sinks) == 0 {
		return nil, ErrNoSinks
	}
	return sinks, nil
}
