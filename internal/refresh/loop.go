// Package refresh drives the repeated poll, aggregate and publish cycle.
package refresh

import (
	"Go2SessionSpectra/internal/aggregator"
	"Go2SessionSpectra/internal/config"
	"Go2SessionSpectra/internal/model"
	"Go2SessionSpectra/internal/poller"
	"Go2SessionSpectra/internal/registry"
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// State is the position of the loop in its cycle.
type State int32

const (
	StateIdle State = iota
	StatePolling
	StateAggregating
	StatePublished
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePolling:
		return "polling"
	case StateAggregating:
		return "aggregating"
	case StatePublished:
		return "published"
	case StateStopped:
		return "stopped"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Poller produces the snapshot of one cycle.
type Poller interface {
	Poll(ctx context.Context, reg *registry.Registry) (poller.Result, error)
}

// Loop repeats poll → aggregate → publish until its context is cancelled.
// Every cycle starts from an empty snapshot, so sessions of a device that
// stopped answering vanish in the next published view.
type Loop struct {
	poller      Poller
	registry    *registry.Registry
	sink        model.Sink
	minInterval time.Duration
	logger      zerolog.Logger

	state atomic.Int32
	round atomic.Uint64
}

// New creates a loop publishing to sink.
func New(cfg config.LoopConfig, p Poller, reg *registry.Registry, sink model.Sink, logger zerolog.Logger) *Loop {
	return &Loop{
		poller:      p,
		registry:    reg,
		sink:        sink,
		minInterval: cfg.MinInterval.Std(),
		logger:      logger,
	}
}

// State returns the current state of the loop.
func (l *Loop) State() State {
	return State(l.state.Load())
}

// Round returns the number of cycles published so far.
func (l *Loop) Round() uint64 {
	return l.round.Load()
}

func (l *Loop) setState(s State) {
	l.state.Store(int32(s))
}

// Run executes cycles until ctx is cancelled. Cancellation is a normal stop
// and yields a nil error. A cycle interrupted by cancellation publishes
// nothing.
func (l *Loop) Run(ctx context.Context) error {
	defer l.setState(StateStopped)

	l.logger.Info().
		Int("devices", l.registry.Len()).
		Str("sink", l.sink.Name()).
		Dur("min_interval", l.minInterval).
		Msg("Refresh loop started")

	for {
		started := time.Now()

		if _, err := l.Cycle(ctx); err != nil {
			if errors.Is(err, context.Canceled) || ctx.Err() != nil {
				l.logger.Info().Uint64("rounds", l.Round()).Msg("Refresh loop stopped")
				return nil
			}
			return err
		}

		if err := l.wait(ctx, started); err != nil {
			l.logger.Info().Uint64("rounds", l.Round()).Msg("Refresh loop stopped")
			return nil
		}
	}
}

// Cycle runs a single poll → aggregate → publish pass and returns the view
// that was handed to the sink. A failing sink is logged and does not fail
// the cycle.
func (l *Loop) Cycle(ctx context.Context) (model.View, error) {
	if err := ctx.Err(); err != nil {
		return model.View{}, err
	}

	cycleID := uuid.NewString()
	log := l.logger.With().Str("cycle_id", cycleID).Logger()

	l.setState(StatePolling)
	start := time.Now()
	res, err := l.poller.Poll(ctx, l.registry)
	if err != nil {
		if ctx.Err() != nil {
			log.Debug().Msg("Cycle aborted during poll")
		}
		return model.View{}, fmt.Errorf("failed to poll devices: %w", err)
	}

	l.setState(StateAggregating)
	rows := aggregator.Aggregate(res.Snapshot)
	summary := aggregator.Summarize(rows)

	if err := ctx.Err(); err != nil {
		log.Debug().Msg("Cycle aborted before publish")
		return model.View{}, err
	}

	// Rounds are numbered from 0; l.round counts published cycles.
	round := l.round.Add(1) - 1

	view := model.View{
		CycleID:     cycleID,
		Round:       round,
		PublishedAt: time.Now(),
		Devices:     l.registry.Statuses(),
		Rows:        rows,
		Summary:     summary,
	}

	if err := l.sink.Publish(ctx, view); err != nil {
		log.Error().Err(err).Str("sink", l.sink.Name()).Msg("Failed to publish view")
	}
	l.setState(StatePublished)

	log.Debug().
		Uint64("round", view.Round).
		Int("sessions", len(res.Snapshot)).
		Int("rows", summary.Total).
		Dur("duration", time.Since(start)).
		Msg("Cycle published")

	return view, nil
}

// wait holds the next cycle back until minInterval has passed since started.
func (l *Loop) wait(ctx context.Context, started time.Time) error {
	remaining := l.minInterval - time.Since(started)
	if remaining <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(remaining)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
