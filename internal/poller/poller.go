// Package poller fetches the session lists of every registered device and
// assembles them into one snapshot per cycle.
package poller

import (
	"Go2SessionSpectra/internal/model"
	"Go2SessionSpectra/internal/registry"
	"Go2SessionSpectra/internal/source"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

const defaultConcurrency = 8

var ErrNoSource = errors.New("no session source for device class")

// DeviceResult is the explicit outcome of polling one device in a cycle.
type DeviceResult struct {
	Device   model.Device
	Sessions int
	Dropped  int
	Duration time.Duration
	// Err is nil when the device answered. Otherwise it is the reason the
	// device was marked unreachable.
	Err error
}

// Reachable reports whether the device answered during the cycle.
func (r DeviceResult) Reachable() bool {
	return r.Err == nil
}

// Result is one completed poll cycle.
type Result struct {
	Snapshot model.Snapshot
	Devices  []DeviceResult
}

// Poller queries every device in a registry with per-device failure isolation.
type Poller struct {
	sources     source.Set
	concurrency int
	logger      zerolog.Logger
}

// New creates a poller fetching at most concurrency devices at a time.
func New(sources source.Set, concurrency int, logger zerolog.Logger) *Poller {
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}
	return &Poller{
		sources:     sources,
		concurrency: concurrency,
		logger:      logger,
	}
}

// Poll fetches sessions from every device in reg. A device that fails is
// marked unreachable and skipped; every other device is still polled. Each
// device that answers is marked reachable.
//
// Cancelling ctx aborts the cycle: no further fetches start, in-flight ones
// are interrupted, and Poll returns the context error with no result.
// Reachable flags of fetches that finished before the cancellation keep the
// value those fetches recorded; aborted fetches leave their flag untouched.
func (p *Poller) Poll(ctx context.Context, reg *registry.Registry) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	devices := reg.Devices()
	results := make([]DeviceResult, len(devices))
	batches := make([]source.Batch, len(devices))

	var g errgroup.Group
	g.SetLimit(p.concurrency)

	for i, device := range devices {
		if ctx.Err() != nil {
			break
		}

		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			start := time.Now()
			batch, err := p.fetch(ctx, device)
			if err != nil && isCancellation(ctx, err) {
				return ctx.Err()
			}
			// A fetch that finished after the cycle was cancelled did not
			// complete before it, so its outcome is not recorded.
			if err == nil && ctx.Err() != nil {
				return ctx.Err()
			}

			// Each goroutine owns index i of both slices and the flag of its
			// own device, so no further locking is needed here.
			results[i] = DeviceResult{
				Device:   device,
				Sessions: len(batch.Sessions),
				Dropped:  batch.Dropped,
				Duration: time.Since(start),
				Err:      err,
			}
			batches[i] = batch

			if setErr := reg.SetReachable(device.ID(), err == nil); setErr != nil {
				return setErr
			}
			p.logResult(results[i])

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Result{}, ctxErr
		}
		return Result{}, err
	}
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	// Merge after the join point, in registry order, so that the snapshot
	// order never depends on which device answered first.
	total := 0
	for _, b := range batches {
		total += len(b.Sessions)
	}
	snapshot := make(model.Snapshot, 0, total)
	for _, b := range batches {
		snapshot = append(snapshot, b.Sessions...)
	}

	return Result{Snapshot: snapshot, Devices: results}, nil
}

func (p *Poller) fetch(ctx context.Context, device model.Device) (source.Batch, error) {
	src, ok := p.sources[device.Class]
	if !ok {
		return source.Batch{}, &source.UnreachableError{
			Device: device.ID(),
			Err:    fmt.Errorf("%w %s", ErrNoSource, device.Class),
		}
	}
	return src.Fetch(ctx, device)
}

// isCancellation reports whether err is the poll being aborted rather than
// the device failing.
func isCancellation(ctx context.Context, err error) bool {
	var unreachable *source.UnreachableError
	if errors.As(err, &unreachable) {
		return false
	}
	return ctx.Err() != nil
}

func (p *Poller) logResult(r DeviceResult) {
	if r.Err != nil {
		p.logger.Warn().
			Err(r.Err).
			Str("class", string(r.Device.Class)).
			Str("device", r.Device.Name).
			Str("address", r.Device.Address).
			Msg("Device unreachable")
		return
	}

	ev := p.logger.Debug()
	if r.Dropped > 0 {
		ev = p.logger.Info()
	}
	ev.Str("class", string(r.Device.Class)).
		Str("device", r.Device.Name).
		Int("sessions", r.Sessions).
		Int("dropped", r.Dropped).
		Dur("duration", r.Duration).
		Msg("Device polled")
}
