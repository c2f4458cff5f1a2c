package alerter

import (
	"Go2SessionSpectra/internal/model"
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gomarkdown/markdown"
	"github.com/rs/zerolog"
)

// Change is one device whose reachability flipped between two views.
type Change struct {
	Device    model.DeviceStatus
	Recovered bool
}

// Alerter is a sink that compares the reachability of each published view
// with the previous one and sends one consolidated notification when devices
// drop out or come back.
type Alerter struct {
	notifier model.Notifier
	logger   zerolog.Logger

	mu   sync.Mutex
	last map[model.DeviceID]bool
}

// NewAlerter creates a new Alerter. Devices are assumed reachable until a
// view says otherwise, matching the registry's initial state.
func NewAlerter(notifier model.Notifier, logger zerolog.Logger) *Alerter {
	return &Alerter{
		notifier: notifier,
		logger:   logger,
		last:     make(map[model.DeviceID]bool),
	}
}

func (*Alerter) Name() string { return "alerter" }

// Publish records the reachability of view and notifies about every change.
func (a *Alerter) Publish(ctx context.Context, view model.View) error {
	changes := a.diff(view.Devices)
	if len(changes) == 0 {
		return nil
	}

	down := 0
	for _, c := range changes {
		if !c.Recovered {
			down++
		}
	}
	a.logger.Info().
		Int("unreachable", down).
		Int("recovered", len(changes)-down).
		Uint64("round", view.Round).
		Msg("Device reachability changed")

	subject := fmt.Sprintf("Go2SessionSpectra Reachability Alert (%d down, %d recovered)", down, len(changes)-down)
	body := markdown.ToHTML([]byte(Report(view, changes)), nil, nil)

	if err := a.notifier.Send(ctx, subject, string(body)); err != nil {
		return fmt.Errorf("failed to send reachability alert: %w", err)
	}
	a.logger.Info().Msg("Reachability alert sent")
	return nil
}

// diff returns the devices whose reachability differs from the previous view
// and remembers the new state.
func (a *Alerter) diff(devices []model.DeviceStatus) []Change {
	a.mu.Lock()
	defer a.mu.Unlock()

	var changes []Change
	for _, d := range devices {
		id := model.DeviceID{Class: d.Class, Address: d.Address}
		prev, seen := a.last[id]
		if !seen {
			prev = true
		}
		if prev != d.Reachable {
			changes = append(changes, Change{Device: d, Recovered: d.Reachable})
		}
		a.last[id] = d.Reachable
	}
	return changes
}

// Report renders the changes as a Markdown document.
func Report(view model.View, changes []Change) string {
	var b strings.Builder

	b.WriteString("# Go2SessionSpectra Reachability Alert\n\n")
	fmt.Fprintf(&b, "Round %d (cycle `%s`) published at %s.\n\n",
		view.Round, view.CycleID, view.PublishedAt.UTC().Format(time.RFC3339))

	writeTable := func(title string, recovered bool) {
		var rows []model.DeviceStatus
		for _, c := range changes {
			if c.Recovered == recovered {
				rows = append(rows, c.Device)
			}
		}
		if len(rows) == 0 {
			return
		}
		fmt.Fprintf(&b, "## %s\n\n", title)
		b.WriteString("| Type | Name | Address |\n|------|------|---------|\n")
		for _, d := range rows {
			fmt.Fprintf(&b, "| %s | %s | %s |\n", d.Class, d.Name, d.Address)
		}
		b.WriteString("\n")
	}
	writeTable("Unreachable", false)
	writeTable("Recovered", true)

	b.WriteString("## Online Stats\n\n")
	fmt.Fprintf(&b, "- All: %d\n- PPP: %d\n- SOCKS: %d\n",
		view.Summary.Total, view.Summary.PPP, view.Summary.SOCKS)

	return b.String()
}
