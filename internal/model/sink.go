package model

import "context"

// Sink consumes the published view of every completed refresh cycle.
type Sink interface {
	// Publish hands the view of one cycle to the sink. The view must not be
	// modified by the sink.
	Publish(ctx context.Context, view View) error

	// Name identifies the sink in logs.
	Name() string
}
