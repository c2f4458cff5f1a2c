package display

import (
	"Go2SessionSpectra/internal/model"
	"context"
	"errors"
	"fmt"
	"io"
)

// Multi publishes every view to each of its sinks in order. A failing sink
// does not keep the others from receiving the view.
type Multi []model.Sink

func (Multi) Name() string { return "multi" }

// Publish hands view to every sink and joins their errors.
func (m Multi) Publish(ctx context.Context, view model.View) error {
	var errs []error
	for _, s := range m {
		if err := s.Publish(ctx, view); err != nil {
			errs = append(errs, fmt.Errorf("sink %s: %w", s.Name(), err))
		}
	}
	return errors.Join(errs...)
}

// Close closes every sink that holds resources, in reverse order.
func (m Multi) Close() error {
	var errs []error
	for i := len(m) - 1; i >= 0; i-- {
		c, ok := m[i].(io.Closer)
		if !ok {
			continue
		}
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("sink %s: %w", m[i].Name(), err))
		}
	}
	return errors.Join(errs...)
}
