// Package source turns the raw session lists of each device class into
// unified session records.
package source

import (
	"Go2SessionSpectra/internal/model"
	"context"
	"fmt"
)

// Transport runs a print command on a device and returns its raw records.
type Transport interface {
	Query(ctx context.Context, address string, cred model.Credential, command string) ([]model.RawRecord, error)
}

// Batch is the outcome of a successful fetch against one device.
type Batch struct {
	Sessions []model.UnifiedSession
	// Dropped counts records whose shape did not match the class.
	Dropped int
}

// Source produces unified sessions from one class of device.
type Source interface {
	Class() model.Class
	Fetch(ctx context.Context, device model.Device) (Batch, error)
}

// UnreachableError reports that a device could not be queried. The device
// is skipped for the current cycle.
type UnreachableError struct {
	Device model.DeviceID
	Err    error
}

func (e *UnreachableError) Error() string {
	return fmt.Sprintf("device %s unreachable: %v", e.Device, e.Err)
}

func (e *UnreachableError) Unwrap() error {
	return e.Err
}

// Set maps each device class to the source that handles it.
type Set map[model.Class]Source

// NewSet indexes sources by their class. A later source for the same class
// replaces an earlier one.
func NewSet(sources ...Source) Set {
	s := make(Set, len(sources))
	for _, src := range sources {
		s[src.Class()] = src
	}
	return s
}

// shape is the exact field set a record of one class must carry.
type shape map[string]struct{}

func newShape(fields ...string) shape {
	s := make(shape, len(fields))
	for _, f := range fields {
		s[f] = struct{}{}
	}
	return s
}

// matches reports whether rec has exactly the fields of the shape. Values
// are not inspected.
func (s shape) matches(rec model.RawRecord) bool {
	if len(rec) != len(s) {
		return false
	}
	for f := range s {
		if _, ok := rec[f]; !ok {
			return false
		}
	}
	return true
}

// fetch queries a device and keeps the records that match want.
func fetch(ctx context.Context, t Transport, device model.Device, command string, want shape,
	convert func(model.Device, model.RawRecord) model.UnifiedSession) (Batch, error) {
	records, err := t.Query(ctx, device.Address, device.Credential, command)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Batch{}, ctxErr
		}
		return Batch{}, &UnreachableError{Device: device.ID(), Err: err}
	}

	batch := Batch{Sessions: make([]model.UnifiedSession, 0, len(records))}
	for _, rec := range records {
		if !want.matches(rec) {
			batch.Dropped++
			continue
		}
		batch.Sessions = append(batch.Sessions, convert(device, rec))
	}
	return batch, nil
}
