// Package registry holds the configured device fleet and the reachability
// observed for each device by the most recent poll.
package registry

import (
	"Go2SessionSpectra/internal/model"
	"errors"
	"fmt"
	"sync"
)

var (
	ErrNoDevices       = errors.New("registry contains no devices")
	ErrDuplicateDevice = errors.New("duplicate device")
	ErrUnknownDevice   = errors.New("unknown device")
	ErrUnknownClass    = errors.New("unknown device class")
	ErrInvalidDevice   = errors.New("invalid device")
)

// Registry is the device list loaded at start-up. Devices are never added or
// removed afterwards; only their reachable flag changes.
type Registry struct {
	devices []model.Device
	index   map[model.DeviceID]int

	mu        sync.RWMutex
	reachable []bool
}

// New builds a registry from devices, in the given order. Every device starts
// out reachable.
func New(devices []model.Device) (*Registry, error) {
	if len(devices) == 0 {
		return nil, ErrNoDevices
	}

	r := &Registry{
		devices:   make([]model.Device, len(devices)),
		index:     make(map[model.DeviceID]int, len(devices)),
		reachable: make([]bool, len(devices)),
	}

	for i, d := range devices {
		switch d.Class {
		case model.ClassPPP, model.ClassSOCKS:
		default:
			return nil, fmt.Errorf("%w %q for device %q", ErrUnknownClass, d.Class, d.Name)
		}
		if d.Address == "" {
			return nil, fmt.Errorf("%w: device %q has no address", ErrInvalidDevice, d.Name)
		}
		if _, dup := r.index[d.ID()]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateDevice, d.ID())
		}
		r.devices[i] = d
		r.index[d.ID()] = i
		r.reachable[i] = true
	}

	return r, nil
}

// Len returns the number of registered devices.
func (r *Registry) Len() int {
	return len(r.devices)
}

// Devices returns a copy of the registered devices in registry order.
func (r *Registry) Devices() []model.Device {
	out := make([]model.Device, len(r.devices))
	copy(out, r.devices)
	return out
}

// SetReachable records the outcome of the latest fetch against a device.
func (r *Registry) SetReachable(id model.DeviceID, reachable bool) error {
	i, ok := r.index[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownDevice, id)
	}

	r.mu.Lock()
	r.reachable[i] = reachable
	r.mu.Unlock()

	return nil
}

// Reachable reports the last recorded reachability of a device.
func (r *Registry) Reachable(id model.DeviceID) (bool, error) {
	i, ok := r.index[id]
	if !ok {
		return false, fmt.Errorf("%w: %s", ErrUnknownDevice, id)
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.reachable[i], nil
}

// Statuses returns the current reachability of every device in registry order.
func (r *Registry) Statuses() []model.DeviceStatus {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]model.DeviceStatus, len(r.devices))
	for i, d := range r.devices {
		out[i] = model.DeviceStatus{
			Class:     d.Class,
			Name:      d.Name,
			Address:   d.Address,
			Reachable: r.reachable[i],
		}
	}
	return out
}
