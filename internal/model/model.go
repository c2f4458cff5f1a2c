package model

import (
	"fmt"
	"strings"
	"time"
)

// Class identifies the kind of access concentrator a device is.
type Class string

const (
	ClassPPP   Class = "PPP"
	ClassSOCKS Class = "SOCKS"
)

// UnknownUptime is the uptime reported for sessions whose source does not track it.
const UnknownUptime = "N/A"

// Classes lists every supported device class in polling order.
var Classes = []Class{ClassPPP, ClassSOCKS}

// ParseClass converts a case-insensitive class name into a Class.
func ParseClass(s string) (Class, error) {
	switch Class(strings.ToUpper(strings.TrimSpace(s))) {
	case ClassPPP:
		return ClassPPP, nil
	case ClassSOCKS:
		return ClassSOCKS, nil
	default:
		return "", fmt.Errorf("unknown device class %q", s)
	}
}

// Credential holds the login used against a device's management API.
type Credential struct {
	Username string
	Password string
}

// DeviceID is the identity of a device within the registry.
type DeviceID struct {
	Class   Class
	Address string
}

func (id DeviceID) String() string {
	return string(id.Class) + "/" + id.Address
}

// Device is a configured access concentrator.
type Device struct {
	Class      Class
	Name       string
	Address    string
	Credential Credential
}

// ID returns the registry identity of the device.
func (d Device) ID() DeviceID {
	return DeviceID{Class: d.Class, Address: d.Address}
}

// DeviceStatus is the reachability of one device as handed to sinks.
type DeviceStatus struct {
	Class     Class  `json:"class"`
	Name      string `json:"name"`
	Address   string `json:"address"`
	Reachable bool   `json:"reachable"`
}

// RawRecord is one session entry as returned by a device, keyed by field name.
type RawRecord map[string]string

// UnifiedSession is the normalized session record every source produces.
type UnifiedSession struct {
	User          string `json:"user"`
	Class         Class  `json:"class"`
	DeviceName    string `json:"device_name"`
	DeviceAddress string `json:"device_address"`
	LocalAddress  string `json:"local_address"`
	RemoteAddress string `json:"remote_address"`
	TxBytes       uint64 `json:"tx_bytes"`
	RxBytes       uint64 `json:"rx_bytes"`
	Uptime        string `json:"uptime"`
}

// Snapshot is the complete set of sessions observed in one poll cycle.
type Snapshot []UnifiedSession

// AggregatedRow is the per (user, class) reduction of a Snapshot.
type AggregatedRow struct {
	User          string `json:"user"`
	Class         Class  `json:"class"`
	DeviceName    string `json:"device_name"`
	DeviceAddress string `json:"device_address"`
	LocalAddress  string `json:"local_address"`
	RemoteAddress string `json:"remote_address"`
	TxBytes       uint64 `json:"tx_bytes"`
	RxBytes       uint64 `json:"rx_bytes"`
	Uptime        string `json:"uptime"`
}

// Summary holds occupancy counts over a set of aggregated rows.
type Summary struct {
	Total int `json:"total"`
	PPP   int `json:"ppp"`
	SOCKS int `json:"socks"`
}

// View is everything a sink receives for one published cycle.
type View struct {
	CycleID     string          `json:"cycle_id"`
	Round       uint64          `json:"round"`
	PublishedAt time.Time       `json:"published_at"`
	Devices     []DeviceStatus  `json:"devices"`
	Rows        []AggregatedRow `json:"rows"`
	Summary     Summary         `json:"summary"`
}
