package source

import (
	"Go2SessionSpectra/internal/model"
	"context"
)

const pppCommand = "/ppp/active/print"

// pppShape is the attribute set of a fully established PPP session.
// Half-initialized entries report fewer attributes and are skipped.
var pppShape = newShape(
	".id", "name", "service", "caller-id", "address", "uptime",
	"encoding", "session-id", "limit-bytes-in", "limit-bytes-out", "radius",
)

// PPP reads active sessions from PPP concentrators.
type PPP struct {
	transport Transport
}

// NewPPP creates a PPP source on top of t.
func NewPPP(t Transport) *PPP {
	return &PPP{transport: t}
}

func (*PPP) Class() model.Class { return model.ClassPPP }

// Fetch returns the active PPP sessions of device. PPP does not report byte
// counters, so TxBytes and RxBytes are always zero.
func (p *PPP) Fetch(ctx context.Context, device model.Device) (Batch, error) {
	return fetch(ctx, p.transport, device, pppCommand, pppShape, pppSession)
}

func pppSession(device model.Device, rec model.RawRecord) model.UnifiedSession {
	uptime := rec["uptime"]
	if uptime == "" {
		uptime = model.UnknownUptime
	}
	return model.UnifiedSession{
		User:          rec["name"],
		Class:         model.ClassPPP,
		DeviceName:    device.Name,
		DeviceAddress: device.Address,
		LocalAddress:  rec["caller-id"],
		RemoteAddress: rec["address"],
		Uptime:        uptime,
	}
}
