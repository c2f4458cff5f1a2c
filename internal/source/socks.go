package source

import (
	"Go2SessionSpectra/internal/model"
	"context"
	"strconv"
	"strings"
)

const socksCommand = "/ip/socks/connections/print"

var socksShape = newShape(".id", "type", "src-address", "dst-address", "tx", "rx", "user")

// SOCKS reads active proxy connections from SOCKS gateways. One user often
// holds several connections at once; they are combined by the aggregator.
type SOCKS struct {
	transport Transport
}

// NewSOCKS creates a SOCKS source on top of t.
func NewSOCKS(t Transport) *SOCKS {
	return &SOCKS{transport: t}
}

func (*SOCKS) Class() model.Class { return model.ClassSOCKS }

// Fetch returns the active SOCKS connections of device. Connections carry no
// uptime, so Uptime is always model.UnknownUptime.
func (s *SOCKS) Fetch(ctx context.Context, device model.Device) (Batch, error) {
	return fetch(ctx, s.transport, device, socksCommand, socksShape, socksSession)
}

func socksSession(device model.Device, rec model.RawRecord) model.UnifiedSession {
	return model.UnifiedSession{
		User:          rec["user"],
		Class:         model.ClassSOCKS,
		DeviceName:    device.Name,
		DeviceAddress: device.Address,
		LocalAddress:  rec["src-address"],
		RemoteAddress: rec["dst-address"],
		TxBytes:       parseBytes(rec["tx"]),
		RxBytes:       parseBytes(rec["rx"]),
		Uptime:        model.UnknownUptime,
	}
}

// parseBytes reads a byte counter, treating anything unparseable as unknown.
func parseBytes(s string) uint64 {
	n, err := strconv.ParseUint(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0
	}
	return n
}
