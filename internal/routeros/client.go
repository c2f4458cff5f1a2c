// Package routeros queries MikroTik devices over the RouterOS API.
package routeros

import (
	"Go2SessionSpectra/internal/config"
	"Go2SessionSpectra/internal/model"
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/go-routeros/routeros/v3"
	"github.com/go-routeros/routeros/v3/proto"
	"github.com/rs/zerolog"
)

// Client opens one RouterOS API connection per query. Connections are not
// pooled: a device that stops answering must not leave a stale connection
// behind for the next cycle.
type Client struct {
	port           int
	dialTimeout    time.Duration
	commandTimeout time.Duration
	tlsConfig      *tls.Config
	logger         zerolog.Logger
}

// NewClient creates a RouterOS API client from the transport configuration.
func NewClient(cfg config.RouterOSConfig, logger zerolog.Logger) *Client {
	c := &Client{
		port:           cfg.Port,
		dialTimeout:    cfg.DialTimeout.Std(),
		commandTimeout: cfg.CommandTimeout.Std(),
		logger:         logger,
	}
	if cfg.TLS {
		// RouterOS api-ssl usually runs with a self-signed certificate.
		c.tlsConfig = &tls.Config{InsecureSkipVerify: cfg.TLSInsecure} //nolint:gosec // opt-in via config
	}
	return c
}

// Query logs into the device at address and runs a print command such as
// "/ppp/active/print", returning one record per "!re" reply sentence.
func (c *Client) Query(ctx context.Context, address string, cred model.Credential, command string) ([]model.RawRecord, error) {
	addr := c.hostPort(address)

	conn, err := c.dial(ctx, addr)
	if err != nil {
		return nil, c.wrap(ctx, "dial", addr, err)
	}

	if c.commandTimeout > 0 {
		_ = conn.SetDeadline(time.Now().Add(c.commandTimeout))
	}

	// Closing the socket is the only way to interrupt a blocked read.
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	client, err := routeros.NewClient(conn)
	if err != nil {
		_ = conn.Close()
		return nil, c.wrap(ctx, "open session", addr, err)
	}
	defer client.Close()

	if err := client.Login(cred.Username, cred.Password); err != nil {
		return nil, c.wrap(ctx, "login", addr, err)
	}

	reply, err := client.Run(command)
	if err != nil {
		return nil, c.wrap(ctx, command, addr, err)
	}

	records := Records(reply.Re)
	c.logger.Debug().Str("address", addr).Str("command", command).Int("records", len(records)).Msg("RouterOS query completed")

	return records, nil
}

// Records converts reply sentences into raw records keyed by attribute name.
func Records(sentences []*proto.Sentence) []model.RawRecord {
	records := make([]model.RawRecord, 0, len(sentences))
	for _, s := range sentences {
		if s == nil {
			continue
		}
		rec := make(model.RawRecord, len(s.List))
		for _, p := range s.List {
			rec[p.Key] = p.Value
		}
		records = append(records, rec)
	}
	return records
}

func (c *Client) dial(ctx context.Context, addr string) (net.Conn, error) {
	d := &net.Dialer{Timeout: c.dialTimeout}
	if c.tlsConfig == nil {
		return d.DialContext(ctx, "tcp", addr)
	}
	td := &tls.Dialer{NetDialer: d, Config: c.tlsConfig}
	return td.DialContext(ctx, "tcp", addr)
}

func (c *Client) hostPort(address string) string {
	if _, _, err := net.SplitHostPort(address); err == nil {
		return address
	}
	return net.JoinHostPort(address, strconv.Itoa(c.port))
}

// wrap reports cancellation as the context error so callers can tell an
// aborted query from an unreachable device.
func (c *Client) wrap(ctx context.Context, op, addr string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("%s %s: %w", op, addr, ctxErr)
	}
	return fmt.Errorf("%s %s: %w", op, addr, err)
}
