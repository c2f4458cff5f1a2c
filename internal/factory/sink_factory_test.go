package factory

import (
	"Go2SessionSpectra/internal/config"
	"Go2SessionSpectra/internal/model"
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type nopNotifier struct{}

func (nopNotifier) Send(context.Context, string, string) error { return nil }

func TestNames(t *testing.T) {
	assert.Equal(t, []string{"terminal", "snapshot", "api", "health", "nats", "alerter"}, Names())
}

func TestRegisterSink_Duplicate(t *testing.T) {
	assert.Panics(t, func() {
		RegisterSink("terminal", nil, nil)
	})
}

func TestCreate_NoSinks(t *testing.T) {
	_, err := Create(&config.Config{}, Deps{Logger: zerolog.Nop()})
	require.ErrorIs(t, err, ErrNoSinks)
}

func TestCreate_EnabledSinksInOrder(t *testing.T) {
	dir := t.TempDir()
	cfg := &config.Config{}
	cfg.Sinks.Terminal.Enabled = true
	cfg.Sinks.Snapshot.Enabled = true
	cfg.Sinks.Snapshot.Path = filepath.Join(dir, "latest.json")
	cfg.Sinks.Alerter.Enabled = true

	var out bytes.Buffer
	sinks, err := Create(cfg, Deps{Out: &out, Notifier: nopNotifier{}, Logger: zerolog.Nop()})
	require.NoError(t, err)
	defer sinks.Close()

	names := make([]string, len(sinks))
	for i, s := range sinks {
		names[i] = s.Name()
	}
	assert.Equal(t, []string{"terminal", "snapshot", "alerter"}, names)

	require.NoError(t, sinks.Publish(context.Background(), model.View{Round: 1}))
	assert.Contains(t, out.String(), "Round Number: 1")
	_, err = os.Stat(cfg.Sinks.Snapshot.Path)
	assert.NoError(t, err)
}

func TestCreate_FailureReported(t *testing.T) {
	cfg := &config.Config{}
	cfg.Sinks.NATS.Enabled = true
	cfg.Sinks.NATS.URL = "nats://127.0.0.1:1"

	_, err := Create(cfg, Deps{Logger: zerolog.Nop()})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sink type 'nats'")
}
