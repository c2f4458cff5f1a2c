package registry

import (
	"Go2SessionSpectra/internal/config"
	"Go2SessionSpectra/internal/model"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const serverList = `{
  "SOCKS": [
    {"NAME": "socks-1", "IP": "10.0.1.1", "PASSWORD": "s1"},
    {"NAME": "socks-2", "IP": "10.0.1.2", "PASSWORD": "s2", "USERNAME": "monitor", "PORT": 8729}
  ],
  "PPP": [
    {"NAME": "ppp-1", "IP": "10.0.0.1", "PASSWORD": "p1"}
  ]
}`

func TestDecode_JSON(t *testing.T) {
	reg, err := Decode([]byte(serverList), "admin")
	require.NoError(t, err)

	devices := reg.Devices()
	require.Len(t, devices, 3)

	// PPP devices come first regardless of document order.
	assert.Equal(t, model.Device{
		Class: model.ClassPPP, Name: "ppp-1", Address: "10.0.0.1",
		Credential: model.Credential{Username: "admin", Password: "p1"},
	}, devices[0])
	assert.Equal(t, "socks-1", devices[1].Name)
	assert.Equal(t, "10.0.1.2:8729", devices[2].Address)
	assert.Equal(t, "monitor", devices[2].Credential.Username)
}

func TestDecode_YAML(t *testing.T) {
	doc := `
PPP:
  - NAME: ppp-1
    IP: 10.0.0.1
    PASSWORD: secret
`
	reg, err := Decode([]byte(doc), "admin")
	require.NoError(t, err)
	require.Equal(t, 1, reg.Len())
	assert.Equal(t, "secret", reg.Devices()[0].Credential.Password)
}

func TestDecode_Failures(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want error
	}{
		{name: "empty", doc: `{}`, want: ErrNoDevices},
		{name: "empty lists", doc: `{"PPP": [], "SOCKS": []}`, want: ErrNoDevices},
		{name: "unknown class", doc: `{"L2TP": [{"NAME": "x", "IP": "10.0.0.9"}]}`, want: ErrUnknownClass},
		{name: "duplicate", doc: `{"PPP": [{"NAME": "a", "IP": "10.0.0.1"}, {"NAME": "b", "IP": "10.0.0.1"}]}`, want: ErrDuplicateDevice},
		{name: "missing ip", doc: `{"PPP": [{"NAME": "a"}]}`, want: ErrInvalidDevice},
		{name: "double port", doc: `{"PPP": [{"NAME": "a", "IP": "10.0.0.1:8728", "PORT": 8729}]}`, want: ErrInvalidDevice},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode([]byte(tt.doc), "admin")
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	_, err := Decode([]byte(`{not json`), "admin")
	assert.Error(t, err)
}

func TestDecode_SameAddressDifferentClass(t *testing.T) {
	reg, err := Decode([]byte(`{"PPP": [{"NAME": "a", "IP": "10.0.0.1"}], "SOCKS": [{"NAME": "a", "IP": "10.0.0.1"}]}`), "admin")
	require.NoError(t, err)
	assert.Equal(t, 2, reg.Len())
}

func TestReachability(t *testing.T) {
	reg, err := Decode([]byte(serverList), "admin")
	require.NoError(t, err)

	for _, s := range reg.Statuses() {
		assert.True(t, s.Reachable, "devices start reachable")
	}

	id := model.DeviceID{Class: model.ClassSOCKS, Address: "10.0.1.1"}
	require.NoError(t, reg.SetReachable(id, false))

	ok, err := reg.Reachable(id)
	require.NoError(t, err)
	assert.False(t, ok)

	statuses := reg.Statuses()
	assert.True(t, statuses[0].Reachable)
	assert.False(t, statuses[1].Reachable)
	assert.True(t, statuses[2].Reachable)

	unknown := model.DeviceID{Class: model.ClassPPP, Address: "10.9.9.9"}
	assert.ErrorIs(t, reg.SetReachable(unknown, true), ErrUnknownDevice)
	_, err = reg.Reachable(unknown)
	assert.ErrorIs(t, err, ErrUnknownDevice)
}

func TestDevicesIsACopy(t *testing.T) {
	reg, err := Decode([]byte(serverList), "admin")
	require.NoError(t, err)

	devices := reg.Devices()
	devices[0].Name = "changed"
	assert.Equal(t, "ppp-1", reg.Devices()[0].Name)
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "servers.json")
	require.NoError(t, os.WriteFile(path, []byte(serverList), 0o600))

	reg, err := Load(context.Background(), config.RegistryConfig{Source: "file", Path: path, Username: "admin"}, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, reg.Len())

	_, err = Load(context.Background(), config.RegistryConfig{Source: "file", Path: path + ".missing"}, nil)
	assert.Error(t, err)
}

func TestLoad_URL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "ss-test", r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(serverList))
	}))
	defer srv.Close()

	cfg := config.RegistryConfig{
		Source:    "url",
		URL:       srv.URL,
		UserAgent: "ss-test",
		Timeout:   config.Duration(5 * time.Second),
		Username:  "admin",
	}
	reg, err := Load(context.Background(), cfg, srv.Client())
	require.NoError(t, err)
	assert.Equal(t, 3, reg.Len())
}

func TestLoad_URLStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	_, err := Load(context.Background(), config.RegistryConfig{Source: "url", URL: srv.URL}, srv.Client())
	assert.Error(t, err)
}
