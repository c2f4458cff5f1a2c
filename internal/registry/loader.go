package registry

import (
	"Go2SessionSpectra/internal/config"
	"Go2SessionSpectra/internal/model"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

const maxDocumentSize = 4 << 20

// entry is one device in the server list document. Field names follow the
// published list format: {"PPP": [{"NAME", "IP", "PASSWORD"}], "SOCKS": [...]}.
type entry struct {
	Name     string `json:"NAME" yaml:"NAME"`
	IP       string `json:"IP" yaml:"IP"`
	Password string `json:"PASSWORD" yaml:"PASSWORD"`
	Username string `json:"USERNAME" yaml:"USERNAME"`
	Port     int    `json:"PORT" yaml:"PORT"`
}

// Load obtains the device list from the source named in cfg. Any failure
// here is fatal for the monitor.
func Load(ctx context.Context, cfg config.RegistryConfig, client *http.Client) (*Registry, error) {
	var (
		data []byte
		err  error
	)

	switch cfg.Source {
	case "file":
		data, err = os.ReadFile(cfg.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to read server list: %w", err)
		}
	case "url":
		data, err = fetch(ctx, cfg, client)
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unknown registry source %q", cfg.Source)
	}

	return Decode(data, cfg.Username)
}

func fetch(ctx context.Context, cfg config.RegistryConfig, client *http.Client) ([]byte, error) {
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout.Std()}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, cfg.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build registry request: %w", err)
	}
	req.Header.Set("User-Agent", cfg.UserAgent)
	req.Header.Set("Accept", "application/json, application/yaml")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch server list: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to fetch server list: unexpected status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxDocumentSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read server list: %w", err)
	}
	return data, nil
}

// Decode parses a server list document (JSON or YAML). Entries without a
// USERNAME log in as defaultUsername.
func Decode(data []byte, defaultUsername string) (*Registry, error) {
	var doc map[string][]entry
	if trimmed := bytes.TrimSpace(data); len(trimmed) > 0 && trimmed[0] == '{' {
		if err := json.Unmarshal(trimmed, &doc); err != nil {
			return nil, fmt.Errorf("failed to decode server list JSON: %w", err)
		}
	} else if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode server list YAML: %w", err)
	}

	// Classes are emitted in a fixed order so that the registry, and with it
	// every snapshot, is ordered the same way on every start.
	known := make(map[model.Class]string, len(doc))
	for key := range doc {
		class, err := model.ParseClass(key)
		if err != nil {
			return nil, fmt.Errorf("%w %q in server list", ErrUnknownClass, key)
		}
		known[class] = key
	}

	var devices []model.Device
	for _, class := range model.Classes {
		key, ok := known[class]
		if !ok {
			continue
		}
		for _, e := range doc[key] {
			d, err := e.device(class, defaultUsername)
			if err != nil {
				return nil, err
			}
			devices = append(devices, d)
		}
	}

	return New(devices)
}

func (e entry) device(class model.Class, defaultUsername string) (model.Device, error) {
	if e.IP == "" {
		return model.Device{}, fmt.Errorf("%w: %s entry %q has no IP", ErrInvalidDevice, class, e.Name)
	}

	address := e.IP
	if e.Port != 0 {
		if _, _, err := net.SplitHostPort(address); err == nil {
			return model.Device{}, fmt.Errorf("%w: %s entry %q sets PORT and a port in IP", ErrInvalidDevice, class, e.Name)
		}
		address = net.JoinHostPort(address, strconv.Itoa(e.Port))
	}

	name := e.Name
	if name == "" {
		name = e.IP
	}

	username := e.Username
	if username == "" {
		username = defaultUsername
	}

	return model.Device{
		Class:   class,
		Name:    name,
		Address: address,
		Credential: model.Credential{
			Username: username,
			Password: e.Password,
		},
	}, nil
}
