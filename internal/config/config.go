package config

import (
	"Go2SessionSpectra/internal/logger"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is prepended to every environment override, e.g. SS_REGISTRY_URL.
const EnvPrefix = "SS_"

var (
	ErrInvalidDuration = errors.New("invalid duration")
	ErrInvalidConfig   = errors.New("invalid configuration")
)

// Duration is a time.Duration that decodes from strings like "5s" in both
// YAML and environment variables.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	return d.UnmarshalText([]byte(s))
}

// UnmarshalText implements encoding.TextUnmarshaler, which env uses.
func (d *Duration) UnmarshalText(b []byte) error {
	if len(b) == 0 {
		*d = 0
		return nil
	}
	v, err := time.ParseDuration(string(b))
	if err != nil {
		return fmt.Errorf("%w %q: %v", ErrInvalidDuration, string(b), err)
	}
	*d = Duration(v)
	return nil
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// RegistryConfig tells the monitor where to find its device list.
type RegistryConfig struct {
	Source    string   `yaml:"source" env:"SOURCE"` // "file" or "url"
	Path      string   `yaml:"path" env:"PATH"`
	URL       string   `yaml:"url" env:"URL"`
	UserAgent string   `yaml:"user_agent" env:"USER_AGENT"`
	Timeout   Duration `yaml:"timeout" env:"TIMEOUT"`
	Username  string   `yaml:"username" env:"USERNAME"` // default login for entries without one
}

// RouterOSConfig holds the RouterOS API transport settings.
type RouterOSConfig struct {
	Port           int      `yaml:"port" env:"PORT"`
	TLS            bool     `yaml:"tls" env:"TLS"`
	TLSInsecure    bool     `yaml:"tls_insecure_skip_verify" env:"TLS_INSECURE_SKIP_VERIFY"`
	DialTimeout    Duration `yaml:"dial_timeout" env:"DIAL_TIMEOUT"`
	CommandTimeout Duration `yaml:"command_timeout" env:"COMMAND_TIMEOUT"`
}

// PollerConfig bounds per-cycle device fetching.
type PollerConfig struct {
	Concurrency int `yaml:"concurrency" env:"CONCURRENCY"`
}

// LoopConfig controls the refresh cycle.
type LoopConfig struct {
	// MinInterval is the minimum time between the start of two cycles.
	// Zero re-enters the next cycle as soon as the previous one published.
	MinInterval Duration `yaml:"min_interval" env:"MIN_INTERVAL"`
}

// TerminalConfig configures the terminal table sink.
type TerminalConfig struct {
	Enabled     bool `yaml:"enabled" env:"ENABLED"`
	ClearScreen bool `yaml:"clear_screen" env:"CLEAR_SCREEN"`
}

// NATSConfig configures the NATS publisher sink.
type NATSConfig struct {
	Enabled bool   `yaml:"enabled" env:"ENABLED"`
	URL     string `yaml:"url" env:"URL"`
	Subject string `yaml:"subject" env:"SUBJECT"`
}

// APIConfig configures the HTTP API sink.
type APIConfig struct {
	Enabled    bool   `yaml:"enabled" env:"ENABLED"`
	ListenAddr string `yaml:"listen_addr" env:"LISTEN_ADDR"`
}

// HealthConfig configures the gRPC health sink.
type HealthConfig struct {
	Enabled    bool   `yaml:"enabled" env:"ENABLED"`
	ListenAddr string `yaml:"listen_addr" env:"LISTEN_ADDR"`
}

// SnapshotConfig configures the latest-view file sink.
type SnapshotConfig struct {
	Enabled bool   `yaml:"enabled" env:"ENABLED"`
	Path    string `yaml:"path" env:"PATH"`
}

// AlerterConfig configures reachability-change notifications.
type AlerterConfig struct {
	Enabled bool `yaml:"enabled" env:"ENABLED"`
}

// SMTPConfig holds the outgoing mail settings used by the alerter.
type SMTPConfig struct {
	Host     string `yaml:"host" env:"HOST"`
	Port     int    `yaml:"port" env:"PORT"`
	Username string `yaml:"username" env:"USERNAME"`
	Password string `yaml:"password" env:"PASSWORD"`
	From     string `yaml:"from" env:"FROM"`
	To       string `yaml:"to" env:"TO"` // comma separated
}

// SinksConfig selects where published views go.
type SinksConfig struct {
	Terminal TerminalConfig `yaml:"terminal" envPrefix:"TERMINAL_"`
	NATS     NATSConfig     `yaml:"nats" envPrefix:"NATS_"`
	API      APIConfig      `yaml:"api" envPrefix:"API_"`
	Health   HealthConfig   `yaml:"health" envPrefix:"HEALTH_"`
	Snapshot SnapshotConfig `yaml:"snapshot" envPrefix:"SNAPSHOT_"`
	Alerter  AlerterConfig  `yaml:"alerter" envPrefix:"ALERTER_"`
}

// Config is the top-level configuration struct for the entire application.
type Config struct {
	Registry RegistryConfig `yaml:"registry" envPrefix:"REGISTRY_"`
	RouterOS RouterOSConfig `yaml:"routeros" envPrefix:"ROUTEROS_"`
	Poller   PollerConfig   `yaml:"poller" envPrefix:"POLLER_"`
	Loop     LoopConfig     `yaml:"loop" envPrefix:"LOOP_"`
	Logging  logger.Config  `yaml:"logging" envPrefix:"LOG_"`
	Sinks    SinksConfig    `yaml:"sinks" envPrefix:"SINK_"`
	SMTP     SMTPConfig     `yaml:"smtp" envPrefix:"SMTP_"`
}

// LoadConfig reads the configuration from a YAML file, applies environment
// overrides and defaults, and validates the result.
func LoadConfig(filePath string) (*Config, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML configuration data the same way LoadConfig does.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config YAML: %w", err)
	}

	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return nil, fmt.Errorf("failed to apply environment overrides: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Registry.Source == "" {
		c.Registry.Source = "file"
	}
	if c.Registry.Timeout == 0 {
		c.Registry.Timeout = Duration(15 * time.Second)
	}
	if c.Registry.UserAgent == "" {
		c.Registry.UserAgent = "Mozilla/5.0"
	}
	if c.Registry.Username == "" {
		c.Registry.Username = "admin"
	}
	if c.RouterOS.Port == 0 {
		if c.RouterOS.TLS {
			c.RouterOS.Port = 8729
		} else {
			c.RouterOS.Port = 8728
		}
	}
	if c.RouterOS.DialTimeout == 0 {
		c.RouterOS.DialTimeout = Duration(5 * time.Second)
	}
	if c.RouterOS.CommandTimeout == 0 {
		c.RouterOS.CommandTimeout = Duration(10 * time.Second)
	}
	if c.Poller.Concurrency <= 0 {
		c.Poller.Concurrency = 8
	}
	if c.Sinks.NATS.Subject == "" {
		c.Sinks.NATS.Subject = "ss.sessions.view"
	}
	if c.Sinks.API.ListenAddr == "" {
		c.Sinks.API.ListenAddr = ":8080"
	}
	if c.Sinks.Health.ListenAddr == "" {
		c.Sinks.Health.ListenAddr = ":9090"
	}
	if c.SMTP.Port == 0 {
		c.SMTP.Port = 587
	}
}

// Validate reports the first inconsistency found in the configuration.
func (c *Config) Validate() error {
	switch c.Registry.Source {
	case "file":
		if c.Registry.Path == "" {
			return fmt.Errorf("%w: registry.path is required for source \"file\"", ErrInvalidConfig)
		}
	case "url":
		if c.Registry.URL == "" {
			return fmt.Errorf("%w: registry.url is required for source \"url\"", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown registry source %q", ErrInvalidConfig, c.Registry.Source)
	}

	if c.RouterOS.Port < 1 || c.RouterOS.Port > 65535 {
		return fmt.Errorf("%w: routeros.port %d out of range", ErrInvalidConfig, c.RouterOS.Port)
	}
	if c.Loop.MinInterval < 0 {
		return fmt.Errorf("%w: loop.min_interval must not be negative", ErrInvalidConfig)
	}
	if c.Sinks.NATS.Enabled && c.Sinks.NATS.URL == "" {
		return fmt.Errorf("%w: sinks.nats.url is required when the NATS sink is enabled", ErrInvalidConfig)
	}
	if c.Sinks.Snapshot.Enabled && c.Sinks.Snapshot.Path == "" {
		return fmt.Errorf("%w: sinks.snapshot.path is required when the snapshot sink is enabled", ErrInvalidConfig)
	}
	if c.Sinks.Alerter.Enabled && (c.SMTP.Host == "" || c.SMTP.To == "") {
		return fmt.Errorf("%w: smtp.host and smtp.to are required when the alerter is enabled", ErrInvalidConfig)
	}

	return nil
}
