package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Addr   string `yaml:"addr"`    // API bind address, e.g. "127.0.0.1:8080"
	LogDir string `yaml:"log_dir"` // logs directory
	Debug  bool   `yaml:"debug"`   // log probe details

	PingPath     string        `yaml:"ping_path"`
	PingCount    int           `yaml:"ping_count"`
	PingInterval time.Duration `yaml:"ping_interval"`
	DHCPPath     string        `yaml:"dhcp_path"`
	DHCPTimeout  time.Duration `yaml:"dhcp_timeout"`

	Gateway       string `yaml:"gateway"` // empty means detect from the route table
	NameTarget    string `yaml:"name_target"`
	AddressTarget string `yaml:"address_target"`

	WatchInterface  string        `yaml:"watch_interface"` // empty disables the watcher
	WatchInterval   time.Duration `yaml:"watch_interval"`
	AlertOnRecovery bool          `yaml:"alert_on_recovery"`
	AlertCooldown   time.Duration `yaml:"alert_cooldown"`
	SlackWebhook    string        `yaml:"slack_webhook"`

	PublicAPIKeys  []string `yaml:"public_api_keys"`
	AdminAPIKeys   []string `yaml:"admin_api_keys"`
	AllowedOrigins []string `yaml:"allowed_origins"` // empty allows any origin
	PublicRPM      int      `yaml:"public_rpm"`
	PublicBurst    int      `yaml:"public_burst"`

	KeepRuns int `yaml:"keep_runs"` // finished runs kept in memory for the API
}

func Defaults() Config {
	return Config{
		Addr:          "127.0.0.1:8080",
		LogDir:        "logs",
		PingPath:      "/bin/ping",
		PingCount:     2,
		PingInterval:  500 * time.Millisecond,
		DHCPPath:      "/sbin/dhcpcd",
		DHCPTimeout:   8 * time.Second,
		NameTarget:    "google.com",
		AddressTarget: "8.8.8.8",
		WatchInterval: 5 * time.Minute,
		AlertCooldown: 15 * time.Minute,
		PublicRPM:     120,
		PublicBurst:   30,
		KeepRuns:      32,
	}
}

// FromEnv returns defaults overridden by environment variables.
func FromEnv() Config {
	cfg := Defaults()
	applyEnv(&cfg)
	return cfg
}

// Load reads an optional YAML file on top of the defaults, then applies
// environment overrides. An empty or missing path is not an error.
func Load(path string) (Config, error) {
	cfg := Defaults()
	if path != "" {
		content, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return Config{}, fmt.Errorf("read config: %w", err)
		default:
			if err := yaml.Unmarshal(content, &cfg); err != nil {
				return Config{}, fmt.Errorf("parse config: %w", err)
			}
		}
	}
	applyEnv(&cfg)
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.PingCount < 1 {
		return errors.New("ping_count must be at least 1")
	}
	if c.PingInterval <= 0 || c.DHCPTimeout < time.Second {
		return errors.New("ping_interval must be positive and dhcp_timeout at least 1s")
	}
	if strings.TrimSpace(c.NameTarget) == "" || strings.TrimSpace(c.AddressTarget) == "" {
		return errors.New("name_target and address_target are required")
	}
	if c.WatchInterface != "" && c.WatchInterval <= 0 {
		return errors.New("watch_interval must be positive when watch_interface is set")
	}
	return nil
}

func applyEnv(cfg *Config) {
	str := func(key string, dst *string) {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			*dst = v
		}
	}
	str("API_ADDR", &cfg.Addr)
	str("LOG_DIR", &cfg.LogDir)
	str("PING_PATH", &cfg.PingPath)
	str("DHCP_PATH", &cfg.DHCPPath)
	str("GATEWAY", &cfg.Gateway)
	str("NAME_TARGET", &cfg.NameTarget)
	str("ADDRESS_TARGET", &cfg.AddressTarget)
	str("WATCH_INTERFACE", &cfg.WatchInterface)
	str("SLACK_WEBHOOK", &cfg.SlackWebhook)

	if v := os.Getenv("PING_COUNT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.PingCount = n
		}
	}
	if v := os.Getenv("PING_INTERVAL_MS"); v != "" {
		if ms, err := strconv.Atoi(v); err == nil && ms > 0 {
			cfg.PingInterval = time.Duration(ms) * time.Millisecond
		}
	}
	if v := os.Getenv("DHCP_TIMEOUT_S"); v != "" {
		if s, err := strconv.Atoi(v); err == nil && s > 0 {
			cfg.DHCPTimeout = time.Duration(s) * time.Second
		}
	}
	if v := os.Getenv("WATCH_INTERVAL_MS"); v != "" {
		if ms, err := strconv.Atoi(v); err == nil && ms > 0 {
			cfg.WatchInterval = time.Duration(ms) * time.Millisecond
		}
	}
	if v := os.Getenv("ALERT_COOLDOWN_MS"); v != "" {
		if ms, err := strconv.Atoi(v); err == nil && ms >= 0 {
			cfg.AlertCooldown = time.Duration(ms) * time.Millisecond
		}
	}
	if v := os.Getenv("LOG_DEBUG"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Debug = b
		}
	}
	if v := os.Getenv("ALERT_ON_RECOVERY"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.AlertOnRecovery = b
		}
	}

	if v := os.Getenv("PUBLIC_API_KEYS"); v != "" {
		cfg.PublicAPIKeys = splitList(v)
	}
	if v := os.Getenv("ADMIN_API_KEYS"); v != "" {
		cfg.AdminAPIKeys = splitList(v)
	}
	if v := os.Getenv("ALLOWED_ORIGINS"); v != "" {
		cfg.AllowedOrigins = splitList(v)
	}
	if v := os.Getenv("PUBLIC_RPM"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			cfg.PublicRPM = n
		}
	}
	if v := os.Getenv("PUBLIC_BURST"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.PublicBurst = n
		}
	}
	if v := os.Getenv("KEEP_RUNS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.KeepRuns = n
		}
	}
}

func splitList(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
