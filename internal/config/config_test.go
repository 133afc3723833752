package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestFromEnv_ParsesAndDefaults(t *testing.T) {
	t.Setenv("API_ADDR", ":9090")
	t.Setenv("LOG_DIR", "./_testlogs")
	t.Setenv("PUBLIC_API_KEYS", "pub_a, pub_b")
	t.Setenv("ADMIN_API_KEYS", "adm_x")
	t.Setenv("PING_COUNT", "3")
	t.Setenv("PING_INTERVAL_MS", "250")
	t.Setenv("DHCP_TIMEOUT_S", "4")
	t.Setenv("GATEWAY", "10.0.0.1")
	t.Setenv("WATCH_INTERFACE", "wlan0")
	t.Setenv("WATCH_INTERVAL_MS", "60000")
	t.Setenv("ALERT_ON_RECOVERY", "true")
	t.Setenv("PUBLIC_RPM", "0")

	cfg := FromEnv()

	if cfg.Addr != ":9090" || cfg.LogDir != "./_testlogs" {
		t.Fatalf("addr/logdir wrong: %+v", cfg)
	}
	if len(cfg.PublicAPIKeys) != 2 || cfg.PublicAPIKeys[1] != "pub_b" {
		t.Fatalf("public keys wrong: %+v", cfg.PublicAPIKeys)
	}
	if len(cfg.AdminAPIKeys) != 1 || cfg.AdminAPIKeys[0] != "adm_x" {
		t.Fatalf("admin keys wrong: %+v", cfg.AdminAPIKeys)
	}
	if cfg.PingCount != 3 || cfg.PingInterval != 250*time.Millisecond || cfg.DHCPTimeout != 4*time.Second {
		t.Fatalf("probe tuning wrong: %+v", cfg)
	}
	if cfg.Gateway != "10.0.0.1" || cfg.WatchInterface != "wlan0" || cfg.WatchInterval != time.Minute {
		t.Fatalf("watch/gateway wrong: %+v", cfg)
	}
	if !cfg.AlertOnRecovery || cfg.PublicRPM != 0 {
		t.Fatalf("alert/rpm wrong: %+v", cfg)
	}

	// ensure defaults don’t crash if missing env
	os.Unsetenv("API_ADDR")
	_ = FromEnv()
}

func TestDefaults_MatchProbeContract(t *testing.T) {
	cfg := Defaults()
	if cfg.PingCount != 2 || cfg.PingInterval != 500*time.Millisecond || cfg.DHCPTimeout != 8*time.Second {
		t.Fatalf("defaults drifted: %+v", cfg)
	}
	if cfg.NameTarget != "google.com" || cfg.AddressTarget != "8.8.8.8" || cfg.Gateway != "" {
		t.Fatalf("target defaults drifted: %+v", cfg)
	}
}

func TestLoad_YAMLThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nettester.yaml")
	yml := `
gateway: 192.168.0.1
name_target: example.org
dhcp_timeout: 5s
watch_interface: eth0
watch_interval: 30s
`
	if err := os.WriteFile(path, []byte(yml), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("NAME_TARGET", "example.net")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Gateway != "192.168.0.1" || cfg.DHCPTimeout != 5*time.Second || cfg.WatchInterval != 30*time.Second {
		t.Fatalf("yaml not applied: %+v", cfg)
	}
	if cfg.NameTarget != "example.net" {
		t.Fatalf("env should win over yaml, got %s", cfg.NameTarget)
	}
	if cfg.AddressTarget != "8.8.8.8" {
		t.Fatalf("unset keys should keep defaults, got %s", cfg.AddressTarget)
	}
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Addr != Defaults().Addr {
		t.Fatalf("want defaults, got %+v", cfg)
	}
}

func TestLoad_RejectsBadValues(t *testing.T) {
	dir := t.TempDir()
	bad := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(bad, []byte("ping_count: 0\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(bad); err == nil {
		t.Fatalf("expected validation error for ping_count 0")
	}

	broken := filepath.Join(dir, "broken.yaml")
	if err := os.WriteFile(broken, []byte("gateway: [unterminated\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(broken); err == nil {
		t.Fatalf("expected parse error")
	}
}
