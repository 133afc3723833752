// cmd/preflight/main.go
package main

import (
	"fmt"
	"net"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/hamed0406/nettester/internal/config"
	"github.com/hamed0406/nettester/internal/probe"
)

func main() {
	fail := func(msg string) {
		fmt.Fprintln(os.Stderr, "✖", msg)
		os.Exit(1)
	}
	warn := func(msg string) { fmt.Fprintln(os.Stderr, "⚠", msg) }
	ok := func(msg string) { fmt.Println("✔", msg) }

	cfg, err := config.Load(os.Getenv("NETTESTER_CONFIG"))
	if err != nil {
		fail(err.Error())
	}
	ok("config loaded")

	for name, path := range map[string]string{"ping": cfg.PingPath, "dhcpcd": cfg.DHCPPath} {
		if _, err := exec.LookPath(path); err != nil {
			warn(name + " not found at " + path + "; its probe will always fail.")
		} else {
			ok(name + "=" + path)
		}
	}

	if err := os.MkdirAll(cfg.LogDir, 0o755); err != nil {
		fail("LOG_DIR is not writable: " + err.Error())
	}
	probeFile := filepath.Join(cfg.LogDir, ".preflight")
	if err := os.WriteFile(probeFile, nil, 0o644); err != nil {
		fail("LOG_DIR is not writable: " + err.Error())
	}
	os.Remove(probeFile)
	ok("LOG_DIR=" + cfg.LogDir)

	if cfg.WatchInterface == "" {
		warn("WATCH_INTERFACE empty; the API will only diagnose on request.")
	} else {
		if _, err := net.InterfaceByName(cfg.WatchInterface); err != nil {
			fail("WATCH_INTERFACE " + cfg.WatchInterface + " does not exist.")
		}
		ok("WATCH_INTERFACE=" + cfg.WatchInterface)

		if cfg.Gateway != "" {
			ok("GATEWAY=" + cfg.Gateway)
		} else if gw, err := probe.NewRouteTableGateway().Gateway(cfg.WatchInterface); err != nil {
			warn("no default route for " + cfg.WatchInterface + "; LAN checks will ping " + probe.DefaultGateway)
		} else {
			ok("detected gateway " + gw)
		}
	}

	if len(cfg.AdminAPIKeys) == 0 {
		warn("ADMIN_API_KEYS is empty; the API runs unauthenticated.")
	}
	if len(cfg.PublicAPIKeys) == 0 {
		warn("PUBLIC_API_KEYS is empty; only admin keys can read runs.")
	}
	if cfg.SlackWebhook == "" {
		warn("SLACK_WEBHOOK empty; alerts only go to the log.")
	}
	if len(cfg.AllowedOrigins) == 0 {
		warn("ALLOWED_ORIGINS empty; any origin may call the API.")
	}

	ok("preflight passed")
}
