package diagnose

import (
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/hamed0406/nettester/internal/config"
	"github.com/hamed0406/nettester/internal/probe"
)

func TestFromConfig(t *testing.T) {
	cfg := config.Defaults()
	cfg.PingCount = 4
	cfg.DHCPTimeout = 3 * time.Second
	cfg.Gateway = "10.1.1.1"
	cfg.NameTarget = "example.org"

	e := FromConfig(zap.NewNop(), cfg)

	p, ok := e.Pinger.(*probe.ExecPinger)
	if !ok || p.Count != 4 || p.Path != "/bin/ping" {
		t.Fatalf("unexpected pinger: %+v", e.Pinger)
	}
	d, ok := e.DHCP.(*probe.ExecDHCPTester)
	if !ok || d.Timeout != 3*time.Second {
		t.Fatalf("unexpected dhcp tester: %+v", e.DHCP)
	}
	if gw, _ := e.Gateways.Gateway("eth0"); gw != "10.1.1.1" {
		t.Fatalf("configured gateway not used: %s", gw)
	}
	if e.NameTarget != "example.org" || e.AddressTarget != "8.8.8.8" || e.Timings == nil {
		t.Fatalf("targets/timings not wired: %+v", e)
	}

	cfg.Gateway = ""
	if _, ok := FromConfig(zap.NewNop(), cfg).Gateways.(*probe.RouteTableGateway); !ok {
		t.Fatalf("empty gateway should auto-detect from the route table")
	}
}
