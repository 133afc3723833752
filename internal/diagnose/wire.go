package diagnose

import (
	"net"

	"go.uber.org/zap"

	"github.com/hamed0406/nettester/internal/config"
	"github.com/hamed0406/nettester/internal/metrics"
	"github.com/hamed0406/nettester/internal/probe"
)

// FromConfig builds an engine backed by the real OS probes.
func FromConfig(logger *zap.Logger, cfg config.Config) *Engine {
	pinger := probe.NewExecPinger(logger, cfg.PingPath)
	pinger.Count = cfg.PingCount
	pinger.Interval = cfg.PingInterval

	dhcp := probe.NewExecDHCPTester(logger, cfg.DHCPPath)
	dhcp.Timeout = cfg.DHCPTimeout

	var gateways probe.GatewayLocator = probe.NewRouteTableGateway()
	if cfg.Gateway != "" {
		gateways = probe.StaticGateway(cfg.Gateway)
	}

	e := NewEngine(logger, probe.NewAddressBook(), pinger, dhcp, gateways)
	e.Resolver = net.DefaultResolver
	e.Timings = metrics.NewProbeTimings()
	e.NameTarget = cfg.NameTarget
	e.AddressTarget = cfg.AddressTarget
	return e
}
