// Package diagnose walks the fixed connectivity decision tree for one
// interface and narrates each step as a status event.
package diagnose

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/hamed0406/nettester/internal/domain"
	"github.com/hamed0406/nettester/internal/metrics"
	"github.com/hamed0406/nettester/internal/probe"
)

const (
	DefaultNameTarget    = "google.com"
	DefaultAddressTarget = "8.8.8.8"
)

// Sink receives events in decision order. *events.Stream implements it.
type Sink interface {
	Publish(ev domain.StatusEvent) (domain.StatusEvent, error)
}

// Addresses reports whether an interface has an IPv4 address. An error
// means the interface list itself could not be read.
type Addresses interface {
	HasAddress(iface string) (bool, error)
}

type Engine struct {
	Logger        *zap.Logger
	Addresses     Addresses
	Pinger        probe.Pinger
	DHCP          probe.DHCPTester
	Gateways      probe.GatewayLocator
	Resolver      probe.Resolver // only used to enrich DNS failure logs
	Timings       *metrics.ProbeTimings
	NameTarget    string
	AddressTarget string
}

func NewEngine(
	logger *zap.Logger,
	addrs Addresses,
	pinger probe.Pinger,
	dhcp probe.DHCPTester,
	gateways probe.GatewayLocator,
) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		Logger:        logger,
		Addresses:     addrs,
		Pinger:        pinger,
		DHCP:          dhcp,
		Gateways:      gateways,
		NameTarget:    DefaultNameTarget,
		AddressTarget: DefaultAddressTarget,
	}
}

// Run diagnoses iface, publishing every step to sink.
//
// It returns nil when the internet is usable and a *domain.FaultError when
// a fault was diagnosed; in both cases the last published event is the
// terminal one. Any other error is fatal (interface enumeration failed or
// the sink is gone) and the run stops without a verdict.
func (e *Engine) Run(ctx context.Context, iface string, sink Sink) error {
	_, err := e.run(ctx, iface, sink)
	return err
}

func (e *Engine) run(ctx context.Context, iface string, sink Sink) (string, error) {
	d := &diagnosis{e: e, ctx: ctx, iface: iface, sink: sink}
	start := time.Now()
	err := d.walk()

	fields := []zap.Field{
		zap.String("interface", iface),
		zap.Duration("took", time.Since(start)),
	}
	if d.gw != "" {
		fields = append(fields, zap.String("gateway", d.gw))
	}
	if f, ok := domain.AsFault(err); ok {
		e.Logger.Info("diagnosis_verdict", append(fields, zap.String("fault", string(f)))...)
	} else if err != nil {
		e.Logger.Error("diagnosis_aborted", append(fields, zap.Error(err))...)
	} else {
		e.Logger.Info("diagnosis_verdict", append(fields, zap.String("fault", "none"))...)
	}
	return d.gw, err
}

// diagnosis is the state of one walk through the tree.
type diagnosis struct {
	e     *Engine
	ctx   context.Context
	iface string
	sink  Sink
	gw    string
}

func (d *diagnosis) walk() error {
	// 1. address
	ok, err := d.hasAddress()
	if err != nil {
		return fmt.Errorf("address check on %s: %w", d.iface, err)
	}
	if !ok {
		return d.fail(domain.FaultNoAddress, "FAILED, local interface does not have an IP!")
	}
	if err := d.emit(domain.Working("Interface %s appears to be active.", d.iface)); err != nil {
		return err
	}

	// 2. DHCP
	if d.testDHCP() {
		if err := d.emit(domain.Working("DHCP works!")); err != nil {
			return err
		}
	} else {
		if err := d.emit(domain.Working("DHCP failed, local LAN/WiFi will not work correctly!")); err != nil {
			return err
		}
		if d.ping("gateway", d.gateway()) {
			return d.fail(domain.FaultFirewallUp, "Firewall is UP.")
		}
		return d.fail(domain.FaultFirewallDown, "Firewall is DOWN.")
	}

	// 3. internet by name
	name := d.e.NameTarget
	if d.ping("name", name) {
		return d.emit(domain.Good("Internet is working."))
	}
	if err := d.emit(domain.Working("Failed to ping %s, network issues!", name)); err != nil {
		return err
	}

	// 4. internet by address
	addr := d.e.AddressTarget
	if d.ping("address", addr) {
		d.logDNS(name)
		return d.fail(domain.FaultDNSFailure, fmt.Sprintf("Pinged %s, this indicates DNS has failed!", addr))
	}
	if err := d.emit(domain.Working("Failed to ping %s, internet is down, testing LAN now!", addr)); err != nil {
		return err
	}

	// 5. gateway; "ISP/modem" is an attribution in the message only
	if d.ping("gateway", d.gateway()) {
		return d.fail(domain.FaultFirewallUpISP, "Firewall is UP, this indicates an ISP/modem issue!")
	}
	return d.fail(domain.FaultFirewallDownFinal, "Firewall is DOWN, fix the firewall!")
}

func (d *diagnosis) emit(ev domain.StatusEvent) error {
	if _, err := d.sink.Publish(ev); err != nil {
		return fmt.Errorf("emit %q: %w", ev.Message, err)
	}
	return nil
}

// fail publishes the terminal error event and returns the matching fault.
func (d *diagnosis) fail(f domain.Fault, msg string) error {
	if err := d.emit(domain.Error(f, "%s", msg)); err != nil {
		return err
	}
	return &domain.FaultError{Fault: f, Message: msg}
}

func (d *diagnosis) hasAddress() (bool, error) {
	start := time.Now()
	ok, err := d.e.Addresses.HasAddress(d.iface)
	d.e.Timings.Observe("address", time.Since(start))
	d.e.Logger.Debug("probe_address",
		zap.String("interface", d.iface),
		zap.Bool("ok", ok),
		zap.Error(err),
	)
	return ok, err
}

func (d *diagnosis) testDHCP() bool {
	start := time.Now()
	ok := d.e.DHCP.TestDHCP(d.ctx, d.iface)
	took := time.Since(start)
	d.e.Timings.Observe("dhcp", took)
	d.e.Logger.Info("probe_dhcp",
		zap.String("interface", d.iface),
		zap.Bool("ok", ok),
		zap.Duration("took", took),
	)
	return ok
}

func (d *diagnosis) ping(step, target string) bool {
	start := time.Now()
	ok := d.e.Pinger.CanPing(d.ctx, target)
	took := time.Since(start)
	d.e.Timings.Observe("ping", took)
	d.e.Logger.Info("probe_ping",
		zap.String("interface", d.iface),
		zap.String("step", step),
		zap.String("target", target),
		zap.Bool("ok", ok),
		zap.Duration("took", took),
	)
	return ok
}

// gateway resolves the first-hop router once per run.
func (d *diagnosis) gateway() string {
	if d.gw != "" {
		return d.gw
	}
	var (
		gw  string
		err error
	)
	if d.e.Gateways != nil {
		gw, err = d.e.Gateways.Gateway(d.iface)
	}
	if err != nil || gw == "" {
		d.e.Logger.Warn("gateway_fallback",
			zap.String("interface", d.iface),
			zap.String("gateway", probe.DefaultGateway),
			zap.Error(err),
		)
		gw = probe.DefaultGateway
	}
	d.gw = gw
	return gw
}

func (d *diagnosis) logDNS(name string) {
	if d.e.Resolver == nil {
		return
	}
	dns := probe.CheckDNS(d.ctx, d.e.Resolver, name)
	d.e.Logger.Info("dns_check",
		zap.String("domain", dns.Domain),
		zap.String("class", string(dns.Class)),
		zap.Int("a_records", len(dns.IPs)),
		zap.Strings("nameservers", dns.Nameservers),
		zap.String("cname", dns.CNAME),
		zap.String("resolver_error", dns.ResolverError),
	)
}
