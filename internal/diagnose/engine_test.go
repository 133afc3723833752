package diagnose

import (
	"context"
	"errors"
	"net"
	"reflect"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/hamed0406/nettester/internal/domain"
	"github.com/hamed0406/nettester/internal/events"
	"github.com/hamed0406/nettester/internal/metrics"
	"github.com/hamed0406/nettester/internal/probe"
)

// ---- fakes ----

type fakeAddrs struct {
	ok  bool
	err error
}

func (f fakeAddrs) HasAddress(string) (bool, error) { return f.ok, f.err }

type fakePinger struct {
	mu        sync.Mutex
	reachable map[string]bool
	calls     []string
}

func (f *fakePinger) CanPing(_ context.Context, target string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, target)
	return f.reachable[target]
}

type fakeDHCP bool

func (f fakeDHCP) TestDHCP(context.Context, string) bool { return bool(f) }

type countingGateway struct {
	gw    string
	err   error
	calls int
}

func (c *countingGateway) Gateway(string) (string, error) {
	c.calls++
	return c.gw, c.err
}

type recordingSink struct {
	evs []domain.StatusEvent
}

func (s *recordingSink) Publish(ev domain.StatusEvent) (domain.StatusEvent, error) {
	ev.Seq = int64(len(s.evs)) + 1
	s.evs = append(s.evs, ev)
	return ev, nil
}

type env struct {
	hasIP   bool
	dhcp    bool
	gateway bool
	name    bool
	address bool
}

func newTestEngine(e env) (*Engine, *fakePinger) {
	p := &fakePinger{reachable: map[string]bool{
		"192.168.1.1": e.gateway,
		"google.com":  e.name,
		"8.8.8.8":     e.address,
	}}
	eng := NewEngine(zap.NewNop(), fakeAddrs{ok: e.hasIP}, p, fakeDHCP(e.dhcp), probe.StaticGateway("192.168.1.1"))
	return eng, p
}

func severities(evs []domain.StatusEvent) []domain.Severity {
	out := make([]domain.Severity, len(evs))
	for i, ev := range evs {
		out[i] = ev.Severity
	}
	return out
}

func assertOneTerminalLast(t *testing.T, evs []domain.StatusEvent) {
	t.Helper()
	if len(evs) == 0 {
		t.Fatalf("run produced no events")
	}
	for i, ev := range evs {
		last := i == len(evs)-1
		if ev.Severity.Terminal() != last {
			t.Fatalf("event %d (%s) terminal=%v, want terminal only at the end", i, ev, ev.Severity.Terminal())
		}
	}
}

// ---- tests ----

func TestRun_DecisionTree(t *testing.T) {
	W, E, G := domain.SeverityWorking, domain.SeverityError, domain.SeverityGood
	cases := []struct {
		name      string
		env       env
		fault     domain.Fault
		sevs      []domain.Severity
		pingCalls []string
	}{
		{
			name:  "no address",
			env:   env{hasIP: false, dhcp: true, name: true},
			fault: domain.FaultNoAddress,
			sevs:  []domain.Severity{E},
		},
		{
			name:      "dhcp fails, gateway up",
			env:       env{hasIP: true, dhcp: false, gateway: true},
			fault:     domain.FaultFirewallUp,
			sevs:      []domain.Severity{W, W, E},
			pingCalls: []string{"192.168.1.1"},
		},
		{
			name:      "dhcp fails, gateway down",
			env:       env{hasIP: true, dhcp: false, gateway: false, name: true},
			fault:     domain.FaultFirewallDown,
			sevs:      []domain.Severity{W, W, E},
			pingCalls: []string{"192.168.1.1"},
		},
		{
			name:      "internet working",
			env:       env{hasIP: true, dhcp: true, name: true},
			sevs:      []domain.Severity{W, W, G},
			pingCalls: []string{"google.com"},
		},
		{
			name:      "dns failure",
			env:       env{hasIP: true, dhcp: true, name: false, address: true},
			fault:     domain.FaultDNSFailure,
			sevs:      []domain.Severity{W, W, W, E},
			pingCalls: []string{"google.com", "8.8.8.8"},
		},
		{
			name:      "internet down, gateway up",
			env:       env{hasIP: true, dhcp: true, gateway: true},
			fault:     domain.FaultFirewallUpISP,
			sevs:      []domain.Severity{W, W, W, W, E},
			pingCalls: []string{"google.com", "8.8.8.8", "192.168.1.1"},
		},
		{
			name:      "internet down, gateway down",
			env:       env{hasIP: true, dhcp: true},
			fault:     domain.FaultFirewallDownFinal,
			sevs:      []domain.Severity{W, W, W, W, E},
			pingCalls: []string{"google.com", "8.8.8.8", "192.168.1.1"},
		},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			eng, pinger := newTestEngine(c.env)
			sink := &recordingSink{}
			err := eng.Run(context.Background(), "eth0", sink)

			if c.fault == "" {
				if err != nil {
					t.Fatalf("want success, got %v", err)
				}
			} else if f, ok := domain.AsFault(err); !ok || f != c.fault {
				t.Fatalf("want fault %s, got %v", c.fault, err)
			}
			if got := severities(sink.evs); !reflect.DeepEqual(got, c.sevs) {
				t.Fatalf("severities=%v want %v (%v)", got, c.sevs, sink.evs)
			}
			assertOneTerminalLast(t, sink.evs)
			if !reflect.DeepEqual(pinger.calls, c.pingCalls) {
				t.Fatalf("ping order=%v want %v", pinger.calls, c.pingCalls)
			}
			if last := sink.evs[len(sink.evs)-1]; c.fault != "" && last.Fault != c.fault {
				t.Fatalf("terminal event fault=%s want %s", last.Fault, c.fault)
			}
		})
	}
}

func TestRun_NoAddressScenario(t *testing.T) {
	eng, _ := newTestEngine(env{})
	sink := &recordingSink{}
	err := eng.Run(context.Background(), "eth0", sink)

	var fe *domain.FaultError
	if !errors.As(err, &fe) || fe.Fault != domain.FaultNoAddress {
		t.Fatalf("want NO_ADDRESS, got %v", err)
	}
	if len(sink.evs) != 1 || sink.evs[0].Message != "FAILED, local interface does not have an IP!" {
		t.Fatalf("unexpected events: %v", sink.evs)
	}
	if fe.Message != sink.evs[0].Message {
		t.Fatalf("fault message %q should match event %q", fe.Message, sink.evs[0].Message)
	}
}

func TestRun_HappyPathMessages(t *testing.T) {
	eng, _ := newTestEngine(env{hasIP: true, dhcp: true, name: true})
	sink := &recordingSink{}
	if err := eng.Run(context.Background(), "eth0", sink); err != nil {
		t.Fatalf("run: %v", err)
	}
	want := []string{
		"Interface eth0 appears to be active.",
		"DHCP works!",
		"Internet is working.",
	}
	for i, ev := range sink.evs {
		if ev.Message != want[i] {
			t.Fatalf("event %d = %q want %q", i, ev.Message, want[i])
		}
	}
}

func TestRun_Idempotent(t *testing.T) {
	e := env{hasIP: true, dhcp: true, address: true}
	var faults []domain.Fault
	for i := 0; i < 3; i++ {
		eng, _ := newTestEngine(e)
		f, _ := domain.AsFault(eng.Run(context.Background(), "eth0", &recordingSink{}))
		faults = append(faults, f)
	}
	for _, f := range faults {
		if f != domain.FaultDNSFailure {
			t.Fatalf("repeated runs disagree: %v", faults)
		}
	}
}

func TestRun_EnumerationFailureIsFatal(t *testing.T) {
	eng, _ := newTestEngine(env{})
	eng.Addresses = fakeAddrs{err: probe.ErrEnumeration}
	sink := &recordingSink{}

	err := eng.Run(context.Background(), "eth0", sink)
	if !errors.Is(err, probe.ErrEnumeration) {
		t.Fatalf("want ErrEnumeration, got %v", err)
	}
	if _, ok := domain.AsFault(err); ok {
		t.Fatalf("enumeration failure must not look like a diagnosed fault")
	}
	if len(sink.evs) != 0 {
		t.Fatalf("no events expected, got %v", sink.evs)
	}
}

func TestRun_ClosedSinkIsFatal(t *testing.T) {
	eng, pinger := newTestEngine(env{hasIP: true, dhcp: true, name: true})
	s := events.NewStream("r")
	s.Close()

	err := eng.Run(context.Background(), "eth0", s)
	if !errors.Is(err, events.ErrStreamClosed) {
		t.Fatalf("want ErrStreamClosed, got %v", err)
	}
	if len(pinger.calls) != 0 {
		t.Fatalf("run should stop at the first failed emit, pinged %v", pinger.calls)
	}
}

func TestRun_GatewayResolvedOnceWithFallback(t *testing.T) {
	eng, pinger := newTestEngine(env{hasIP: true, dhcp: true, gateway: true})
	gw := &countingGateway{err: probe.ErrNoDefaultRoute}
	eng.Gateways = gw

	_, err := eng.run(context.Background(), "eth0", &recordingSink{})
	if f, _ := domain.AsFault(err); f != domain.FaultFirewallUpISP {
		t.Fatalf("want FIREWALL_UP_ISP via fallback gateway, got %v", err)
	}
	if gw.calls != 1 {
		t.Fatalf("gateway looked up %d times, want 1", gw.calls)
	}
	if last := pinger.calls[len(pinger.calls)-1]; last != probe.DefaultGateway {
		t.Fatalf("want fallback %s, pinged %s", probe.DefaultGateway, last)
	}
}

func TestRun_DetectedGatewayIsUsed(t *testing.T) {
	eng, pinger := newTestEngine(env{hasIP: true, dhcp: false})
	pinger.reachable["10.0.0.1"] = true
	eng.Gateways = &countingGateway{gw: "10.0.0.1"}

	gw, err := eng.run(context.Background(), "eth0", &recordingSink{})
	if f, _ := domain.AsFault(err); f != domain.FaultFirewallUp {
		t.Fatalf("want FIREWALL_UP, got %v", err)
	}
	if gw != "10.0.0.1" {
		t.Fatalf("gateway=%s want 10.0.0.1", gw)
	}
}

func TestRun_ConfigurableTargetsAndTimings(t *testing.T) {
	eng, pinger := newTestEngine(env{hasIP: true, dhcp: true})
	pinger.reachable["example.org"] = true
	eng.NameTarget = "example.org"
	eng.Timings = metrics.NewProbeTimings()

	if err := eng.Run(context.Background(), "eth0", &recordingSink{}); err != nil {
		t.Fatalf("run: %v", err)
	}
	snap := eng.Timings.Snapshot()
	if len(snap) != 3 {
		t.Fatalf("want address, dhcp and ping timings, got %+v", snap)
	}
}

type fakeResolver struct{ asked int }

func (f *fakeResolver) LookupIP(context.Context, string, string) ([]net.IP, error) {
	f.asked++
	return nil, &net.DNSError{Err: "server misbehaving", IsTemporary: true}
}
func (f *fakeResolver) LookupCNAME(context.Context, string) (string, error) {
	return "", &net.DNSError{}
}
func (f *fakeResolver) LookupNS(context.Context, string) ([]*net.NS, error) {
	return nil, &net.DNSError{}
}

func TestRun_DNSFailureConsultsResolver(t *testing.T) {
	eng, _ := newTestEngine(env{hasIP: true, dhcp: true, address: true})
	r := &fakeResolver{}
	eng.Resolver = r

	err := eng.Run(context.Background(), "eth0", &recordingSink{})
	if f, _ := domain.AsFault(err); f != domain.FaultDNSFailure {
		t.Fatalf("want DNS_FAILURE, got %v", err)
	}
	if r.asked != 1 {
		t.Fatalf("resolver asked %d times, want 1", r.asked)
	}
}

func TestStart_StreamsAndSummarizes(t *testing.T) {
	eng, _ := newTestEngine(env{hasIP: true, dhcp: true, name: false, address: false, gateway: false})
	run := eng.Start("eth0")

	select {
	case <-run.Done():
	case <-time.After(2 * time.Second):
		t.Fatalf("run did not finish")
	}
	if f, _ := domain.AsFault(run.Wait()); f != domain.FaultFirewallDownFinal {
		t.Fatalf("want FIREWALL_DOWN_FINAL, got %v", run.Wait())
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if _, done, err := run.Events.Wait(ctx, 5); err != nil || !done {
		t.Fatalf("stream not finished: done=%v err=%v", done, err)
	}
	evs := run.Events.Since(0)
	if len(evs) != 5 {
		t.Fatalf("want 5 events, got %d", len(evs))
	}
	for i, ev := range evs {
		if ev.Seq != int64(i+1) || ev.RunID != run.ID {
			t.Fatalf("event %d has seq=%d run=%s", i, ev.Seq, ev.RunID)
		}
	}

	s := run.Summary()
	if s.Verdict != domain.VerdictFault || s.Fault != domain.FaultFirewallDownFinal || s.FinishedAt == nil {
		t.Fatalf("unexpected summary: %+v", s)
	}
	if s.Gateway != "192.168.1.1" {
		t.Fatalf("summary gateway=%s", s.Gateway)
	}
}

func TestStart_AbortedSummary(t *testing.T) {
	eng, _ := newTestEngine(env{})
	eng.Addresses = fakeAddrs{err: errors.New("boom")}
	run := eng.Start("eth0")
	_ = run.Wait()

	s := run.Summary()
	if s.Verdict != domain.VerdictAborted || s.Error == "" {
		t.Fatalf("want aborted summary, got %+v", s)
	}
}
