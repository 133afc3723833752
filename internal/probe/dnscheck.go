package probe

import (
	"context"
	"errors"
	"net"
	"strings"
	"time"
)

// Resolver is the subset of *net.Resolver used by CheckDNS.
type Resolver interface {
	LookupIP(ctx context.Context, network, host string) ([]net.IP, error)
	LookupCNAME(ctx context.Context, host string) (string, error)
	LookupNS(ctx context.Context, name string) ([]*net.NS, error)
}

// DNSClass names why a name did or did not resolve.
type DNSClass string

const (
	DNSResolves    DNSClass = "RESOLVES"
	DNSNXDomain    DNSClass = "NXDOMAIN"
	DNSNoARecord   DNSClass = "NO_A_RECORD"
	DNSServFail    DNSClass = "SERVFAIL_or_TIMEOUT"
	DNSInvalidName DNSClass = "INVALID_NAME"
)

// DNSStatus is logged when the name target fails but the address target
// answers. It never changes the diagnosis.
type DNSStatus struct {
	Domain        string
	IPs           []net.IP
	CNAME         string
	Nameservers   []string
	Class         DNSClass
	ResolverError string
}

var dnsTimeout = 3 * time.Second

// CheckDNS asks r about name. Only IPv4 answers count.
func CheckDNS(ctx context.Context, r Resolver, name string) DNSStatus {
	s := DNSStatus{Domain: strings.TrimSpace(name)}
	if s.Domain == "" || net.ParseIP(s.Domain) != nil {
		s.Class = DNSInvalidName
		return s
	}
	if r == nil {
		r = net.DefaultResolver
	}

	ctx, cancel := context.WithTimeout(ctx, dnsTimeout)
	defer cancel()

	ips, ipErr := r.LookupIP(ctx, "ip4", s.Domain)
	s.IPs = ips
	if ipErr != nil {
		s.ResolverError = ipErr.Error()
	}
	if cname, err := r.LookupCNAME(ctx, s.Domain); err == nil && !strings.EqualFold(cname, s.Domain+".") {
		s.CNAME = strings.TrimSuffix(cname, ".")
	}
	if ns, err := r.LookupNS(ctx, s.Domain); err == nil {
		for _, n := range ns {
			s.Nameservers = append(s.Nameservers, strings.TrimSuffix(n.Host, "."))
		}
	}

	s.Class = classify(len(ips) > 0, len(s.Nameservers) > 0, ipErr)
	return s
}

func classify(hasA, hasNS bool, err error) DNSClass {
	switch {
	case hasA:
		return DNSResolves
	case hasNS:
		// the zone exists, it just has no IPv4 answer
		return DNSNoARecord
	}
	var de *net.DNSError
	if errors.As(err, &de) && de.IsNotFound {
		return DNSNXDomain
	}
	if err != nil {
		return DNSServFail
	}
	return DNSNXDomain
}
