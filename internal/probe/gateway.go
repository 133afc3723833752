package probe

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"strconv"
	"strings"
)

// DefaultGateway is used when no gateway is configured or detected.
const DefaultGateway = "192.168.1.1"

var ErrNoDefaultRoute = errors.New("no default route")

// GatewayLocator finds the first-hop router for an interface.
type GatewayLocator interface {
	Gateway(iface string) (string, error)
}

// StaticGateway always answers with the configured address.
type StaticGateway string

func (g StaticGateway) Gateway(string) (string, error) {
	return string(g), nil
}

// RouteTableGateway reads the kernel IPv4 routing table (/proc/net/route)
// and returns the gateway of the interface's default route.
type RouteTableGateway struct {
	Path string
	open func(string) (io.ReadCloser, error)
}

func NewRouteTableGateway() *RouteTableGateway {
	return &RouteTableGateway{Path: "/proc/net/route"}
}

const rtfGateway = 0x2

func (g *RouteTableGateway) Gateway(iface string) (string, error) {
	open := g.open
	if open == nil {
		open = func(p string) (io.ReadCloser, error) { return os.Open(p) }
	}
	f, err := open(g.Path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	return parseRouteTable(f, iface)
}

func parseRouteTable(r io.Reader, iface string) (string, error) {
	sc := bufio.NewScanner(r)
	header := true
	for sc.Scan() {
		if header {
			header = false
			continue
		}
		fields := strings.Fields(sc.Text())
		if len(fields) < 4 || fields[0] != iface || fields[1] != "00000000" {
			continue
		}
		flags, err := strconv.ParseUint(fields[3], 16, 32)
		if err != nil || flags&rtfGateway == 0 {
			continue
		}
		v, err := strconv.ParseUint(fields[2], 16, 32)
		if err != nil {
			return "", fmt.Errorf("bad gateway field %q: %w", fields[2], err)
		}
		// host byte order, little-endian
		ip := net.IPv4(byte(v), byte(v>>8), byte(v>>16), byte(v>>24))
		return ip.String(), nil
	}
	if err := sc.Err(); err != nil {
		return "", err
	}
	return "", fmt.Errorf("%s: %w", iface, ErrNoDefaultRoute)
}
