package probe

import (
	"errors"
	"fmt"
	"net"
)

// ErrEnumeration means the OS interface list could not be read. The
// diagnostic cannot run at all in that case.
var ErrEnumeration = errors.New("interface enumeration failed")

// Interface is one OS network interface and the addresses bound to it.
type Interface struct {
	Name  string
	Addrs []net.Addr
}

// AddressBook looks up interface addresses fresh on every call.
type AddressBook struct {
	list func() ([]Interface, error)
}

func NewAddressBook() *AddressBook {
	return &AddressBook{list: systemInterfaces}
}

// NewAddressBookForTests builds an AddressBook over a fixed enumerator.
func NewAddressBookForTests(list func() ([]Interface, error)) *AddressBook {
	return &AddressBook{list: list}
}

// GetAddress returns the first IPv4 address bound to iface, or nil when the
// interface has none or does not exist.
func (b *AddressBook) GetAddress(iface string) (net.IP, error) {
	ifs, err := b.list()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEnumeration, err)
	}
	for _, ifc := range ifs {
		if ifc.Name != iface {
			continue
		}
		for _, a := range ifc.Addrs {
			if ip := ipv4Of(a); ip != nil {
				return ip, nil
			}
		}
	}
	return nil, nil
}

func (b *AddressBook) HasAddress(iface string) (bool, error) {
	ip, err := b.GetAddress(iface)
	if err != nil {
		return false, err
	}
	return ip != nil, nil
}

func ipv4Of(a net.Addr) net.IP {
	var ip net.IP
	switch v := a.(type) {
	case *net.IPNet:
		ip = v.IP
	case *net.IPAddr:
		ip = v.IP
	default:
		return nil
	}
	return ip.To4()
}

func systemInterfaces() ([]Interface, error) {
	ifs, err := net.Interfaces()
	if err != nil {
		return nil, err
	}
	out := make([]Interface, 0, len(ifs))
	for _, ifc := range ifs {
		addrs, err := ifc.Addrs()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", ifc.Name, err)
		}
		out = append(out, Interface{Name: ifc.Name, Addrs: addrs})
	}
	return out, nil
}
