// Package localnet finds the private networks attached to the local interfaces.
package localnet

import (
	"net"
	"net/netip"

	"github.com/projectdiscovery/pingtop/pkg/expand"
)

const (
	// IPv4Bits is the prefix length local IPv4 networks are widened or narrowed to
	IPv4Bits = 24
	// IPv6Bits is the prefix length local IPv6 networks are narrowed to
	IPv6Bits = 120
)

// Networks returns the private networks of the up, non-loopback interfaces for
// family: IPv4 private addresses as /24, IPv6 unique local addresses as /120
func Networks(family expand.Family) ([]netip.Prefix, error) {
	interfaces, err := net.Interfaces()
	if err != nil {
		return nil, err
	}

	var networks []netip.Prefix
	seen := make(map[netip.Prefix]struct{})

	for _, iface := range interfaces {
		// Skip loopback and down interfaces
		if iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		if iface.Flags&net.FlagUp == 0 {
			continue
		}

		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}

		for _, addr := range addrs {
			ipNet, ok := addr.(*net.IPNet)
			if !ok {
				continue
			}

			network, ok := scanPrefix(ipNet.IP, family)
			if !ok {
				continue
			}

			// Avoid duplicates
			if _, exists := seen[network]; exists {
				continue
			}
			seen[network] = struct{}{}
			networks = append(networks, network)
		}
	}

	return networks, nil
}

// scanPrefix returns the network to sweep around ip, if ip is a private address of family
func scanPrefix(ip net.IP, family expand.Family) (netip.Prefix, bool) {
	addr, ok := netip.AddrFromSlice(ip)
	if !ok {
		return netip.Prefix{}, false
	}
	addr = addr.Unmap()

	if !family.Matches(addr) || addr.IsLoopback() || addr.IsMulticast() {
		return netip.Prefix{}, false
	}
	// Link-local IPv6 needs a zone to be reachable, so only ULA qualifies
	if !addr.IsPrivate() {
		return netip.Prefix{}, false
	}

	bits := IPv4Bits
	if family == expand.FamilyIPv6 {
		bits = IPv6Bits
	}
	return netip.PrefixFrom(addr, bits).Masked(), true
}
