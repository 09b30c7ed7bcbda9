package expand

import (
	"errors"
	"fmt"
	"net/netip"
	"strings"

	"github.com/projectdiscovery/mapcidr"
	"go4.org/netipx"
)

// MaxAddresses caps the number of addresses a single specification may expand to
const MaxAddresses = 1 << 24

// Spec is a textual address or network prefix plus the family it must belong to
type Spec struct {
	Value  string
	Family Family
}

// Expander expands specifications into concrete addresses
type Expander struct {
	// Granularity is the prefix length of the units a network is split into.
	// Zero means host granularity (/32 for IPv4, /128 for IPv6).
	Granularity int
}

// Expand returns the network address of every /Granularity unit inside spec,
// in ascending order. A bare address expands to itself.
func (e Expander) Expand(spec Spec) ([]netip.Addr, error) {
	if !spec.Family.Valid() {
		return nil, fmt.Errorf("%w: %q has no address family", ErrInvalidMode, spec.Value)
	}

	prefix, isPrefix, err := parseSpec(spec)
	if err != nil {
		return nil, err
	}
	if !isPrefix {
		return []netip.Addr{prefix.Addr()}, nil
	}

	bits := spec.Family.Bits()
	granularity := e.Granularity
	if granularity == 0 {
		granularity = bits
	}
	if granularity < 0 || granularity > bits {
		return nil, fmt.Errorf("%w: /%d for %s", ErrInvalidGranularity, granularity, spec.Family)
	}
	if granularity < prefix.Bits() {
		return nil, fmt.Errorf("%w: cannot split %s into /%d", ErrPrefixTooNarrow, prefix, granularity)
	}

	unitBits := granularity - prefix.Bits()
	if unitBits > 24 {
		return nil, fmt.Errorf("%w: %s yields 2^%d addresses (max %d)", ErrRangeTooLarge, prefix, unitBits, MaxAddresses)
	}
	count := 1 << unitBits

	if granularity == bits {
		return hostAddresses(prefix, spec.Family, count)
	}
	return unitAddresses(prefix, granularity, count), nil
}

// ExpandAll expands specs in order and drops addresses an earlier spec already
// produced. Unparseable specs are always skipped; other expansion errors skip
// that Spec unless strict is set, in which case expansion stops and no
// addresses are returned.
func (e Expander) ExpandAll(specs []Spec, strict bool) ([]netip.Addr, []error) {
	var (
		addrs []netip.Addr
		errs  []error
	)
	seen := make(map[netip.Addr]struct{})

	for _, spec := range specs {
		expanded, err := e.Expand(spec)
		if err != nil {
			errs = append(errs, err)
			if strict && !errors.Is(err, ErrInvalidAddress) {
				return nil, errs
			}
			continue
		}

		for _, addr := range expanded {
			if _, exists := seen[addr]; exists {
				continue
			}
			seen[addr] = struct{}{}
			addrs = append(addrs, addr)
		}
	}

	return addrs, errs
}

// parseSpec parses spec into a masked prefix; isPrefix is false for bare addresses
func parseSpec(spec Spec) (prefix netip.Prefix, isPrefix bool, err error) {
	value := strings.TrimSpace(spec.Value)

	if strings.Contains(value, "/") {
		prefix, err = netip.ParsePrefix(value)
		if err != nil {
			return netip.Prefix{}, false, fmt.Errorf("%w: %q: %v", ErrInvalidAddress, value, err)
		}
		if !spec.Family.Matches(prefix.Addr()) {
			return netip.Prefix{}, false, fmt.Errorf("%w: %q is not an %s prefix", ErrInvalidAddress, value, spec.Family)
		}
		return prefix.Masked(), true, nil
	}

	addr, err := netip.ParseAddr(value)
	if err != nil {
		return netip.Prefix{}, false, fmt.Errorf("%w: %q: %v", ErrInvalidAddress, value, err)
	}
	if !spec.Family.Matches(addr) {
		return netip.Prefix{}, false, fmt.Errorf("%w: %q is not an %s address", ErrInvalidAddress, value, spec.Family)
	}
	return netip.PrefixFrom(addr, addr.BitLen()), false, nil
}

// hostAddresses enumerates every address of prefix
func hostAddresses(prefix netip.Prefix, family Family, count int) ([]netip.Addr, error) {
	ips, err := mapcidr.IPAddresses(prefix.String())
	if err != nil {
		return nil, fmt.Errorf("%w: failed to expand CIDR %s: %v", ErrInvalidAddress, prefix, err)
	}

	return parseAddresses(ips, family, count)
}

// parseAddresses converts expanded address strings, failing on the first one
// that does not parse so a prefix never yields fewer addresses than it holds
func parseAddresses(ips []string, family Family, count int) ([]netip.Addr, error) {
	addrs := make([]netip.Addr, 0, count)
	for _, ip := range ips {
		addr, err := netip.ParseAddr(ip)
		if err != nil {
			return nil, fmt.Errorf("%w: expanded address %q: %v", ErrInvalidAddress, ip, err)
		}
		if family == FamilyIPv4 {
			addr = addr.Unmap()
		}
		addrs = append(addrs, addr)
	}
	return addrs, nil
}

// unitAddresses walks prefix in /granularity steps, returning each unit's network address
func unitAddresses(prefix netip.Prefix, granularity, count int) []netip.Addr {
	addrs := make([]netip.Addr, 0, count)
	unit := netip.PrefixFrom(prefix.Addr(), granularity)

	for i := 0; i < count; i++ {
		addrs = append(addrs, unit.Addr())

		next := netipx.RangeOfPrefix(unit).To().Next()
		if !next.IsValid() {
			break
		}
		unit = netip.PrefixFrom(next, granularity)
	}
	return addrs
}
