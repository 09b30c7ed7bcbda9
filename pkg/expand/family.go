package expand

import (
	"fmt"
	"net/netip"
	"strings"
)

// Family is the address family a specification is expanded and probed under
type Family int

const (
	// FamilyIPv4 expands and probes 32-bit addresses
	FamilyIPv4 Family = iota + 1
	// FamilyIPv6 expands and probes 128-bit addresses
	FamilyIPv6
)

// ParseFamily parses a mode selector ("ipv4" or "ipv6")
func ParseFamily(mode string) (Family, error) {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "ipv4":
		return FamilyIPv4, nil
	case "ipv6":
		return FamilyIPv6, nil
	}
	return 0, fmt.Errorf("%w: %q (must be ipv4 or ipv6)", ErrInvalidMode, mode)
}

// FamilyOf returns the family of addr. IPv4-mapped IPv6 addresses are IPv6.
func FamilyOf(addr netip.Addr) Family {
	switch {
	case addr.Is4():
		return FamilyIPv4
	case addr.Is6():
		return FamilyIPv6
	}
	return 0
}

func (f Family) String() string {
	switch f {
	case FamilyIPv4:
		return "ipv4"
	case FamilyIPv6:
		return "ipv6"
	}
	return "unknown"
}

// Bits returns the address length in bits, 0 for an unknown family
func (f Family) Bits() int {
	switch f {
	case FamilyIPv4:
		return 32
	case FamilyIPv6:
		return 128
	}
	return 0
}

// Valid reports whether f is ipv4 or ipv6
func (f Family) Valid() bool {
	return f == FamilyIPv4 || f == FamilyIPv6
}

// Matches reports whether addr belongs to f
func (f Family) Matches(addr netip.Addr) bool {
	return f.Valid() && FamilyOf(addr) == f
}
