// Package expand turns address specifications into the concrete set of
// addresses to probe.
//
// A specification is either a bare host address ("192.168.1.10", "2001:db8::1")
// or a network prefix ("192.168.1.0/24", "2001:db8::/120") tagged with the
// address family it must belong to.
//
// Expansion is mechanical: a prefix is subdivided into units of the configured
// granularity (host granularity by default) and the network address of every
// unit is returned in ascending order. Network and all-ones addresses are not
// filtered out.
//
// Example usage:
//
//	family, err := expand.ParseFamily("ipv4")
//	addrs, err := expand.Expander{}.Expand(expand.Spec{Value: "192.168.1.0/30", Family: family})
//	// 192.168.1.0 192.168.1.1 192.168.1.2 192.168.1.3
package expand
