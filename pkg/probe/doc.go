// Package probe measures round-trip times to single hosts using ICMP echo.
//
// A Client owns one ICMP socket per address family and is shared by every
// host of that family. Each host gets its own Session with a random echo
// identifier; replies are matched back to the waiting session by peer address,
// identifier and sequence number.
//
// A Prober drives one host's sequence: a fixed number of exchanges paced on a
// fixed interval. Lost or failed exchanges are dropped, never retried.
//
// Example usage:
//
//	client, err := probe.NewClient(expand.FamilyIPv4, probe.Config{Privileged: true})
//	defer client.Close()
//	prober, err := probe.New(probe.DefaultOptions())
//	result, err := prober.Probe(ctx, client, netip.MustParseAddr("1.1.1.1"))
//
// Privilege Requirements:
// - Raw ICMP sockets require root or CAP_NET_RAW
// - Unprivileged mode needs net.ipv4.ping_group_range to include the user on Linux
package probe
