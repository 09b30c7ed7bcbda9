// Package sweep fans probe sequences out over a set of addresses.
//
// Every address is probed by an independent task. Tasks share only the
// per-family ICMP client and hand their results back over a channel to a
// single collector, so no aggregation state is shared between them. A task
// that cannot open its session is logged and dropped without affecting the
// rest of the sweep.
//
// Example usage:
//
//	sweeper := sweep.New(prober, map[expand.Family]probe.Pinger{expand.FamilyIPv4: client}, sweep.Options{Concurrency: 1000})
//	results := sweeper.Run(ctx, addrs)
package sweep
