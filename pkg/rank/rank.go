// Package rank turns probe results into an ascending latency ranking.
package rank

import (
	"net/netip"
	"sort"
	"time"

	"github.com/projectdiscovery/pingtop/pkg/probe"
)

// DefaultTopN is the number of hosts reported when no limit is configured
const DefaultTopN = 10

// Entry is one ranked host
type Entry struct {
	Addr     netip.Addr
	Mean     time.Duration
	Smoothed time.Duration
	Min      time.Duration
	Max      time.Duration
	Sent     int
	Received int
}

// Millis returns the mean round-trip time in whole milliseconds, rounded down
func (e Entry) Millis() int64 {
	return e.Mean.Milliseconds()
}

// Loss returns the fraction of echo requests that got no reply
func (e Entry) Loss() float64 {
	if e.Sent == 0 {
		return 0
	}
	return float64(e.Sent-e.Received) / float64(e.Sent)
}

// Options configures Rank
type Options struct {
	// TopN is the maximum number of entries returned
	TopN int
	// KeepSubMillisecond keeps hosts whose mean floors to 0ms.
	// By default they are dropped along with hosts that never answered.
	KeepSubMillisecond bool
}

// Rank drops hosts without a usable mean, sorts the rest by ascending mean
// and truncates to opts.TopN. Equal means keep their input order.
func Rank(results []probe.Result, opts Options) []Entry {
	if opts.TopN <= 0 {
		return []Entry{}
	}

	entries := make([]Entry, 0, len(results))
	for _, result := range results {
		if result.Received() == 0 {
			continue
		}
		mean := result.Mean()
		if mean <= 0 {
			continue
		}
		if !opts.KeepSubMillisecond && mean.Milliseconds() == 0 {
			continue
		}

		entries = append(entries, Entry{
			Addr:     result.Addr,
			Mean:     mean,
			Smoothed: result.Smoothed(),
			Min:      result.Min(),
			Max:      result.Max(),
			Sent:     result.Attempts,
			Received: result.Received(),
		})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Mean < entries[j].Mean
	})

	if len(entries) > opts.TopN {
		entries = entries[:opts.TopN]
	}
	return entries
}
