package probe

import (
	"net/netip"
	"time"

	"github.com/VividCortex/ewma"
)

// Result is the outcome of one host's probe sequence
type Result struct {
	Addr netip.Addr
	// RTTs holds the round-trip times of the successful exchanges, in sequence order
	RTTs []time.Duration
	// Attempts is the number of exchanges that were started
	Attempts int
}

// Received returns the number of successful exchanges
func (r Result) Received() int {
	return len(r.RTTs)
}

// Loss returns the fraction of attempts that got no reply
func (r Result) Loss() float64 {
	if r.Attempts == 0 {
		return 0
	}
	return float64(r.Attempts-len(r.RTTs)) / float64(r.Attempts)
}

// Mean returns the arithmetic mean of the successful RTTs, zero if there are none
func (r Result) Mean() time.Duration {
	if len(r.RTTs) == 0 {
		return 0
	}
	var total time.Duration
	for _, rtt := range r.RTTs {
		total += rtt
	}
	return total / time.Duration(len(r.RTTs))
}

// Min returns the fastest successful RTT, zero if there are none
func (r Result) Min() time.Duration {
	var lowest time.Duration
	for i, rtt := range r.RTTs {
		if i == 0 || rtt < lowest {
			lowest = rtt
		}
	}
	return lowest
}

// Max returns the slowest successful RTT, zero if there are none
func (r Result) Max() time.Duration {
	var highest time.Duration
	for _, rtt := range r.RTTs {
		if rtt > highest {
			highest = rtt
		}
	}
	return highest
}

// Smoothed returns the exponentially weighted moving average of the RTTs
func (r Result) Smoothed() time.Duration {
	if len(r.RTTs) == 0 {
		return 0
	}
	e := ewma.NewMovingAverage()
	for _, rtt := range r.RTTs {
		e.Add(float64(rtt))
	}
	return time.Duration(e.Value())
}
