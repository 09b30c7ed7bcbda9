package probe

import (
	"context"
	"errors"
	"fmt"
	"net/netip"
	"time"
)

const (
	// DefaultAttempts is the number of echo exchanges per host
	DefaultAttempts = 4
	// DefaultInterval is the spacing between exchanges to the same host
	DefaultInterval = time.Second
	// DefaultTimeout is how long each exchange waits for its reply
	DefaultTimeout  = 2 * time.Second
)

// Options configures a host's probe sequence
type Options struct {
	// Attempts is the number of echo exchanges per host
	Attempts int
	// Interval is the spacing between consecutive exchanges
	Interval time.Duration
	// Timeout bounds the wait for each reply
	Timeout time.Duration
}

// DefaultOptions returns 4 exchanges one second apart with a 2s reply timeout
func DefaultOptions() Options {
	return Options{
		Attempts: DefaultAttempts,
		Interval: DefaultInterval,
		Timeout:  DefaultTimeout,
	}
}

// Validate checks that the options describe a runnable sequence
func (o Options) Validate() error {
	if o.Attempts < 1 {
		return fmt.Errorf("attempts must be at least 1, got %d", o.Attempts)
	}
	if o.Attempts > 0xffff+1 {
		return fmt.Errorf("attempts must fit the 16-bit sequence space, got %d", o.Attempts)
	}
	if o.Interval <= 0 {
		return errors.New("interval must be positive")
	}
	if o.Timeout <= 0 {
		return errors.New("timeout must be positive")
	}
	return nil
}

// Prober runs probe sequences against single hosts
type Prober struct {
	options Options
}

// New creates a prober with the given options
func New(options Options) (*Prober, error) {
	if err := options.Validate(); err != nil {
		return nil, err
	}
	return &Prober{options: options}, nil
}

// Options returns the prober configuration
func (p *Prober) Options() Options {
	return p.options
}

// Probe runs the exchange sequence against addr. The only error is a failure
// to open the session; lost exchanges are absent from the result. When ctx is
// done the sequence stops and the partial result is returned.
func (p *Prober) Probe(ctx context.Context, pinger Pinger, addr netip.Addr) (Result, error) {
	result := Result{Addr: addr}

	session, err := pinger.NewSession(addr)
	if err != nil {
		return result, fmt.Errorf("could not create session for %s: %w", addr, err)
	}

	ticker := time.NewTicker(p.options.Interval)
	defer ticker.Stop()

	for seq := 0; seq < p.options.Attempts; seq++ {
		if seq > 0 {
			select {
			case <-ticker.C:
			case <-ctx.Done():
				return result, nil
			}
		}
		if ctx.Err() != nil {
			return result, nil
		}

		result.Attempts++
		rtt, err := session.Ping(ctx, seq, p.options.Timeout)
		if err != nil {
			continue
		}
		result.RTTs = append(result.RTTs, rtt)
	}

	return result, nil
}
